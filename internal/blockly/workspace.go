package blockly

import "sync"

// Workspace holds the block definitions of the robot model currently loaded
// into the programming surface. Loading another model replaces them.
type Workspace struct {
	mu      sync.RWMutex
	modelID string
	blocks  []Block
}

// Load replaces the workspace contents with the blocks for modelID.
func (w *Workspace) Load(modelID string, catalogs Catalogs) {
	blocks := catalogs.Build(modelID)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.modelID = modelID
	w.blocks = blocks
}

// ModelID returns the loaded model, or "" when empty.
func (w *Workspace) ModelID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.modelID
}

// Blocks returns a copy of the loaded definitions.
func (w *Workspace) Blocks() []Block {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return CloneAll(w.blocks)
}

// Lookup finds a loaded block by its full type.
func (w *Workspace) Lookup(blockType string) (Block, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, b := range w.blocks {
		if b.Type == blockType {
			return b.Clone(), true
		}
	}
	return Block{}, false
}
