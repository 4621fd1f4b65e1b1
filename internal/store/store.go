package store

import (
	"context"

	"github.com/nhle/robolab-console/internal/blockly"
	"github.com/nhle/robolab-console/internal/model"
	"github.com/nhle/robolab-console/internal/notify"
)

// Store is the local persistence layer: the notification index backing the
// bell and the robot-model catalog cache used for offline block generation.
type Store interface {
	notify.Index
	blockly.CatalogCache

	// Catalogs lists the cached catalog kinds of a model with their fetch
	// time.
	Catalogs(ctx context.Context, modelID string) ([]model.CatalogInfo, error)

	// Prune drops every notification of accountID.
	Prune(ctx context.Context, accountID string) error

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
