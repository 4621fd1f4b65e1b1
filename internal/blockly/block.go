package blockly

import "encoding/json"

// Block is one Blockly JSON block definition.
//
// Connection and colour fields stay raw: Blockly accepts null, a bool, a
// string or a list of type checks there, and the generator never reads them.
type Block struct {
	Type              string          `json:"type"`
	Message0          string          `json:"message0"`
	Args0             []Arg           `json:"args0,omitempty"`
	PreviousStatement json.RawMessage `json:"previousStatement,omitempty"`
	NextStatement     json.RawMessage `json:"nextStatement,omitempty"`
	Output            json.RawMessage `json:"output,omitempty"`
	Colour            json.RawMessage `json:"colour,omitempty"`
	InputsInline      *bool           `json:"inputsInline,omitempty"`
	Tooltip           string          `json:"tooltip"`
	HelpURL           string          `json:"helpUrl"`
}

// Arg is one entry of a block's args0 list.
type Arg struct {
	Type    string          `json:"type"`
	Name    string          `json:"name,omitempty"`
	Options []Option        `json:"options,omitempty"`
	Check   json.RawMessage `json:"check,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Text    string          `json:"text,omitempty"`
	Align   string          `json:"align,omitempty"`
}

// MarshalJSON writes Options whenever the list is non-nil, so an empty
// dropdown stays "options": [].
func (a Arg) MarshalJSON() ([]byte, error) {
	type plain Arg
	out := struct {
		plain
		Options *[]Option `json:"options,omitempty"`
	}{plain: plain(a)}
	if a.Options != nil {
		out.Options = &a.Options
	}
	return json.Marshal(out)
}

// Option is a dropdown [label, value] pair.
type Option [2]string

// Clone returns a deep copy of b.
func (b Block) Clone() Block {
	out := b
	out.PreviousStatement = cloneRaw(b.PreviousStatement)
	out.NextStatement = cloneRaw(b.NextStatement)
	out.Output = cloneRaw(b.Output)
	out.Colour = cloneRaw(b.Colour)
	if b.InputsInline != nil {
		v := *b.InputsInline
		out.InputsInline = &v
	}
	if b.Args0 != nil {
		out.Args0 = make([]Arg, len(b.Args0))
		for i, a := range b.Args0 {
			out.Args0[i] = a.clone()
		}
	}
	return out
}

func (a Arg) clone() Arg {
	out := a
	out.Check = cloneRaw(a.Check)
	out.Value = cloneRaw(a.Value)
	if a.Options != nil {
		out.Options = make([]Option, len(a.Options))
		copy(out.Options, a.Options)
	}
	return out
}

// Field returns the arg named name, if present. The pointer aliases b.
func (b *Block) Field(name string) *Arg {
	for i := range b.Args0 {
		if b.Args0[i].Name == name {
			return &b.Args0[i]
		}
	}
	return nil
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	out := make(json.RawMessage, len(r))
	copy(out, r)
	return out
}

// CloneAll deep-copies a block list.
func CloneAll(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}
