// Package blockly builds the per-robot-model block definitions loaded into
// the visual programming surface.
package blockly

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nhle/robolab-console/internal/model"
)

// ModelPrefix marks template blocks that are namespaced per robot model.
const ModelPrefix = "."

// DropdownField is the field that receives catalog entries.
const DropdownField = "ACTION_NAME"

// Placeholder fills a dropdown whose catalog is empty. Blockly rejects
// dropdowns with no options.
var Placeholder = Option{"???", "???"}

// Category block suffixes.
const (
	CategoryAction         = ".action"
	CategoryExtendedAction = ".extended_action"
	CategoryExpression     = ".expression"
	CategorySkill          = ".skill"
)

//go:embed blocks.json
var templateJSON []byte

var template []Block

func init() {
	if err := json.Unmarshal(templateJSON, &template); err != nil {
		panic(fmt.Sprintf("blockly: decoding embedded template: %v", err))
	}
}

// Template returns a fresh copy of the embedded block template.
func Template() []Block {
	return CloneAll(template)
}

// LoadModelIDData returns the block definitions for one robot model: the
// template with every dot-prefixed type namespaced under modelID and the
// four category dropdowns filled from the given catalogs. Equal inputs give
// deep-equal outputs and the result shares no memory with the template or
// with any other call.
func LoadModelIDData(modelID string, actions, extActions, expressions, skills []model.CodePair) []Block {
	catalogs := map[string][]model.CodePair{
		CategoryAction:         actions,
		CategoryExtendedAction: extActions,
		CategoryExpression:     expressions,
		CategorySkill:          skills,
	}

	blocks := Template()
	for i := range blocks {
		b := &blocks[i]
		if !strings.HasPrefix(b.Type, ModelPrefix) {
			continue
		}

		pairs, isCategory := catalogs[b.Type]
		b.Type = modelID + b.Type
		if !isCategory {
			continue
		}

		field := b.Field(DropdownField)
		if field == nil {
			continue
		}
		if len(pairs) == 0 {
			field.Options = append(field.Options, Placeholder)
		}
		for _, p := range pairs {
			field.Options = append(field.Options, Option(p))
		}
	}
	return blocks
}

// Catalogs groups the four code catalogs of one robot model.
type Catalogs struct {
	Actions         []model.CodePair `json:"actions"`
	ExtendedActions []model.CodePair `json:"extendedActions"`
	Expressions     []model.CodePair `json:"expressions"`
	Skills          []model.CodePair `json:"skills"`
}

// Build is LoadModelIDData over a Catalogs value.
func (c Catalogs) Build(modelID string) []Block {
	return LoadModelIDData(modelID, c.Actions, c.ExtendedActions, c.Expressions, c.Skills)
}

// Pairs converts catalog entries to dropdown pairs, keeping order.
func Pairs(entries []model.CatalogEntry) []model.CodePair {
	out := make([]model.CodePair, len(entries))
	for i, e := range entries {
		out[i] = e.Pair()
	}
	return out
}
