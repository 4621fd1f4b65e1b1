package blockly

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/robolab-console/internal/api"
	"github.com/nhle/robolab-console/internal/model"
)

func find(t *testing.T, blocks []Block, blockType string) *Block {
	t.Helper()
	for i := range blocks {
		if blocks[i].Type == blockType {
			return &blocks[i]
		}
	}
	t.Fatalf("block %q not found", blockType)
	return nil
}

func options(t *testing.T, blocks []Block, blockType string) []Option {
	t.Helper()
	field := find(t, blocks, blockType).Field(DropdownField)
	require.NotNil(t, field)
	return field.Options
}

func TestEmptyCatalogsGetPlaceholder(t *testing.T) {
	blocks := LoadModelIDData("M1", nil, nil, nil, nil)

	for _, suffix := range []string{CategoryAction, CategoryExtendedAction, CategoryExpression, CategorySkill} {
		assert.Equal(t, []Option{{"???", "???"}}, options(t, blocks, "M1"+suffix), suffix)
	}
}

func TestCatalogInjectionKeepsOrder(t *testing.T) {
	actions := []model.CodePair{{"Wave", "wave_01"}, {"Bow", "bow_01"}}
	skills := []model.CodePair{{"Dance", "dance_01"}}

	blocks := LoadModelIDData("M1", actions, nil, nil, skills)

	assert.Equal(t, []Option{{"Wave", "wave_01"}, {"Bow", "bow_01"}}, options(t, blocks, "M1.action"))
	assert.Equal(t, []Option{{"Dance", "dance_01"}}, options(t, blocks, "M1.skill"))
	assert.Equal(t, []Option{Placeholder}, options(t, blocks, "M1.expression"))
}

func TestNamespaceIsolation(t *testing.T) {
	actions := []model.CodePair{{"Wave", "wave_01"}}
	m1 := LoadModelIDData("M1", actions, nil, nil, nil)
	m2 := LoadModelIDData("M2", actions, nil, nil, nil)

	templated := map[string]bool{}
	for _, b := range Template() {
		if strings.HasPrefix(b.Type, ModelPrefix) {
			templated[b.Type] = true
		}
	}
	require.NotEmpty(t, templated)

	m1Types := map[string]bool{}
	for _, b := range m1 {
		m1Types[b.Type] = true
	}
	for _, b := range m2 {
		if strings.HasPrefix(b.Type, "M2.") {
			assert.False(t, m1Types[b.Type], b.Type)
			assert.True(t, templated[strings.TrimPrefix(b.Type, "M2")], b.Type)
		} else {
			assert.False(t, strings.HasPrefix(b.Type, ModelPrefix), b.Type)
		}
	}

	m1Opts := find(t, m1, "M1.action").Field(DropdownField)
	m1Opts.Options[0] = Option{"Changed", "changed"}
	m1Opts.Options = append(m1Opts.Options, Option{"Extra", "extra"})

	assert.Equal(t, []Option{{"Wave", "wave_01"}}, options(t, m2, "M2.action"))
}

func TestGeneratorDoesNotMutateTemplate(t *testing.T) {
	before := Template()

	blocks := LoadModelIDData("M1", []model.CodePair{{"Wave", "wave_01"}}, nil, nil, nil)
	find(t, blocks, "M1.action").Field(DropdownField).Options[0][0] = "mutated"

	assert.Equal(t, before, Template())
	for _, b := range Template() {
		if field := b.Field(DropdownField); field != nil {
			assert.Empty(t, field.Options, b.Type)
		}
	}
}

func TestTemplateKeepsEmptyOptions(t *testing.T) {
	data, err := json.Marshal(Template())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	categories := 0
	for _, b := range raw {
		args, _ := b["args0"].([]any)
		for _, a := range args {
			arg := a.(map[string]any)
			options, ok := arg["options"]
			if arg["name"] == DropdownField {
				categories++
				require.True(t, ok, "%v lost its options", b["type"])
				assert.Equal(t, []any{}, options)
				continue
			}
			assert.False(t, ok, "%v has options on %v", b["type"], arg["name"])
		}
	}
	assert.Equal(t, 4, categories)

	filled, err := json.Marshal(LoadModelIDData("M1", nil, nil, nil, nil))
	require.NoError(t, err)
	assert.Contains(t, string(filled), `"options":[["???","???"]]`)
}

func TestGeneratorIsDeterministic(t *testing.T) {
	actions := []model.CodePair{{"Wave", "wave_01"}, {"Bow", "bow_01"}}
	exprs := []model.CodePair{{"Smile", "smile"}}

	a := LoadModelIDData("M1", actions, nil, exprs, nil)
	b := LoadModelIDData("M1", actions, nil, exprs, nil)
	assert.Equal(t, a, b)

	aj, err := json.Marshal(a)
	require.NoError(t, err)
	bj, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(aj), string(bj))
}

func TestGeneratedJSONShape(t *testing.T) {
	blocks := LoadModelIDData("M1", []model.CodePair{{"Wave", "wave_01"}}, nil, nil, nil)
	data, err := json.Marshal(blocks)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	var action map[string]any
	for _, b := range raw {
		if b["type"] == "M1.action" {
			action = b
		}
	}
	require.NotNil(t, action)
	assert.Contains(t, action, "previousStatement")
	assert.Nil(t, action["previousStatement"])

	args := action["args0"].([]any)
	field := args[0].(map[string]any)
	assert.Equal(t, "ACTION_NAME", field["name"])
	assert.Equal(t, []any{[]any{"Wave", "wave_01"}}, field["options"])
}

func TestConcurrentGeneration(t *testing.T) {
	var wg sync.WaitGroup
	results := make([][]Block, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = LoadModelIDData("M1", []model.CodePair{{"Wave", "wave_01"}}, nil, nil, nil)
		}(i)
	}
	wg.Wait()
	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

type fakeSource struct {
	entries []model.CatalogEntry
	err     error
	query   api.ListQuery
}

func (f *fakeSource) ListAll(_ context.Context, q api.ListQuery) ([]model.CatalogEntry, error) {
	f.query = q
	return f.entries, f.err
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]model.CatalogEntry
}

func (c *memCache) SaveCatalog(_ context.Context, modelID, kind string, entries []model.CatalogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]model.CatalogEntry{}
	}
	c.data[modelID+"/"+kind] = entries
	return nil
}

func (c *memCache) LoadCatalog(_ context.Context, modelID, kind string) ([]model.CatalogEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[modelID+"/"+kind]
	return e, ok, nil
}

func TestLoaderFetchesAndCaches(t *testing.T) {
	actions := &fakeSource{entries: []model.CatalogEntry{{Name: "Wave", Code: "wave_01"}, {Name: "Bow", Code: "bow_01"}}}
	skills := &fakeSource{entries: []model.CatalogEntry{{Name: "Dance", Code: "dance_01"}}}
	empty := &fakeSource{}
	cache := &memCache{}

	l := NewLoaderFrom(map[api.ResourceName]CatalogSource{
		api.ResourceActions:         actions,
		api.ResourceExtendedActions: empty,
		api.ResourceExpressions:     &fakeSource{},
		api.ResourceSkills:          skills,
	}, cache, nil)

	blocks, err := l.Blocks(context.Background(), "M1")
	require.NoError(t, err)

	assert.Equal(t, "M1", actions.query.Filters["robotModelId"])
	assert.Equal(t, []Option{{"Wave", "wave_01"}, {"Bow", "bow_01"}}, options(t, blocks, "M1.action"))
	assert.Equal(t, []Option{Placeholder}, options(t, blocks, "M1.extended_action"))

	cached, ok, err := cache.LoadCatalog(context.Background(), "M1", string(api.ResourceSkills))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, skills.entries, cached)
}

func TestLoaderFallsBackToCache(t *testing.T) {
	cache := &memCache{}
	require.NoError(t, cache.SaveCatalog(context.Background(), "M1", string(api.ResourceActions),
		[]model.CatalogEntry{{Name: "Wave", Code: "wave_01"}}))

	offline := errors.New("offline")
	l := NewLoaderFrom(map[api.ResourceName]CatalogSource{
		api.ResourceActions: &fakeSource{err: offline},
	}, cache, nil)

	catalogs, err := l.Load(context.Background(), "M1")
	require.NoError(t, err)
	assert.Equal(t, []model.CodePair{{"Wave", "wave_01"}}, catalogs.Actions)

	l = NewLoaderFrom(map[api.ResourceName]CatalogSource{
		api.ResourceSkills: &fakeSource{err: offline},
	}, cache, nil)
	_, err = l.Load(context.Background(), "M1")
	assert.ErrorIs(t, err, offline)
}

func TestWorkspaceReplacesModel(t *testing.T) {
	var w Workspace
	assert.Empty(t, w.ModelID())

	w.Load("M1", Catalogs{Actions: []model.CodePair{{"Wave", "wave_01"}}})
	_, ok := w.Lookup("M1.action")
	assert.True(t, ok)

	w.Load("M2", Catalogs{})
	assert.Equal(t, "M2", w.ModelID())
	_, ok = w.Lookup("M1.action")
	assert.False(t, ok)

	b, ok := w.Lookup("M2.action")
	require.True(t, ok)
	assert.Equal(t, []Option{Placeholder}, b.Field(DropdownField).Options)

	blocks := w.Blocks()
	blocks[0].Type = "changed"
	assert.NotEqual(t, "changed", w.Blocks()[0].Type)
}
