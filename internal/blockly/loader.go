package blockly

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/robolab-console/internal/api"
	"github.com/nhle/robolab-console/internal/model"
)

// CatalogSource lists every entry of one code catalog.
type CatalogSource interface {
	ListAll(ctx context.Context, q api.ListQuery) ([]model.CatalogEntry, error)
}

// CatalogCache keeps the last fetched catalogs so blocks can be generated
// offline.
type CatalogCache interface {
	SaveCatalog(ctx context.Context, modelID, kind string, entries []model.CatalogEntry) error
	LoadCatalog(ctx context.Context, modelID, kind string) ([]model.CatalogEntry, bool, error)
}

// Loader fetches the four catalogs of a robot model.
type Loader struct {
	sources map[api.ResourceName]CatalogSource
	cache   CatalogCache
	logger  *slog.Logger
}

// NewLoader creates a Loader reading from the API. cache may be nil.
func NewLoader(client *api.Client, cache CatalogCache, logger *slog.Logger) *Loader {
	return NewLoaderFrom(map[api.ResourceName]CatalogSource{
		api.ResourceActions:         client.Actions(),
		api.ResourceExtendedActions: client.ExtendedActions(),
		api.ResourceExpressions:     client.Expressions(),
		api.ResourceSkills:          client.Skills(),
	}, cache, logger)
}

// NewLoaderFrom creates a Loader over explicit sources.
func NewLoaderFrom(sources map[api.ResourceName]CatalogSource, cache CatalogCache, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{sources: sources, cache: cache, logger: logger}
}

// Load fetches all four catalogs of modelID concurrently. A catalog that
// cannot be fetched is served from the cache when one is stored.
func (l *Loader) Load(ctx context.Context, modelID string) (Catalogs, error) {
	var (
		mu  sync.Mutex
		out Catalogs
	)
	targets := map[api.ResourceName]*[]model.CodePair{
		api.ResourceActions:         &out.Actions,
		api.ResourceExtendedActions: &out.ExtendedActions,
		api.ResourceExpressions:     &out.Expressions,
		api.ResourceSkills:          &out.Skills,
	}

	g, gctx := errgroup.WithContext(ctx)
	for kind, dst := range targets {
		kind, dst := kind, dst
		src, ok := l.sources[kind]
		if !ok {
			continue
		}
		g.Go(func() error {
			entries, err := l.fetch(gctx, src, modelID, string(kind))
			if err != nil {
				return fmt.Errorf("loading %s for model %s: %w", kind, modelID, err)
			}
			mu.Lock()
			*dst = Pairs(entries)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Catalogs{}, err
	}
	return out, nil
}

func (l *Loader) fetch(ctx context.Context, src CatalogSource, modelID, kind string) ([]model.CatalogEntry, error) {
	entries, err := src.ListAll(ctx, api.ListQuery{
		Size:    api.MaxPageSize,
		Filters: map[string]string{"robotModelId": modelID},
	})
	if err == nil {
		if l.cache != nil {
			if cerr := l.cache.SaveCatalog(ctx, modelID, kind, entries); cerr != nil {
				l.logger.Warn("caching catalog failed", "model_id", modelID, "kind", kind, "error", cerr)
			}
		}
		return entries, nil
	}

	if l.cache == nil {
		return nil, err
	}
	cached, ok, cerr := l.cache.LoadCatalog(context.WithoutCancel(ctx), modelID, kind)
	if cerr != nil || !ok {
		return nil, err
	}
	l.logger.Info("serving cached catalog", "model_id", modelID, "kind", kind, "error", err)
	return cached, nil
}

// Blocks loads the catalogs of modelID and generates its block definitions.
func (l *Loader) Blocks(ctx context.Context, modelID string) ([]Block, error) {
	catalogs, err := l.Load(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return catalogs.Build(modelID), nil
}

// LoadInto loads the catalogs of modelID and replaces the contents of ws.
// On error ws keeps its previous model.
func (l *Loader) LoadInto(ctx context.Context, ws *Workspace, modelID string) error {
	catalogs, err := l.Load(ctx, modelID)
	if err != nil {
		return err
	}
	ws.Load(modelID, catalogs)
	return nil
}
