package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/robolab-console/internal/model"
)

// SaveCatalog stores the entries of one catalog kind for a robot model,
// replacing the previous copy.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, modelID, kind string, entries []model.CatalogEntry) error {
	if entries == nil {
		entries = []model.CatalogEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling %s catalog: %w", kind, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO robot_catalogs (model_id, kind, entries, fetched_at)
		VALUES (?, ?, ?, ?)`,
		modelID, kind, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving %s catalog for model %s: %w", kind, modelID, err)
	}
	return nil
}

// LoadCatalog returns the cached entries of one catalog kind.
func (s *SQLiteStore) LoadCatalog(ctx context.Context, modelID, kind string) ([]model.CatalogEntry, bool, error) {
	var data string
	err := s.db.GetContext(ctx, &data,
		"SELECT entries FROM robot_catalogs WHERE model_id = ? AND kind = ?", modelID, kind,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading %s catalog for model %s: %w", kind, modelID, err)
	}

	var entries []model.CatalogEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, false, fmt.Errorf("unmarshaling %s catalog: %w", kind, err)
	}
	return entries, true, nil
}

// Catalogs lists what is cached for a robot model.
func (s *SQLiteStore) Catalogs(ctx context.Context, modelID string) ([]model.CatalogInfo, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT kind, entries, fetched_at FROM robot_catalogs WHERE model_id = ? ORDER BY kind", modelID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying catalogs for model %s: %w", modelID, err)
	}
	defer rows.Close()

	var out []model.CatalogInfo
	for rows.Next() {
		var (
			info      model.CatalogInfo
			data      string
			fetchedAt time.Time
		)
		if err := rows.Scan(&info.Kind, &data, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning catalog row: %w", err)
		}
		var entries []model.CatalogEntry
		if err := json.Unmarshal([]byte(data), &entries); err != nil {
			return nil, fmt.Errorf("unmarshaling %s catalog: %w", info.Kind, err)
		}
		info.ModelID = modelID
		info.Count = len(entries)
		info.FetchedAt = fetchedAt
		out = append(out, info)
	}
	return out, rows.Err()
}
