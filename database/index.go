package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/siherrmann/annomerge/helper"
)

// Vector index types supported for entity name embeddings.
const (
	IndexHNSW    = "hnsw"
	IndexIVFFlat = "ivfflat"
)

// IndexOptions tunes the vector index. Zero values use the pgvector defaults
// (m 16, ef_construction 64 for HNSW and 100 lists for IVFFlat).
type IndexOptions struct {
	M              int
	EFConstruction int
	Lists          int
}

// ChangeIndexType rebuilds the entity embedding index as indexType.
func (h *EntitiesDBHandler) ChangeIndexType(ctx context.Context, indexType string, options IndexOptions) error {
	var createIndexSQL string
	switch indexType {
	case IndexHNSW:
		m := options.M
		if m <= 0 {
			m = 16
		}
		efConstruction := options.EFConstruction
		if efConstruction <= 0 {
			efConstruction = 64
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_entities_embedding ON entities USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)
	case IndexIVFFlat:
		lists := options.Lists
		if lists <= 0 {
			lists = 100
		}
		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_entities_embedding ON entities USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)
	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	tx, err := h.db.Instance.BeginTx(ctx, nil)
	if err != nil {
		return helper.NewError("begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_entities_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	_, err = tx.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	err = tx.Commit()
	if err != nil {
		return helper.NewError("commit", err)
	}

	h.db.Logger.Info("Changed entity embedding index", slog.String("type", indexType), slog.Any("options", options))

	return nil
}
