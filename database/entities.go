package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
	loadSql "github.com/siherrmann/annomerge/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	InsertEntityMention(entityID uuid.UUID, mention *model.EntityMention) error
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntitiesByDocument(documentRID uuid.UUID) ([]*model.Entity, error)
	SelectEntitiesByName(name string, entityType *string, limit int) ([]*model.Entity, error)
	SelectEntitiesBySimilarity(embedding []float32, limit int, threshold float64, documentRIDs []uuid.UUID) ([]*model.Entity, error)
	SelectMentionsByEntity(entityID uuid.UUID) ([]*model.EntityMention, error)
	DeleteEntitiesByDocument(documentRID uuid.UUID) error
}

// EntitiesDBHandler handles entity and mention related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// The documents table must exist, entities reference it.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, embeddingDim int, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if embeddingDim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' and 'entity_mentions' tables in the database.
// If the tables already exist, it does not create them again.
func (h *EntitiesDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities($1);`, embeddingDim)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables entities and entity_mentions")

	return nil
}

// InsertEntity inserts a new entity (or updates if exists).
// The entity must carry its ID and DocumentRID.
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	var embedding interface{}
	if len(entity.Embedding) > 0 {
		embedding = pgvector.NewVector(entity.Embedding)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5, $6, $7)`,
		entity.ID,
		entity.DocumentRID,
		entity.CanonicalName,
		entity.Type,
		pq.Array(entity.MentionIDs),
		embedding,
		entity.Metadata,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// InsertEntityMention stores one mention of the entity with entityID.
func (h *EntitiesDBHandler) InsertEntityMention(entityID uuid.UUID, mention *model.EntityMention) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity_mention($1, $2, $3, $4, $5, $6, $7, $8)`,
		mention.ID,
		entityID,
		mention.Tokens.TokenizationID,
		pq.Array(toInt64s(mention.Tokens.TokenIndices)),
		mention.Tokens.AnchorIndex,
		mention.Text,
		mention.PhraseType,
		mention.EntityType,
	)

	err := scanMention(row, mention)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	err := scanEntity(row, entity)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByDocument retrieves the entities of a document in insertion order
func (h *EntitiesDBHandler) SelectEntitiesByDocument(documentRID uuid.UUID) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntitiesByName retrieves entities by case-insensitive canonical name.
// If entityType is nil, entities of all types are returned.
func (h *EntitiesDBHandler) SelectEntitiesByName(name string, entityType *string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_name($1, $2, $3)`,
		name,
		entityType,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := scanEntity(rows, entity)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntitiesBySimilarity performs vector similarity search over entity name embeddings.
// If documentRIDs is nil or empty, searches across all documents.
func (h *EntitiesDBHandler) SelectEntitiesBySimilarity(embedding []float32, limit int, threshold float64, documentRIDs []uuid.UUID) ([]*model.Entity, error) {
	embeddingVector := pgvector.NewVector(embedding)

	var documentRIDsParam interface{}
	if len(documentRIDs) > 0 {
		documentRIDsParam = pq.Array(documentRIDs)
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_similarity($1, $2, $3, $4)`,
		embeddingVector,
		limit,
		threshold,
		documentRIDsParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.DocumentRID,
			&entity.CanonicalName,
			&entity.Type,
			pq.Array(&entity.MentionIDs),
			pq.Array(&entity.Embedding),
			&entity.Metadata,
			&entity.CreatedAt,
			&entity.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// SelectMentionsByEntity retrieves the mentions of an entity in insertion order
func (h *EntitiesDBHandler) SelectMentionsByEntity(entityID uuid.UUID) ([]*model.EntityMention, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_mentions_by_entity($1)`,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var mentions []*model.EntityMention
	for rows.Next() {
		mention := &model.EntityMention{}
		err := scanMention(rows, mention)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		mentions = append(mentions, mention)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return mentions, nil
}

// DeleteEntitiesByDocument deletes all entities and mentions of a document
func (h *EntitiesDBHandler) DeleteEntitiesByDocument(documentRID uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entities_by_document($1)`,
		documentRID,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanEntity(row rowScanner, entity *model.Entity) error {
	return row.Scan(
		&entity.ID,
		&entity.DocumentRID,
		&entity.CanonicalName,
		&entity.Type,
		pq.Array(&entity.MentionIDs),
		pq.Array(&entity.Embedding),
		&entity.Metadata,
		&entity.CreatedAt,
	)
}

func scanMention(row rowScanner, mention *model.EntityMention) error {
	var indices pq.Int64Array
	err := row.Scan(
		&mention.ID,
		&mention.Tokens.TokenizationID,
		&indices,
		&mention.Tokens.AnchorIndex,
		&mention.Text,
		&mention.PhraseType,
		&mention.EntityType,
	)
	if err != nil {
		return err
	}

	mention.Tokens.TokenIndices = make([]int, len(indices))
	for i, index := range indices {
		mention.Tokens.TokenIndices[i] = int(index)
	}
	return nil
}

func toInt64s(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}
