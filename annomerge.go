package annomerge

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/annomerge/core/merge"
	"github.com/siherrmann/annomerge/core/pipeline"
	"github.com/siherrmann/annomerge/database"
	"github.com/siherrmann/annomerge/helper"
	"github.com/siherrmann/annomerge/model"
	loadSql "github.com/siherrmann/annomerge/sql"
)

// Merger ties the annotation pipeline, the merge engine and the database handlers together
type Merger struct {
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Entities  *database.EntitiesDBHandler
	Pipeline  *pipeline.Pipeline // Optional annotation pipeline
	Engine    *merge.Engine
	// Logging
	log *slog.Logger
}

// NewMerger creates a new Merger with all handlers initialized.
// embeddingDim is the dimension of the entity name embeddings.
func NewMerger(config *helper.DatabaseConfiguration, mergeConfig model.MergeConfig, embeddingDim int) (*Merger, error) {
	logger := helper.NewPrettyLogger(os.Stdout, slog.LevelInfo)

	db := helper.NewDatabase("annomerge", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Entities reference documents, so documents come first.
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	return &Merger{
		DB:        db,
		Documents: documents,
		Entities:  entities,
		Engine:    merge.NewEngine(mergeConfig, logger),
		log:       logger,
	}, nil
}

// Close closes the database connection
func (m *Merger) Close() error {
	if m.DB != nil && m.DB.Instance != nil {
		return m.DB.Instance.Close()
	}
	return nil
}

// SetPipeline sets the annotation pipeline. Its head finder, if any, is
// handed to the merge engine.
func (m *Merger) SetPipeline(p *pipeline.Pipeline) {
	m.Pipeline = p
	if p != nil && p.HeadFinder != nil && m.Engine != nil {
		m.Engine.SetHeadFinder(p.HeadFinder)
	}
}

// UseDefaultPipeline sets up the rule based annotator with hugot NER tagging,
// string match coreference, Collins head rules and all-MiniLM-L6-v2 name
// embeddings (384 dimensions).
func (m *Merger) UseDefaultPipeline() error {
	tagger, err := pipeline.DefaultNERTagger()
	if err != nil {
		return helper.NewError("create default ner tagger", err)
	}

	embedder, err := pipeline.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	p := pipeline.NewPipeline(pipeline.RuleAnnotator())
	p.SetTagger(tagger)
	p.SetCorefResolver(pipeline.StringMatchCoref())
	p.SetHeadFinder(pipeline.CollinsHeadFinder())
	p.SetEmbedder(embedder)

	m.SetPipeline(p)
	return nil
}

// ProcessDocument annotates doc with the pipeline and merges the annotation
// into a new canonical document. Nothing is stored.
func (m *Merger) ProcessDocument(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if m.Pipeline == nil {
		return nil, helper.NewError("process document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}
	if doc == nil {
		return nil, helper.NewError("process document", fmt.Errorf("document is nil"))
	}

	ann, err := m.Pipeline.Annotate(ctx, doc)
	if err != nil {
		return nil, helper.NewError("annotate", err)
	}

	merged, err := m.Engine.Merge(doc, ann)
	if err != nil {
		return nil, helper.NewError("merge", err)
	}

	m.log.Info("Merged document", slog.String("doc_id", merged.DocID), slog.Int("sections", len(merged.Sections)))

	return merged, nil
}

// ProcessAndInsertDocument processes a document and stores the merged result:
// 1. Annotating and merging it with ProcessDocument
// 2. Inserting the merged document with its body
// 3. Replacing the stored entities and mentions of the document
// Entity names are embedded when the pipeline has an embedder.
func (m *Merger) ProcessAndInsertDocument(ctx context.Context, doc *model.Document) (*model.Document, error) {
	merged, err := m.ProcessDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	err = m.InsertMergedDocument(ctx, merged)
	if err != nil {
		return nil, err
	}

	return merged, nil
}

// InsertMergedDocument stores an already merged document and its entities.
func (m *Merger) InsertMergedDocument(ctx context.Context, merged *model.Document) error {
	if err := m.Documents.InsertDocument(merged); err != nil {
		return helper.NewError("insert document", err)
	}

	m.log.Info("Inserted document", slog.String("document_rid", merged.RID.String()), slog.String("title", merged.Title))

	if err := m.Entities.DeleteEntitiesByDocument(merged.RID); err != nil {
		return helper.NewError("delete previous entities", err)
	}

	count := 0
	for _, entitySet := range merged.EntitySets {
		mentionSet := findMentionSet(merged.MentionSets, entitySet.MentionSetID)
		if mentionSet == nil {
			return helper.NewError("insert entities", fmt.Errorf("mention set %s of entity set %s not found", entitySet.MentionSetID, entitySet.ID))
		}

		for i := range entitySet.Entities {
			if err := ctx.Err(); err != nil {
				return helper.NewError("insert entities", err)
			}

			entity := &entitySet.Entities[i]
			entity.DocumentRID = merged.RID
			err := m.insertEntity(entity, mentionSet)
			if err != nil {
				return helper.NewError(fmt.Sprintf("insert entity %d", i), err)
			}
			count++
		}
	}

	m.log.Info("Inserted entities", slog.String("document_rid", merged.RID.String()), slog.Int("count", count))

	return nil
}

func (m *Merger) insertEntity(entity *model.Entity, mentionSet *model.MentionSet) error {
	if m.Pipeline != nil && m.Pipeline.Embedder != nil && entity.CanonicalName != "" {
		embedding, err := m.Pipeline.Embedder(entity.CanonicalName)
		if err != nil {
			return helper.NewError("generate embedding", err)
		}
		entity.Embedding = embedding
	}

	if err := m.Entities.InsertEntity(entity); err != nil {
		return err
	}

	for _, mentionID := range entity.MentionIDs {
		mention := mentionSet.Mention(mentionID)
		if mention == nil {
			return fmt.Errorf("mention %s not found in mention set %s", mentionID, mentionSet.ID)
		}
		if err := m.Entities.InsertEntityMention(entity.ID, mention); err != nil {
			return helper.NewError("insert mention", err)
		}
	}

	return nil
}

// SelectDocument loads a stored merged document together with its stored entities
func (m *Merger) SelectDocument(rid uuid.UUID) (*model.Document, []*model.Entity, error) {
	doc, err := m.Documents.SelectDocument(rid)
	if err != nil {
		return nil, nil, helper.NewError("select document", err)
	}

	entities, err := m.Entities.SelectEntitiesByDocument(rid)
	if err != nil {
		return nil, nil, helper.NewError("select entities", err)
	}

	return doc, entities, nil
}

// SearchEntities finds entities whose canonical name embedding is similar to query.
// If documentRIDs is empty, all documents are searched.
func (m *Merger) SearchEntities(query string, limit int, threshold float64, documentRIDs []uuid.UUID) ([]*model.Entity, error) {
	if m.Pipeline == nil || m.Pipeline.Embedder == nil {
		return nil, helper.NewError("entity search", fmt.Errorf("pipeline with embedder not set, use SetPipeline() first"))
	}

	embedding, err := m.Pipeline.Embedder(query)
	if err != nil {
		return nil, helper.NewError("generate embedding", err)
	}

	return m.Entities.SelectEntitiesBySimilarity(embedding, limit, threshold, documentRIDs)
}

// ChangeIndexType changes the entity embedding index between HNSW and IVFFlat
func (m *Merger) ChangeIndexType(ctx context.Context, indexType string, options database.IndexOptions) error {
	return m.Entities.ChangeIndexType(ctx, indexType, options)
}

func findMentionSet(sets []*model.MentionSet, id uuid.UUID) *model.MentionSet {
	for _, set := range sets {
		if set.ID == id {
			return set
		}
	}
	return nil
}
