package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/siherrmann/biolink/helper"
	"github.com/siherrmann/biolink/model"
	loadSql "github.com/siherrmann/biolink/sql"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// IndexDBHandlerFunctions defines the interface for session vector table operations.
type IndexDBHandlerFunctions interface {
	CreateSessionTable(ctx context.Context, table string, dimension int) error
	UpsertDocument(ctx context.Context, table string, doc *model.IndexedDocument) error
	SelectDocumentsBySimilarity(ctx context.Context, table string, embedding []float32, limit int) ([]*model.ScoredDocument, error)
	CountDocuments(ctx context.Context, table string) (int, error)
	DropSessionTable(ctx context.Context, table string) error
	ChangeIndexType(ctx context.Context, table string, indexType string, params map[string]interface{}) error
}

// IndexDBHandler handles the per session vector tables.
type IndexDBHandler struct {
	db *helper.Database
}

// NewIndexDBHandler creates a new index database handler and loads the index SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewIndexDBHandler(db *helper.Database, force bool) (*IndexDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	indexDbHandler := &IndexDBHandler{
		db: db,
	}

	err := loadSql.LoadIndexSql(indexDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load index sql", err)
	}

	db.Logger.Info("Initialized IndexDBHandler")

	return indexDbHandler, nil
}

// CreateSessionTable creates the vector table of one session.
func (h *IndexDBHandler) CreateSessionTable(ctx context.Context, table string, dimension int) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	if dimension <= 0 {
		return helper.NewError("create session table", fmt.Errorf("dimension must be positive, got %d", dimension))
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_session_index($1, $2);`, table, dimension)
	if err != nil {
		return helper.NewError("exec", err)
	}

	h.db.Logger.Debug("Created session table", "table", table)

	return nil
}

// UpsertDocument inserts a document or overwrites the one with the same id.
func (h *IndexDBHandler) UpsertDocument(ctx context.Context, table string, doc *model.IndexedDocument) error {
	if err := validateTableName(table); err != nil {
		return err
	}
	if doc.Metadata == nil {
		doc.Metadata = model.Metadata{}
	}

	_, err := h.db.Instance.ExecContext(
		ctx,
		`SELECT upsert_session_document($1, $2, $3, $4, $5)`,
		table,
		doc.ID,
		doc.Content,
		pgvector.NewVector(doc.Embedding),
		doc.Metadata,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}

	return nil
}

// SelectDocumentsBySimilarity returns the limit documents closest to embedding by
// cosine distance. Ties keep insertion order, Score is 1 - distance.
func (h *IndexDBHandler) SelectDocumentsBySimilarity(ctx context.Context, table string, embedding []float32, limit int) ([]*model.ScoredDocument, error) {
	if err := validateTableName(table); err != nil {
		return nil, err
	}

	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_session_documents_by_similarity($1, $2, $3)`,
		table,
		pgvector.NewVector(embedding),
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	docs := []*model.ScoredDocument{}
	for rows.Next() {
		doc := &model.ScoredDocument{}
		var distance float64
		err := rows.Scan(
			&doc.ID,
			&doc.Content,
			&doc.Metadata,
			&distance,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		doc.Score = 1 - distance
		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return docs, nil
}

// CountDocuments returns the number of documents in the session table.
func (h *IndexDBHandler) CountDocuments(ctx context.Context, table string) (int, error) {
	if err := validateTableName(table); err != nil {
		return 0, err
	}

	var count int
	err := h.db.Instance.QueryRowContext(ctx, `SELECT count_session_documents($1)`, table).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}

// DropSessionTable drops the session table if it exists.
func (h *IndexDBHandler) DropSessionTable(ctx context.Context, table string) error {
	if err := validateTableName(table); err != nil {
		return err
	}

	_, err := h.db.Instance.ExecContext(ctx, `SELECT drop_session_index($1)`, table)
	if err != nil {
		return helper.NewError("exec", err)
	}

	h.db.Logger.Debug("Dropped session table", "table", table)

	return nil
}

// ChangeIndexType builds an approximate vector index on a session table.
// indexType: "hnsw" or "ivfflat"
// params: optional parameters for index creation
//   - For HNSW: "m" (int, default 16), "ef_construction" (int, default 64)
//   - For IVFFlat: "lists" (int, default 100)
func (h *IndexDBHandler) ChangeIndexType(ctx context.Context, table string, indexType string, params map[string]interface{}) error {
	if err := validateTableName(table); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	indexName := table + "_embedding"
	_, err := h.db.Instance.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s;`, indexName))
	if err != nil {
		return helper.NewError("drop index", err)
	}

	var createIndexSQL string

	switch indexType {
	case "hnsw":
		m := 16
		efConstruction := 64

		if mVal, ok := params["m"].(int); ok {
			m = mVal
		}
		if efVal, ok := params["ef_construction"].(int); ok {
			efConstruction = efVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX %s ON %s USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			indexName, table, m, efConstruction,
		)

	case "ivfflat":
		lists := 100
		if listsVal, ok := params["lists"].(int); ok {
			lists = listsVal
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX %s ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			indexName, table, lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	_, err = h.db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	h.db.Logger.Info(fmt.Sprintf("Created %s index on %s with params: %v", indexType, table, params))

	return nil
}

func validateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return helper.NewError("table name validation", fmt.Errorf("invalid table name: %q", table))
	}
	return nil
}
