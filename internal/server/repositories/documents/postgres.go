package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/dmitrijs2005/portfolio/internal/common"
	"github.com/dmitrijs2005/portfolio/internal/dbx"
	"github.com/dmitrijs2005/portfolio/internal/server/models"
)

// ErrInvalidOrder is returned by List for an order field that is neither a
// known column nor a plain identifier.
var ErrInvalidOrder = errors.New("invalid order field")

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// PostgresRepository keeps all collections in the documents table, one JSONB
// object per row.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, collection, id string) (*models.Document, error) {
	query := `
		SELECT data, created_at, updated_at FROM documents
		WHERE collection = $1 AND id = $2
	`
	doc := &models.Document{Collection: collection, ID: id}
	var data []byte
	if err := r.db.QueryRowContext(ctx, query, collection, id).Scan(&data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	doc.Data = data
	return doc, nil
}

// orderExpr maps an order field onto a safe SQL expression. Field names never
// reach the query text unless they match fieldName.
func orderExpr(orderBy string, dir Direction) (string, error) {
	var expr string
	switch orderBy {
	case "created_at", "createdAt":
		expr = "created_at"
	case "updated_at", "updatedAt":
		expr = "updated_at"
	default:
		if !fieldName.MatchString(orderBy) {
			return "", fmt.Errorf("%w: %q", ErrInvalidOrder, orderBy)
		}
		expr = "data->>'" + orderBy + "'"
	}
	d := "ASC"
	if dir == Desc {
		d = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", expr, d, d), nil
}

func (r *PostgresRepository) List(ctx context.Context, collection, orderBy string, dir Direction) ([]*models.Document, error) {
	order, err := orderExpr(orderBy, dir)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, data, created_at, updated_at FROM documents
		WHERE collection = $1
		ORDER BY ` + order

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	result := []*models.Document{}
	for rows.Next() {
		doc := &models.Document{Collection: collection}
		var data []byte
		if err := rows.Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.Data = data
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		RETURNING created_at, updated_at
	`
	data := doc.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if err := r.db.QueryRowContext(ctx, query, doc.Collection, doc.ID, string(data)).Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func removeKeys(remove []string) (string, error) {
	if remove == nil {
		remove = []string{}
	}
	b, err := json.Marshal(remove)
	return string(b), err
}

func patchOrEmpty(patch json.RawMessage) string {
	if len(patch) == 0 {
		return "{}"
	}
	return string(patch)
}

func (r *PostgresRepository) Merge(ctx context.Context, collection, id string, patch json.RawMessage, remove []string) error {
	keys, err := removeKeys(remove)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET data = (data - ARRAY(SELECT jsonb_array_elements_text($3::jsonb))) || $4::jsonb,
			updated_at = now()
		WHERE collection = $1 AND id = $2
	`
	return dbx.ExecOne(ctx, r.db, query, collection, id, keys, patchOrEmpty(patch))
}

func (r *PostgresRepository) Upsert(ctx context.Context, collection, id string, patch json.RawMessage, remove []string) error {
	keys, err := removeKeys(remove)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $4::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET
			data = (documents.data - ARRAY(SELECT jsonb_array_elements_text($3::jsonb))) || EXCLUDED.data,
			updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, collection, id, keys, patchOrEmpty(patch)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, collection, id string) error {
	query := `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`
	return dbx.ExecOne(ctx, r.db, query, collection, id)
}
