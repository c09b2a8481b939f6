package sqlite

import (
	"context"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/pkg/idx"
)

type documentsRepo struct {
	q dbtx
}

const documentColumns = `id, key, name, content_type, size, domain, uploaded_by, created_at`

func (r *documentsRepo) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO documents (id, key, name, content_type, size, domain, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.Key, d.Name, d.ContentType, d.Size,
		d.Domain, d.UploadedBy.String(), d.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *documentsRepo) GetByID(ctx context.Context, id idx.ID) (*domain.Document, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
	return scanDocument(row)
}

func (r *documentsRepo) List(ctx context.Context, domainKey string) ([]*domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at DESC`
	args := []any{}
	if domainKey != "" {
		query = `SELECT ` + documentColumns + ` FROM documents WHERE domain = ? ORDER BY created_at DESC`
		args = append(args, domainKey)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *documentsRepo) Delete(ctx context.Context, id idx.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		d             domain.Document
		rawID, rawUID string
	)
	err := row.Scan(&rawID, &d.Key, &d.Name, &d.ContentType, &d.Size,
		&d.Domain, &rawUID, &d.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if d.ID, err = idx.Parse(rawID); err != nil {
		return nil, err
	}
	if d.UploadedBy, err = idx.Parse(rawUID); err != nil {
		return nil, err
	}
	return &d, nil
}
