package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"conjuntos-api/internal/domain"
)

// PostgresReportsRepository implements ReportsRepository over postgres.
type PostgresReportsRepository struct {
	db *sql.DB
}

func NewPostgresReportsRepository(db *sql.DB) *PostgresReportsRepository {
	return &PostgresReportsRepository{db: db}
}

var _ ReportsRepository = (*PostgresReportsRepository)(nil)

const reportColumns = `id::text, conjunto_id::text, author_user_id, title, description, category, location, status, is_anonymous, created_at, updated_at`

func scanReport(row interface{ Scan(...any) error }) (*domain.Report, error) {
	var rep domain.Report
	var updatedAt sql.NullTime
	err := row.Scan(
		&rep.ID, &rep.ConjuntoID, &rep.AuthorUserID,
		&rep.Title, &rep.Description, &rep.Category, &rep.Location,
		&rep.Status, &rep.IsAnonymous, &rep.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		rep.UpdatedAt = &updatedAt.Time
	}
	return &rep, nil
}

func (r *PostgresReportsRepository) Create(ctx context.Context, rep *domain.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, conjunto_id, author_user_id, title, description, category, location, status, is_anonymous, created_at)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rep.ID, rep.ConjuntoID, rep.AuthorUserID, rep.Title, rep.Description,
		rep.Category, rep.Location, rep.Status, rep.IsAnonymous, rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *PostgresReportsRepository) Get(ctx context.Context, id string) (*domain.Report, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}
	rep, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1::uuid`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

func (r *PostgresReportsRepository) ListByConjunto(ctx context.Context, conjuntoID string) ([]*domain.Report, error) {
	if !validUUID(conjuntoID) {
		return []*domain.Report{}, nil
	}
	return r.list(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE conjunto_id = $1::uuid ORDER BY created_at DESC`, conjuntoID)
}

func (r *PostgresReportsRepository) ListByAuthor(ctx context.Context, authorUserID string) ([]*domain.Report, error) {
	return r.list(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE author_user_id = $1 ORDER BY created_at DESC`, authorUserID)
}

func (r *PostgresReportsRepository) ListAll(ctx context.Context) ([]*domain.Report, error) {
	return r.list(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC`)
}

func (r *PostgresReportsRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	out := []*domain.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return out, nil
}

func (r *PostgresReportsRepository) Update(ctx context.Context, id string, patch ReportPatch) (*domain.Report, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}
	set := []string{"updated_at = now()"}
	args := []any{id}
	argIdx := 2

	addSet := func(col string, v any) {
		set = append(set, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, v)
		argIdx++
	}
	if patch.Title != nil {
		addSet("title", *patch.Title)
	}
	if patch.Description != nil {
		addSet("description", *patch.Description)
	}
	if patch.Category != nil {
		addSet("category", string(*patch.Category))
	}
	if patch.Location != nil {
		addSet("location", *patch.Location)
	}
	if patch.Status != nil {
		addSet("status", string(*patch.Status))
	}
	if patch.IsAnonymous != nil {
		addSet("is_anonymous", *patch.IsAnonymous)
	}

	query := fmt.Sprintf(
		`UPDATE reports SET %s WHERE id = $1::uuid RETURNING `+reportColumns,
		strings.Join(set, ", "),
	)
	rep, err := scanReport(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	return rep, nil
}

func (r *PostgresReportsRepository) AddPhoto(ctx context.Context, p *domain.ReportPhoto) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_photos (id, report_id, external_image_id, url, created_at)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5)`,
		p.ID, p.ReportID, p.ExternalImageID, p.URL, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add report photo: %w", err)
	}
	return nil
}

func (r *PostgresReportsRepository) ListPhotos(ctx context.Context, reportID string) ([]*domain.ReportPhoto, error) {
	if !validUUID(reportID) {
		return []*domain.ReportPhoto{}, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id::text, report_id::text, external_image_id, url, created_at
		 FROM report_photos WHERE report_id = $1::uuid ORDER BY created_at`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list report photos: %w", err)
	}
	defer rows.Close()

	out := []*domain.ReportPhoto{}
	for rows.Next() {
		var p domain.ReportPhoto
		if err := rows.Scan(&p.ID, &p.ReportID, &p.ExternalImageID, &p.URL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report photo: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report photos: %w", err)
	}
	return out, nil
}

func (r *PostgresReportsRepository) AddComment(ctx context.Context, c *domain.ReportComment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_comments (id, report_id, author_user_id, body, is_internal, created_at)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)`,
		c.ID, c.ReportID, c.AuthorUserID, c.Body, c.IsInternal, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add report comment: %w", err)
	}
	return nil
}

func (r *PostgresReportsRepository) ListComments(ctx context.Context, reportID string, includeInternal bool) ([]*domain.ReportComment, error) {
	if !validUUID(reportID) {
		return []*domain.ReportComment{}, nil
	}
	query := `SELECT id::text, report_id::text, author_user_id, body, is_internal, created_at
		 FROM report_comments WHERE report_id = $1::uuid`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list report comments: %w", err)
	}
	defer rows.Close()

	out := []*domain.ReportComment{}
	for rows.Next() {
		var c domain.ReportComment
		if err := rows.Scan(&c.ID, &c.ReportID, &c.AuthorUserID, &c.Body, &c.IsInternal, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report comment: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate report comments: %w", err)
	}
	return out, nil
}
