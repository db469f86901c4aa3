package repository

import (
	"context"

	"conjuntos-api/internal/domain"
)

// ReportsRepository is the data-access contract for reports and their
// photos and comments. Report listings are newest-first; photo and comment
// listings are oldest-first.
type ReportsRepository interface {
	Create(ctx context.Context, r *domain.Report) error

	// Get returns the report by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Report, error)

	ListByConjunto(ctx context.Context, conjuntoID string) ([]*domain.Report, error)
	ListByAuthor(ctx context.Context, authorUserID string) ([]*domain.Report, error)
	ListAll(ctx context.Context) ([]*domain.Report, error)

	// Update applies a partial-field merge patch, touches updated_at and
	// returns the updated report, or ErrNotFound. ConjuntoID and the author
	// are immutable and deliberately absent from the patch.
	Update(ctx context.Context, id string, patch ReportPatch) (*domain.Report, error)

	AddPhoto(ctx context.Context, p *domain.ReportPhoto) error
	ListPhotos(ctx context.Context, reportID string) ([]*domain.ReportPhoto, error)

	AddComment(ctx context.Context, c *domain.ReportComment) error
	// ListComments returns the comments of a report; internal comments are
	// included only when includeInternal is true.
	ListComments(ctx context.Context, reportID string, includeInternal bool) ([]*domain.ReportComment, error)
}

// ReportPatch is a partial update; nil fields are left untouched.
type ReportPatch struct {
	Title       *string
	Description *string
	Category    *domain.ReportCategory
	Location    *string
	Status      *domain.ReportStatus
	IsAnonymous *bool
}
