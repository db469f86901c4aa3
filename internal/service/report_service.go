package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"conjuntos-api/internal/domain"
	"conjuntos-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReportService manages issue reports, their photos and comments, and the
// platform-wide statistics aggregation.
type ReportService interface {
	Create(ctx context.Context, req CreateReportRequest) (*domain.Report, error)
	Get(ctx context.Context, id string) (*domain.Report, error)
	// GetDetail embeds photos (oldest first) and comments (internal ones
	// only when includeInternal is true).
	GetDetail(ctx context.Context, id string, includeInternal bool) (*ReportDetail, error)
	// ListByConjunto and ListAll return newest-first listings, each item
	// carrying its first photo as a preview.
	ListByConjunto(ctx context.Context, conjuntoID string) ([]*ReportWithPreview, error)
	ListByAuthor(ctx context.Context, authorUserID string) ([]*ReportWithPreview, error)
	ListAll(ctx context.Context) ([]*ReportWithPreview, error)
	Update(ctx context.Context, id string, req UpdateReportRequest) (*domain.Report, error)
	AddPhoto(ctx context.Context, reportID, externalImageID, url string) (*domain.ReportPhoto, error)
	AddComment(ctx context.Context, reportID, authorUserID, body string, internal bool) (*domain.ReportComment, error)
	// Statistics loads every report and reduces in memory: counts and
	// percentages grouped by status and by category.
	Statistics(ctx context.Context) (*ReportStatistics, error)
}

type reportService struct {
	repo   repository.ReportsRepository
	logger *zap.Logger
}

func NewReportService(repo repository.ReportsRepository, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

// CreateReportRequest carries a new report. ConjuntoID and AuthorUserID are
// resolved from the caller, never from the request body.
type CreateReportRequest struct {
	ConjuntoID   string
	AuthorUserID string
	Title        string
	Description  string
	Category     domain.ReportCategory
	Location     string
	IsAnonymous  bool
}

// UpdateReportRequest is a partial-field merge patch.
type UpdateReportRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Category    *domain.ReportCategory `json:"category"`
	Location    *string                `json:"location"`
	Status      *domain.ReportStatus   `json:"status"`
	IsAnonymous *bool                  `json:"is_anonymous"`
}

// ReportWithPreview is a listing item with the oldest photo attached.
type ReportWithPreview struct {
	domain.Report
	FirstPhoto *domain.ReportPhoto `json:"first_photo,omitempty"`
}

// ReportDetail is a report with its photos and role-filtered comments.
type ReportDetail struct {
	domain.Report
	Photos   []*domain.ReportPhoto   `json:"photos"`
	Comments []*domain.ReportComment `json:"comments"`
}

// BucketStat is a count plus its share of the total.
type BucketStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// ReportStatistics aggregates every report by status and category. All
// buckets are always present, zeroed when the total is zero.
type ReportStatistics struct {
	Total      int                                  `json:"total"`
	ByStatus   map[domain.ReportStatus]BucketStat   `json:"by_status"`
	ByCategory map[domain.ReportCategory]BucketStat `json:"by_category"`
}

func (s *reportService) Create(ctx context.Context, req CreateReportRequest) (*domain.Report, error) {
	if req.Title == "" || req.Description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrValidation)
	}
	if req.ConjuntoID == "" {
		return nil, fmt.Errorf("%w: the author must belong to a conjunto", ErrValidation)
	}
	category := req.Category
	if category == "" {
		category = domain.CategoryOther
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: invalid category %q", ErrValidation, req.Category)
	}

	rep := &domain.Report{
		ID:           uuid.NewString(),
		ConjuntoID:   req.ConjuntoID,
		AuthorUserID: req.AuthorUserID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     category,
		Location:     req.Location,
		Status:       domain.StatusOpen,
		IsAnonymous:  req.IsAnonymous,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, err
	}

	s.logger.Info("Report created",
		zap.String("report_id", rep.ID),
		zap.String("conjunto_id", rep.ConjuntoID),
		zap.String("category", string(rep.Category)),
		zap.Bool("anonymous", rep.IsAnonymous),
	)
	return rep, nil
}

func (s *reportService) Get(ctx context.Context, id string) (*domain.Report, error) {
	return s.repo.Get(ctx, id)
}

func (s *reportService) GetDetail(ctx context.Context, id string, includeInternal bool) (*ReportDetail, error) {
	rep, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	photos, err := s.repo.ListPhotos(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, id, includeInternal)
	if err != nil {
		return nil, err
	}
	return &ReportDetail{Report: *rep, Photos: photos, Comments: comments}, nil
}

func (s *reportService) ListByConjunto(ctx context.Context, conjuntoID string) ([]*ReportWithPreview, error) {
	reports, err := s.repo.ListByConjunto(ctx, conjuntoID)
	if err != nil {
		return nil, err
	}
	return s.attachPreviews(ctx, reports)
}

func (s *reportService) ListByAuthor(ctx context.Context, authorUserID string) ([]*ReportWithPreview, error) {
	reports, err := s.repo.ListByAuthor(ctx, authorUserID)
	if err != nil {
		return nil, err
	}
	return s.attachPreviews(ctx, reports)
}

func (s *reportService) ListAll(ctx context.Context) ([]*ReportWithPreview, error) {
	reports, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.attachPreviews(ctx, reports)
}

func (s *reportService) attachPreviews(ctx context.Context, reports []*domain.Report) ([]*ReportWithPreview, error) {
	out := make([]*ReportWithPreview, 0, len(reports))
	for _, rep := range reports {
		item := &ReportWithPreview{Report: *rep}
		photos, err := s.repo.ListPhotos(ctx, rep.ID)
		if err != nil {
			return nil, err
		}
		if len(photos) > 0 {
			item.FirstPhoto = photos[0]
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *reportService) Update(ctx context.Context, id string, req UpdateReportRequest) (*domain.Report, error) {
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, *req.Status)
	}
	if req.Category != nil && !req.Category.Valid() {
		return nil, fmt.Errorf("%w: invalid category %q", ErrValidation, *req.Category)
	}
	return s.repo.Update(ctx, id, repository.ReportPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Status:      req.Status,
		IsAnonymous: req.IsAnonymous,
	})
}

func (s *reportService) AddPhoto(ctx context.Context, reportID, externalImageID, url string) (*domain.ReportPhoto, error) {
	if externalImageID == "" || url == "" {
		return nil, fmt.Errorf("%w: external_image_id and url are required", ErrValidation)
	}
	p := &domain.ReportPhoto{
		ID:              uuid.NewString(),
		ReportID:        reportID,
		ExternalImageID: externalImageID,
		URL:             url,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.AddPhoto(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *reportService) AddComment(ctx context.Context, reportID, authorUserID, body string, internal bool) (*domain.ReportComment, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrValidation)
	}
	c := &domain.ReportComment{
		ID:           uuid.NewString(),
		ReportID:     reportID,
		AuthorUserID: authorUserID,
		Body:         body,
		IsInternal:   internal,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.AddComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *reportService) Statistics(ctx context.Context) (*ReportStatistics, error) {
	reports, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ReportStatistics{
		Total:      len(reports),
		ByStatus:   map[domain.ReportStatus]BucketStat{},
		ByCategory: map[domain.ReportCategory]BucketStat{},
	}

	statusCounts := map[domain.ReportStatus]int{}
	categoryCounts := map[domain.ReportCategory]int{}
	for _, rep := range reports {
		statusCounts[rep.Status]++
		categoryCounts[rep.Category]++
	}

	for _, st := range domain.ReportStatuses {
		stats.ByStatus[st] = bucket(statusCounts[st], stats.Total)
	}
	for _, cat := range domain.ReportCategories {
		stats.ByCategory[cat] = bucket(categoryCounts[cat], stats.Total)
	}
	return stats, nil
}

func bucket(count, total int) BucketStat {
	if total == 0 {
		return BucketStat{}
	}
	pct := math.Round(float64(count)/float64(total)*100*100) / 100
	return BucketStat{Count: count, Percentage: pct}
}
