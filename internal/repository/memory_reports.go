package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"conjuntos-api/internal/domain"
)

// MemoryReportsRepository is the in-memory twin of the postgres implementation.
type MemoryReportsRepository struct {
	mu       sync.RWMutex
	reports  map[string]domain.Report
	photos   map[string][]domain.ReportPhoto   // reportID -> photos
	comments map[string][]domain.ReportComment // reportID -> comments
}

func NewMemoryReportsRepository() *MemoryReportsRepository {
	return &MemoryReportsRepository{
		reports:  map[string]domain.Report{},
		photos:   map[string][]domain.ReportPhoto{},
		comments: map[string][]domain.ReportComment{},
	}
}

var _ ReportsRepository = (*MemoryReportsRepository)(nil)

func (r *MemoryReportsRepository) Create(_ context.Context, rep *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.ID] = *rep
	return nil
}

func (r *MemoryReportsRepository) Get(_ context.Context, id string) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rep, nil
}

func (r *MemoryReportsRepository) ListByConjunto(_ context.Context, conjuntoID string) ([]*domain.Report, error) {
	return r.list(func(rep domain.Report) bool { return rep.ConjuntoID == conjuntoID })
}

func (r *MemoryReportsRepository) ListByAuthor(_ context.Context, authorUserID string) ([]*domain.Report, error) {
	return r.list(func(rep domain.Report) bool { return rep.AuthorUserID == authorUserID })
}

func (r *MemoryReportsRepository) ListAll(_ context.Context) ([]*domain.Report, error) {
	return r.list(func(domain.Report) bool { return true })
}

func (r *MemoryReportsRepository) list(match func(domain.Report) bool) ([]*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.Report{}
	for _, rep := range r.reports {
		if match(rep) {
			rr := rep
			out = append(out, &rr)
		}
	}
	// newest first
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryReportsRepository) Update(_ context.Context, id string, patch ReportPatch) (*domain.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Title != nil {
		rep.Title = *patch.Title
	}
	if patch.Description != nil {
		rep.Description = *patch.Description
	}
	if patch.Category != nil {
		rep.Category = *patch.Category
	}
	if patch.Location != nil {
		rep.Location = *patch.Location
	}
	if patch.Status != nil {
		rep.Status = *patch.Status
	}
	if patch.IsAnonymous != nil {
		rep.IsAnonymous = *patch.IsAnonymous
	}
	now := time.Now()
	rep.UpdatedAt = &now
	r.reports[id] = rep
	return &rep, nil
}

func (r *MemoryReportsRepository) AddPhoto(_ context.Context, p *domain.ReportPhoto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos[p.ReportID] = append(r.photos[p.ReportID], *p)
	return nil
}

func (r *MemoryReportsRepository) ListPhotos(_ context.Context, reportID string) ([]*domain.ReportPhoto, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	photos := r.photos[reportID]
	out := make([]*domain.ReportPhoto, 0, len(photos))
	for _, p := range photos {
		pp := p
		out = append(out, &pp)
	}
	// oldest first
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryReportsRepository) AddComment(_ context.Context, c *domain.ReportComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments[c.ReportID] = append(r.comments[c.ReportID], *c)
	return nil
}

func (r *MemoryReportsRepository) ListComments(_ context.Context, reportID string, includeInternal bool) ([]*domain.ReportComment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.ReportComment{}
	for _, c := range r.comments[reportID] {
		if c.IsInternal && !includeInternal {
			continue
		}
		cc := c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
