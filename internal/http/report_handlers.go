package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"conjuntos-api/internal/domain"
	"conjuntos-api/internal/service"

	"go.uber.org/zap"
)

// ReportHandler serves issue-report routes.
type ReportHandler struct {
	reports service.ReportService
	logger  *zap.Logger
}

func NewReportHandler(reports service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reports")
	rest = strings.TrimPrefix(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.List(w, r)
	case rest == "" && r.Method == http.MethodPost:
		h.Create(w, r)
	case rest == "statistics" && r.Method == http.MethodGet:
		h.Statistics(w, r)
	case rest == "statistics/export" && r.Method == http.MethodGet:
		h.StatisticsExport(w, r)
	case strings.HasSuffix(rest, "/photos") && r.Method == http.MethodPost:
		h.AddPhoto(w, r, strings.TrimSuffix(rest, "/photos"))
	case strings.HasSuffix(rest, "/comments") && r.Method == http.MethodPost:
		h.AddComment(w, r, strings.TrimSuffix(rest, "/comments"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.Get(w, r, rest)
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.Update(w, r, rest)
	default:
		writeError(w, http.StatusNotFound, "route not found", nil)
	}
}

// List returns reports newest first, scoped by role: super admins see the
// whole platform, everyone else their own conjunto. ?mine=true narrows to
// reports authored by the caller.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	if r.URL.Query().Get("mine") == "true" {
		items, err := h.reports.ListByAuthor(r.Context(), p.User.ID)
		if err != nil {
			h.logger.Error("Failed to list own reports", zap.Error(err))
			writeServiceError(w, err)
			return
		}
		writeList(w, items)
		return
	}

	if p.User.Role == domain.RoleSuperAdmin {
		items, err := h.reports.ListAll(r.Context())
		if err != nil {
			h.logger.Error("Failed to list reports", zap.Error(err))
			writeServiceError(w, err)
			return
		}
		writeList(w, items)
		return
	}

	if p.User.ConjuntoID == nil {
		writeList(w, []*service.ReportWithPreview{})
		return
	}
	items, err := h.reports.ListByConjunto(r.Context(), *p.User.ConjuntoID)
	if err != nil {
		h.logger.Error("Failed to list conjunto reports", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	for _, item := range items {
		redactAnonymousAuthor(&item.Report, p.User)
	}
	writeList(w, items)
}

// redactAnonymousAuthor blanks the author id of anonymous reports for
// callers who are neither admin-tier nor the author. The author is always
// stored; anonymity is a display concern.
func redactAnonymousAuthor(rep *domain.Report, caller *domain.User) {
	if rep.IsAnonymous && !caller.Role.AdminTier() && caller.ID != rep.AuthorUserID {
		rep.AuthorUserID = ""
	}
}

// Create files a report in the caller's conjunto. The conjunto and author
// always come from the principal, never from the body.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.ConjuntoID == nil {
		writeError(w, http.StatusBadRequest, "you must join a conjunto before filing reports", nil)
		return
	}

	var body struct {
		Title       string                `json:"title"`
		Description string                `json:"description"`
		Category    domain.ReportCategory `json:"category"`
		Location    string                `json:"location"`
		IsAnonymous bool                  `json:"is_anonymous"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rep, err := h.reports.Create(r.Context(), service.CreateReportRequest{
		ConjuntoID:   *p.User.ConjuntoID,
		AuthorUserID: p.User.ID,
		Title:        body.Title,
		Description:  body.Description,
		Category:     body.Category,
		Location:     body.Location,
		IsAnonymous:  body.IsAnonymous,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, rep)
}

func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	includeInternal := p.User.Role.AdminTier()
	detail, err := h.reports.GetDetail(r.Context(), id, includeInternal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if p.User.Role != domain.RoleSuperAdmin && !p.User.BelongsTo(detail.ConjuntoID) {
		h.denied(p, r, "read report")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}
	redactAnonymousAuthor(&detail.Report, p.User)
	writeData(w, http.StatusOK, detail)
}

// Update patches a report. Admin-tier only; admins are limited to their
// own conjunto.
func (h *ReportHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if !p.User.Role.AdminTier() {
		h.denied(p, r, "update report")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	rep, err := h.reports.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if p.User.Role != domain.RoleSuperAdmin && !p.User.BelongsTo(rep.ConjuntoID) {
		h.denied(p, r, "update report")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	var req service.UpdateReportRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	updated, err := h.reports.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated)
}

// AddPhoto attaches an already-uploaded image reference to a report. The
// upload pipeline is external; the API stores only the id and URL.
func (h *ReportHandler) AddPhoto(w http.ResponseWriter, r *http.Request, reportID string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	rep, err := h.reports.Get(r.Context(), reportID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	allowed := p.User.ID == rep.AuthorUserID ||
		p.User.Role == domain.RoleSuperAdmin ||
		(p.User.Role == domain.RoleAdmin && p.User.BelongsTo(rep.ConjuntoID))
	if !allowed {
		h.denied(p, r, "add report photo")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	var body struct {
		ExternalImageID string `json:"external_image_id"`
		URL             string `json:"url"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	photo, err := h.reports.AddPhoto(r.Context(), reportID, body.ExternalImageID, body.URL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, photo)
}

// AddComment posts a comment on a report in the caller's conjunto. The
// is_internal flag is honored only for admin-tier callers.
func (h *ReportHandler) AddComment(w http.ResponseWriter, r *http.Request, reportID string) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}

	rep, err := h.reports.Get(r.Context(), reportID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if p.User.Role != domain.RoleSuperAdmin && !p.User.BelongsTo(rep.ConjuntoID) {
		h.denied(p, r, "comment on report")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	var body struct {
		Body       string `json:"body"`
		IsInternal bool   `json:"is_internal"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	internal := body.IsInternal && p.User.Role.AdminTier()

	comment, err := h.reports.AddComment(r.Context(), reportID, p.User.ID, body.Body, internal)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, comment)
}

func (h *ReportHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "read statistics")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	stats, err := h.reports.Statistics(r.Context())
	if err != nil {
		h.logger.Error("Failed to build statistics", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// StatisticsExport streams the statistics as an .xlsx download.
func (h *ReportHandler) StatisticsExport(w http.ResponseWriter, r *http.Request) {
	p, ok := requireUser(w, r, h.logger)
	if !ok {
		return
	}
	if p.User.Role != domain.RoleSuperAdmin {
		h.denied(p, r, "export statistics")
		writeError(w, http.StatusForbidden, "insufficient permissions", nil)
		return
	}

	stats, err := h.reports.Statistics(r.Context())
	if err != nil {
		h.logger.Error("Failed to build statistics", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	data, err := service.BuildStatisticsWorkbook(stats)
	if err != nil {
		h.logger.Error("Failed to build statistics workbook", zap.Error(err))
		writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("report-statistics-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ReportHandler) denied(p *Principal, r *http.Request, action string) {
	h.logger.Warn("Authorization denied",
		zap.String("action", action),
		zap.String("user_id", p.User.ID),
		zap.String("role", string(p.User.Role)),
		zap.String("path", r.URL.Path),
	)
}
