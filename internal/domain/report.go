package domain

import "time"

// ReportStatus is the triage lifecycle of a report.
type ReportStatus string

const (
	StatusOpen       ReportStatus = "open"
	StatusInProgress ReportStatus = "in_progress"
	StatusResolved   ReportStatus = "resolved"
	StatusClosed     ReportStatus = "closed"
)

// ReportStatuses lists every status in lifecycle order.
var ReportStatuses = []ReportStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ReportCategory classifies what the report is about.
type ReportCategory string

const (
	CategoryInfrastructure ReportCategory = "infrastructure"
	CategorySecurity       ReportCategory = "security"
	CategoryCleaning       ReportCategory = "cleaning"
	CategoryCommunity      ReportCategory = "community"
	CategoryOther          ReportCategory = "other"
)

// ReportCategories lists every category.
var ReportCategories = []ReportCategory{
	CategoryInfrastructure,
	CategorySecurity,
	CategoryCleaning,
	CategoryCommunity,
	CategoryOther,
}

func (c ReportCategory) Valid() bool {
	switch c {
	case CategoryInfrastructure, CategorySecurity, CategoryCleaning, CategoryCommunity, CategoryOther:
		return true
	}
	return false
}

// Report is a resident-filed issue. ConjuntoID is immutable after creation
// and always equals the author's conjunto at creation time. IsAnonymous only
// hides the author in role-appropriate payloads; the author id is always
// stored.
type Report struct {
	ID           string         `json:"id"`
	ConjuntoID   string         `json:"conjunto_id"`
	AuthorUserID string         `json:"author_user_id,omitempty"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Category     ReportCategory `json:"category"`
	Location     string         `json:"location"`
	Status       ReportStatus   `json:"status"`
	IsAnonymous  bool           `json:"is_anonymous"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    *time.Time     `json:"updated_at,omitempty"`
}

// ReportPhoto references an image hosted on the external CDN.
type ReportPhoto struct {
	ID              string    `json:"id"`
	ReportID        string    `json:"report_id"`
	ExternalImageID string    `json:"external_image_id"`
	URL             string    `json:"url"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReportComment is a comment on a report. Internal comments are visible
// only to admin-tier roles.
type ReportComment struct {
	ID           string    `json:"id"`
	ReportID     string    `json:"report_id"`
	AuthorUserID string    `json:"author_user_id"`
	Body         string    `json:"body"`
	IsInternal   bool      `json:"is_internal"`
	CreatedAt    time.Time `json:"created_at"`
}
