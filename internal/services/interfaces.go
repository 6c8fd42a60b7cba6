package services

import (
	"context"
	"time"

	domain "github.com/storefront/seo-api/internal/domain"
	"github.com/storefront/seo-api/internal/repositories"
)

type (
	SystemHealthReport = domain.SystemHealthReport
	SEOListFilter      = repositories.SEOListFilter
	SEOMetadataPatch   = repositories.SEOMetadataPatch
)

// SEOService owns the metadata pipeline: synthesis, persistence, audit, sitemap and bulk generation.
type SEOService interface {
	CreateOrUpdate(ctx context.Context, cmd UpsertSEOCommand) (SEOUpsertResult, error)
	GetByPageURL(ctx context.Context, pageURL string) (domain.SEOMetadata, error)
	List(ctx context.Context, filter SEOListFilter) (domain.OffsetPage[domain.SEOMetadata], error)
	Update(ctx context.Context, cmd UpdateSEOCommand) (domain.SEOMetadata, error)
	Delete(ctx context.Context, cmd DeleteSEOCommand) error
	Sitemap(ctx context.Context) ([]SitemapEntry, error)
	SitemapXML(ctx context.Context) ([]byte, error)
	RobotsTxt(ctx context.Context) string
	Audit(ctx context.Context, cmd AuditSEOCommand) (SEOAuditReport, error)
	BulkUpdate(ctx context.Context, cmd BulkSEOCommand) (BulkSEOResult, error)
	Overview(ctx context.Context) (SEOAnalyticsOverview, error)
	Recommendations(ctx context.Context) (SEORecommendationReport, error)
	StructuredData(ctx context.Context, entityType string, entityID string) (domain.StructuredData, error)
	PublishSitemap(ctx context.Context, cmd PublishSitemapCommand) (SitemapPublication, error)
}

// SEOEventPublisher forwards metadata lifecycle events to downstream consumers.
type SEOEventPublisher interface {
	PublishSEOEvent(ctx context.Context, event SEOEvent) error
}

// SitemapStore persists rendered sitemap artefacts.
type SitemapStore interface {
	WriteObject(ctx context.Context, object string, contentType string, body []byte) (StoredObject, error)
}

// SystemService reports runtime health for the readiness endpoint.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// UpsertSEOCommand requests create-or-update of the record for PageURL. EntityID selects the product or
// category the metadata is derived from. CustomData overrides entity fields (name, title, description,
// brand, category, image...) and may carry explicit metaTitle, metaDescription, keywords and slug values.
type UpsertSEOCommand struct {
	PageURL    string
	PageType   domain.SEOPageType
	EntityID   string
	CustomData map[string]any
	Status     domain.SEOStatus
	Priority   domain.SEOPriority
	ActorID    string
}

// SEOUpsertResult carries the stored record and whether it was newly created.
type SEOUpsertResult struct {
	Record  domain.SEOMetadata
	Created bool
}

// SEOUpdateMode selects between whole-document replacement and field-wise merge.
type SEOUpdateMode string

const (
	SEOUpdateReplace SEOUpdateMode = "replace"
	SEOUpdateMerge   SEOUpdateMode = "merge"
)

// UpdateSEOCommand updates the record with ID. Record is used in replace mode, Patch in merge mode.
type UpdateSEOCommand struct {
	ID      string
	Mode    SEOUpdateMode
	Record  domain.SEOMetadata
	Patch   SEOMetadataPatch
	ActorID string
}

type DeleteSEOCommand struct {
	ID      string
	ActorID string
}

type AuditSEOCommand struct {
	PageURL string
	ActorID string
}

// SEOAuditReport is the audit outcome. Recommendations are advisory and never persisted.
type SEOAuditReport struct {
	RecordID        string
	PageURL         string
	Score           int
	Issues          []domain.SEOAuditIssue
	Recommendations []string
	AuditedAt       time.Time
}

// BulkSEOCommand regenerates product page metadata. Empty ProductIDs means every product.
type BulkSEOCommand struct {
	ProductIDs []string
	ActorID    string
}

// BulkSEOItemResult reports the outcome for one product.
type BulkSEOItemResult struct {
	ProductID string
	Success   bool
	PageURL   string
	SEOID     string
	Created   bool
	Error     string
}

type BulkSEOSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// BulkSEOResult lists per-product outcomes in request order.
type BulkSEOResult struct {
	Results []BulkSEOItemResult
	Summary BulkSEOSummary
}

// SitemapEntry is one <url> of the sitemap.
type SitemapEntry struct {
	Loc        string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}

// SEOAnalyticsOverview aggregates the metadata collection for dashboards.
type SEOAnalyticsOverview struct {
	Total              int
	ByStatus           map[domain.SEOStatus]int
	AverageScore       float64
	TotalIssues        int
	WithStructuredData int
	ByPageType         []repositories.SEOPageTypeStats
}

// SEORecommendationReport lists the pages that need editorial attention and the most common issues.
type SEORecommendationReport struct {
	Threshold    int
	Pages        []SEOPageAttention
	CommonIssues []repositories.SEOIssueFrequency
}

// SEOPageAttention summarises why a page needs attention.
type SEOPageAttention struct {
	ID         string
	PageURL    string
	PageType   domain.SEOPageType
	Status     domain.SEOStatus
	Score      int
	IssueCount int
	Reasons    []string
}

type PublishSitemapCommand struct {
	ActorID string
}

// StoredObject identifies an object written to the exports bucket.
type StoredObject struct {
	Bucket     string
	Name       string
	Generation int64
	Size       int64
}

// SitemapPublication reports the exported artefacts.
type SitemapPublication struct {
	Sitemap     StoredObject
	Robots      StoredObject
	Entries     int
	PublishedAt time.Time
}

// SEOEventType names a metadata lifecycle event.
type SEOEventType string

const (
	SEOEventUpserted         SEOEventType = "seo.metadata.upserted"
	SEOEventUpdated          SEOEventType = "seo.metadata.updated"
	SEOEventDeleted          SEOEventType = "seo.metadata.deleted"
	SEOEventAudited          SEOEventType = "seo.audit.completed"
	SEOEventBulkCompleted    SEOEventType = "seo.bulk.completed"
	SEOEventSitemapPublished SEOEventType = "seo.sitemap.published"
)

// SEOEvent is the payload published for every metadata change.
type SEOEvent struct {
	Type       SEOEventType      `json:"type"`
	RecordID   string            `json:"recordId,omitempty"`
	PageURL    string            `json:"pageUrl,omitempty"`
	PageType   string            `json:"pageType,omitempty"`
	ActorID    string            `json:"actorId,omitempty"`
	Score      *int              `json:"score,omitempty"`
	Summary    *BulkSEOSummary   `json:"summary,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
