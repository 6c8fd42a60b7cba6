package repositories

import (
	"context"
	"time"

	domain "github.com/storefront/seo-api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// SEORepository persists per-page SEO metadata documents keyed by page URL.
//
// Two update modes exist. Replace writes the supplied record wholesale, so any field absent from it is
// dropped from storage. Merge applies only the non-nil fields of a patch and leaves everything else intact.
// UpsertByPageURL is a replace keyed by page URL that preserves insert-only fields (ID, CreatedAt,
// CreatedBy) of an existing document.
type SEORepository interface {
	UpsertByPageURL(ctx context.Context, record domain.SEOMetadata) (SEOUpsertResult, error)
	Replace(ctx context.Context, record domain.SEOMetadata) (domain.SEOMetadata, error)
	Merge(ctx context.Context, id string, patch SEOMetadataPatch) (domain.SEOMetadata, error)
	FindByID(ctx context.Context, id string) (domain.SEOMetadata, error)
	FindByPageURL(ctx context.Context, pageURL string) (domain.SEOMetadata, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter SEOListFilter) (domain.OffsetPage[domain.SEOMetadata], error)
	ListPublished(ctx context.Context) ([]domain.SEOMetadata, error)
	ListNeedingAttention(ctx context.Context, scoreThreshold int, limit int) ([]domain.SEOMetadata, error)
	UpdateAudit(ctx context.Context, id string, audit domain.SEOAudit) error
	Overview(ctx context.Context) (SEOOverview, error)
	CountByPageType(ctx context.Context) ([]SEOPageTypeStats, error)
	IssueFrequency(ctx context.Context) ([]SEOIssueFrequency, error)
}

// SEOUpsertResult reports the stored record and whether the upsert inserted a new document.
type SEOUpsertResult struct {
	Record  domain.SEOMetadata
	Created bool
}

// SEOMetadataPatch carries the fields to merge into an existing record. Nil fields are left untouched.
type SEOMetadataPatch struct {
	Slug            *string
	PageType        *domain.SEOPageType
	MetaTitle       *string
	MetaDescription *string
	Keywords        *[]string
	CanonicalURL    *string
	Robots          *domain.SEORobots
	Language        *string
	Region          *string
	Hreflang        *[]domain.SEOHreflang
	OpenGraph       *domain.SEOOpenGraph
	TwitterCard     *domain.SEOTwitterCard
	StructuredData  *[]domain.StructuredData
	Headings        *[]domain.SEOHeading
	Images          *[]domain.SEOImage
	InternalLinks   *[]domain.SEOLink
	ExternalLinks   *[]domain.SEOLink
	ContentAnalysis *domain.SEOContentAnalysis
	Performance     *domain.SEOPerformance
	Status          *domain.SEOStatus
	Priority        *domain.SEOPriority
	Analytics       *domain.SEOAnalytics
	RelatedPages    *[]string
	AutoGenerate    *domain.SEOAutoGenerate
	LastModifiedBy  string
	UpdatedAt       time.Time
}

// Apply returns a copy of record with the patch fields merged in.
func (p SEOMetadataPatch) Apply(record domain.SEOMetadata) domain.SEOMetadata {
	if p.Slug != nil {
		record.Slug = *p.Slug
	}
	if p.PageType != nil {
		record.PageType = *p.PageType
	}
	if p.MetaTitle != nil {
		record.MetaTitle = *p.MetaTitle
	}
	if p.MetaDescription != nil {
		record.MetaDescription = *p.MetaDescription
	}
	if p.Keywords != nil {
		record.Keywords = *p.Keywords
	}
	if p.CanonicalURL != nil {
		record.CanonicalURL = *p.CanonicalURL
	}
	if p.Robots != nil {
		record.Robots = *p.Robots
	}
	if p.Language != nil {
		record.Language = *p.Language
	}
	if p.Region != nil {
		record.Region = *p.Region
	}
	if p.Hreflang != nil {
		record.Hreflang = *p.Hreflang
	}
	if p.OpenGraph != nil {
		record.OpenGraph = *p.OpenGraph
	}
	if p.TwitterCard != nil {
		record.TwitterCard = *p.TwitterCard
	}
	if p.StructuredData != nil {
		record.StructuredData = *p.StructuredData
	}
	if p.Headings != nil {
		record.Headings = *p.Headings
	}
	if p.Images != nil {
		record.Images = *p.Images
	}
	if p.InternalLinks != nil {
		record.InternalLinks = *p.InternalLinks
	}
	if p.ExternalLinks != nil {
		record.ExternalLinks = *p.ExternalLinks
	}
	if p.ContentAnalysis != nil {
		record.ContentAnalysis = *p.ContentAnalysis
	}
	if p.Performance != nil {
		record.Performance = *p.Performance
	}
	if p.Status != nil {
		record.Status = *p.Status
	}
	if p.Priority != nil {
		record.Priority = *p.Priority
	}
	if p.Analytics != nil {
		record.Analytics = *p.Analytics
	}
	if p.RelatedPages != nil {
		record.RelatedPages = *p.RelatedPages
	}
	if p.AutoGenerate != nil {
		record.AutoGenerate = *p.AutoGenerate
	}
	if p.LastModifiedBy != "" {
		record.LastModifiedBy = p.LastModifiedBy
	}
	if !p.UpdatedAt.IsZero() {
		record.UpdatedAt = p.UpdatedAt
	}
	return record
}

// SEOSortField enumerates the fields list queries may order by.
type SEOSortField string

const (
	SEOSortCreatedAt  SEOSortField = "createdAt"
	SEOSortUpdatedAt  SEOSortField = "updatedAt"
	SEOSortPageURL    SEOSortField = "pageUrl"
	SEOSortMetaTitle  SEOSortField = "metaTitle"
	SEOSortAuditScore SEOSortField = "audit.score"
	SEOSortPriority   SEOSortField = "priority"
)

// SEOListFilter narrows and orders metadata listings.
type SEOListFilter struct {
	PageType  *domain.SEOPageType
	Status    *domain.SEOStatus
	Priority  *domain.SEOPriority
	Search    string
	SortBy    SEOSortField
	SortOrder domain.SortOrder
	Page      int
	Limit     int
}

// SEOOverview summarises the metadata collection.
type SEOOverview struct {
	Total              int
	ByStatus           map[domain.SEOStatus]int
	AverageScore       float64
	TotalIssues        int
	WithStructuredData int
}

// SEOPageTypeStats aggregates records of a single page type.
type SEOPageTypeStats struct {
	PageType     domain.SEOPageType
	Count        int
	AverageScore float64
}

// SEOIssueFrequency counts occurrences of an audit issue type across all records.
type SEOIssueFrequency struct {
	Type  domain.SEOIssueType
	Count int
}

// ProductRepository reads catalog products used as SEO entity data.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
}

// CategoryRepository reads storefront categories used as SEO entity data.
type CategoryRepository interface {
	FindByID(ctx context.Context, categoryID string) (domain.Category, error)
}

// HealthRepository gathers dependency health for the readiness endpoint.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
