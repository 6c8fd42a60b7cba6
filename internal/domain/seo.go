package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
)

const (
	// MaxMetaTitleLength caps stored meta titles.
	MaxMetaTitleLength = 60
	// MaxMetaDescriptionLength caps stored meta descriptions.
	MaxMetaDescriptionLength = 160
	// MaxKeywordLength caps each stored keyword.
	MaxKeywordLength = 50
	// MaxAuditScore is the score of a record with no audit findings.
	MaxAuditScore = 100
)

// ErrSEOMetadataInvalid is wrapped by SEOMetadata.Validate failures.
var ErrSEOMetadataInvalid = errors.New("seo metadata: invalid record")

// SEOPageType classifies the storefront page a metadata record describes.
type SEOPageType string

const (
	SEOPageTypeHomepage SEOPageType = "homepage"
	SEOPageTypeCategory SEOPageType = "category"
	SEOPageTypeProduct  SEOPageType = "product"
	SEOPageTypeBlog     SEOPageType = "blog"
	SEOPageTypeAbout    SEOPageType = "about"
	SEOPageTypeContact  SEOPageType = "contact"
	SEOPageTypeSearch   SEOPageType = "search"
	SEOPageTypeCheckout SEOPageType = "checkout"
	SEOPageTypeAccount  SEOPageType = "account"
	SEOPageTypeCustom   SEOPageType = "custom"
)

// SEOPageTypes lists every recognised page type in display order.
var SEOPageTypes = []SEOPageType{
	SEOPageTypeHomepage,
	SEOPageTypeCategory,
	SEOPageTypeProduct,
	SEOPageTypeBlog,
	SEOPageTypeAbout,
	SEOPageTypeContact,
	SEOPageTypeSearch,
	SEOPageTypeCheckout,
	SEOPageTypeAccount,
	SEOPageTypeCustom,
}

// Valid reports whether the page type is recognised.
func (t SEOPageType) Valid() bool {
	for _, known := range SEOPageTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SEOStatus tracks the editorial state of a metadata record.
type SEOStatus string

const (
	SEOStatusDraft       SEOStatus = "draft"
	SEOStatusPublished   SEOStatus = "published"
	SEOStatusOptimized   SEOStatus = "optimized"
	SEOStatusNeedsReview SEOStatus = "needs_review"
)

// SEOStatuses lists every recognised status.
var SEOStatuses = []SEOStatus{SEOStatusDraft, SEOStatusPublished, SEOStatusOptimized, SEOStatusNeedsReview}

// Valid reports whether the status is recognised.
func (s SEOStatus) Valid() bool {
	for _, known := range SEOStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// SEOPriority is the optional crawl priority assigned to a record. The zero value means unset.
type SEOPriority string

const (
	SEOPriorityLow      SEOPriority = "low"
	SEOPriorityMedium   SEOPriority = "medium"
	SEOPriorityHigh     SEOPriority = "high"
	SEOPriorityCritical SEOPriority = "critical"
)

// Valid reports whether the priority is unset or recognised.
func (p SEOPriority) Valid() bool {
	switch p {
	case "", SEOPriorityLow, SEOPriorityMedium, SEOPriorityHigh, SEOPriorityCritical:
		return true
	}
	return false
}

// SEOSeverity grades an audit issue.
type SEOSeverity string

const (
	SEOSeverityLow      SEOSeverity = "low"
	SEOSeverityMedium   SEOSeverity = "medium"
	SEOSeverityHigh     SEOSeverity = "high"
	SEOSeverityCritical SEOSeverity = "critical"
)

// SEOIssueType enumerates audit finding categories.
type SEOIssueType string

const (
	SEOIssueMissingMetaTitle       SEOIssueType = "missing_meta_title"
	SEOIssueMissingMetaDescription SEOIssueType = "missing_meta_description"
	SEOIssueTitleTooLong           SEOIssueType = "title_too_long"
	SEOIssueTitleTooShort          SEOIssueType = "title_too_short"
	SEOIssueDescriptionTooLong     SEOIssueType = "description_too_long"
	SEOIssueDescriptionTooShort    SEOIssueType = "description_too_short"
	SEOIssueMissingAltText         SEOIssueType = "missing_alt_text"
	SEOIssueMissingStructuredData  SEOIssueType = "missing_structured_data"
	SEOIssueDuplicateContent       SEOIssueType = "duplicate_content"
	SEOIssueBrokenLinks            SEOIssueType = "broken_links"
	SEOIssueSlowLoading            SEOIssueType = "slow_loading"
	SEOIssueMissingH1              SEOIssueType = "missing_h1"
	SEOIssueMultipleH1             SEOIssueType = "multiple_h1"
	SEOIssueMissingCanonical       SEOIssueType = "missing_canonical"
	SEOIssuePoorMobile             SEOIssueType = "poor_mobile"
)

// StructuredDataType is the schema.org type tag carried by a structured data entry.
type StructuredDataType string

const (
	StructuredDataProduct        StructuredDataType = "Product"
	StructuredDataOrganization   StructuredDataType = "Organization"
	StructuredDataBreadcrumbList StructuredDataType = "BreadcrumbList"
	StructuredDataWebSite        StructuredDataType = "WebSite"
	StructuredDataArticle        StructuredDataType = "Article"
	StructuredDataFAQPage        StructuredDataType = "FAQPage"
	StructuredDataReview         StructuredDataType = "Review"
	StructuredDataLocalBusiness  StructuredDataType = "LocalBusiness"
	StructuredDataEvent          StructuredDataType = "Event"
)

// Valid reports whether the structured data type is recognised.
func (t StructuredDataType) Valid() bool {
	switch t {
	case StructuredDataProduct, StructuredDataOrganization, StructuredDataBreadcrumbList,
		StructuredDataWebSite, StructuredDataArticle, StructuredDataFAQPage,
		StructuredDataReview, StructuredDataLocalBusiness, StructuredDataEvent:
		return true
	}
	return false
}

// StructuredData is one schema.org record attached to a page.
type StructuredData struct {
	Type StructuredDataType
	Data map[string]any
}

// SEORobots holds the robots meta directives of a page.
type SEORobots struct {
	Index        bool
	Follow       bool
	NoArchive    bool
	NoSnippet    bool
	NoImageIndex bool
}

// Directive renders the robots meta tag content, e.g. "index, follow".
func (r SEORobots) Directive() string {
	parts := make([]string, 0, 5)
	if r.Index {
		parts = append(parts, "index")
	} else {
		parts = append(parts, "noindex")
	}
	if r.Follow {
		parts = append(parts, "follow")
	} else {
		parts = append(parts, "nofollow")
	}
	if r.NoArchive {
		parts = append(parts, "noarchive")
	}
	if r.NoSnippet {
		parts = append(parts, "nosnippet")
	}
	if r.NoImageIndex {
		parts = append(parts, "noimageindex")
	}
	return strings.Join(parts, ", ")
}

// SEOHreflang maps an alternate language version of the page.
type SEOHreflang struct {
	Lang string
	URL  string
}

// SEOOpenGraphProduct carries product-specific Open Graph properties.
type SEOOpenGraphProduct struct {
	Price        float64
	Currency     string
	Availability string
	Condition    string
	Brand        string
	Category     string
}

// SEOOpenGraph is the Open Graph block embedded in a metadata record.
type SEOOpenGraph struct {
	Title       string
	Description string
	Image       string
	ImageAlt    string
	URL         string
	Type        string
	SiteName    string
	Locale      string
	ProductData *SEOOpenGraphProduct
}

// SEOTwitterCard is the Twitter Card block embedded in a metadata record.
type SEOTwitterCard struct {
	Card        string
	Site        string
	Creator     string
	Title       string
	Description string
	Image       string
	ImageAlt    string
}

// SEOHeading records a heading found on the page.
type SEOHeading struct {
	Level int
	Text  string
}

// SEOImage records an image found on the page.
type SEOImage struct {
	URL     string
	Alt     string
	Title   string
	Caption string
}

// SEOLink records an internal or external link found on the page.
type SEOLink struct {
	URL      string
	Anchor   string
	NoFollow bool
}

// SEOContentAnalysis stores content metrics supplied by editors or external tooling.
type SEOContentAnalysis struct {
	WordCount      int
	ReadingTime    int
	KeywordDensity map[string]float64
	ContentScore   int
}

// SEOPerformance stores page performance measurements.
type SEOPerformance struct {
	LargestContentfulPaint float64
	FirstInputDelay        float64
	CumulativeLayoutShift  float64
	PageSpeedScore         int
	MobileOptimized        bool
}

// SEOAnalytics stores tracking identifiers for the page.
type SEOAnalytics struct {
	GoogleAnalyticsID  string
	GoogleTagManagerID string
	FacebookPixelID    string
}

// SEOAuditIssue is a single finding produced by the audit engine.
type SEOAuditIssue struct {
	Type           SEOIssueType
	Severity       SEOSeverity
	Description    string
	Recommendation string
	Fixed          bool
}

// SEOAudit is the persisted result of the most recent audit.
type SEOAudit struct {
	LastAuditDate *time.Time
	Issues        []SEOAuditIssue
	Score         int
}

// SEOAutoGenerate flags which derived fields are regenerated from entity data on upsert.
type SEOAutoGenerate struct {
	MetaTitle       bool
	MetaDescription bool
	Keywords        bool
	StructuredData  bool
}

// DefaultSEOAutoGenerate enables regeneration for every derived field.
func DefaultSEOAutoGenerate() SEOAutoGenerate {
	return SEOAutoGenerate{MetaTitle: true, MetaDescription: true, Keywords: true, StructuredData: true}
}

// SEOMetadata is the per-page metadata document. PageURL and Slug are each unique.
type SEOMetadata struct {
	ID              string
	PageURL         string
	Slug            string
	PageType        SEOPageType
	EntityType      string
	EntityID        string
	MetaTitle       string
	MetaDescription string
	Keywords        []string
	CanonicalURL    string
	Robots          SEORobots
	Language        string
	Region          string
	Hreflang        []SEOHreflang
	OpenGraph       SEOOpenGraph
	TwitterCard     SEOTwitterCard
	StructuredData  []StructuredData
	Headings        []SEOHeading
	Images          []SEOImage
	InternalLinks   []SEOLink
	ExternalLinks   []SEOLink
	ContentAnalysis SEOContentAnalysis
	Performance     SEOPerformance
	Status          SEOStatus
	Priority        SEOPriority
	Analytics       SEOAnalytics
	Audit           SEOAudit
	RelatedPages    []string
	CreatedBy       string
	LastModifiedBy  string
	AutoGenerate    SEOAutoGenerate
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasStructuredData reports whether at least one structured data entry is attached.
func (m SEOMetadata) HasStructuredData() bool {
	return len(m.StructuredData) > 0
}

// Validate enforces the write-time schema constraints of a metadata record.
func (m SEOMetadata) Validate() error {
	var problems []string

	if strings.TrimSpace(m.PageURL) == "" {
		problems = append(problems, "pageUrl is required")
	}
	if strings.TrimSpace(m.Slug) == "" {
		problems = append(problems, "slug is required")
	}
	if !m.PageType.Valid() {
		problems = append(problems, fmt.Sprintf("pageType %q is not supported", m.PageType))
	}
	if n := utf8.RuneCountInString(m.MetaTitle); n > MaxMetaTitleLength {
		problems = append(problems, fmt.Sprintf("metaTitle exceeds %d characters (%d)", MaxMetaTitleLength, n))
	}
	if n := utf8.RuneCountInString(m.MetaDescription); n > MaxMetaDescriptionLength {
		problems = append(problems, fmt.Sprintf("metaDescription exceeds %d characters (%d)", MaxMetaDescriptionLength, n))
	}
	for _, keyword := range m.Keywords {
		if utf8.RuneCountInString(keyword) > MaxKeywordLength {
			problems = append(problems, fmt.Sprintf("keyword %q exceeds %d characters", keyword, MaxKeywordLength))
		}
	}
	if m.Status != "" && !m.Status.Valid() {
		problems = append(problems, fmt.Sprintf("status %q is not supported", m.Status))
	}
	if !m.Priority.Valid() {
		problems = append(problems, fmt.Sprintf("priority %q is not supported", m.Priority))
	}
	if m.Audit.Score < 0 || m.Audit.Score > MaxAuditScore {
		problems = append(problems, "audit score must be between 0 and 100")
	}
	for _, entry := range m.StructuredData {
		if !entry.Type.Valid() {
			problems = append(problems, fmt.Sprintf("structured data type %q is not supported", entry.Type))
		}
	}
	if lang := strings.TrimSpace(m.Language); lang != "" {
		if _, err := language.Parse(lang); err != nil {
			problems = append(problems, fmt.Sprintf("language %q is not a valid BCP 47 tag", lang))
		}
	}
	if region := strings.TrimSpace(m.Region); region != "" {
		if _, err := language.ParseRegion(region); err != nil {
			problems = append(problems, fmt.Sprintf("region %q is not a valid region code", region))
		}
	}
	for _, alt := range m.Hreflang {
		if strings.EqualFold(alt.Lang, "x-default") {
			continue
		}
		if _, err := language.Parse(alt.Lang); err != nil {
			problems = append(problems, fmt.Sprintf("hreflang %q is not a valid BCP 47 tag", alt.Lang))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrSEOMetadataInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ClampAuditScore bounds a score to [0, MaxAuditScore].
func ClampAuditScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > MaxAuditScore:
		return MaxAuditScore
	}
	return score
}
