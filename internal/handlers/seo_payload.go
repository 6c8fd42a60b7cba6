package handlers

import (
	"time"

	domain "github.com/storefront/seo-api/internal/domain"
	"github.com/storefront/seo-api/internal/repositories"
	"github.com/storefront/seo-api/internal/services"
)

type robotsPayload struct {
	Index        bool `json:"index"`
	Follow       bool `json:"follow"`
	NoArchive    bool `json:"noarchive"`
	NoSnippet    bool `json:"nosnippet"`
	NoImageIndex bool `json:"noimageindex"`
}

type hreflangPayload struct {
	Lang string `json:"lang"`
	URL  string `json:"url"`
}

type ogProductPayload struct {
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	Availability string  `json:"availability"`
	Condition    string  `json:"condition"`
	Brand        string  `json:"brand,omitempty"`
	Category     string  `json:"category,omitempty"`
}

type openGraphPayload struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Image       string            `json:"image,omitempty"`
	ImageAlt    string            `json:"imageAlt,omitempty"`
	URL         string            `json:"url,omitempty"`
	Type        string            `json:"type"`
	SiteName    string            `json:"siteName,omitempty"`
	Locale      string            `json:"locale,omitempty"`
	ProductData *ogProductPayload `json:"productData,omitempty"`
}

type twitterCardPayload struct {
	Card        string `json:"card"`
	Site        string `json:"site,omitempty"`
	Creator     string `json:"creator,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	ImageAlt    string `json:"imageAlt,omitempty"`
}

type structuredDataPayload struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type headingPayload struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type imagePayload struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Title   string `json:"title,omitempty"`
	Caption string `json:"caption,omitempty"`
}

type linkPayload struct {
	URL      string `json:"url"`
	Anchor   string `json:"anchor,omitempty"`
	NoFollow bool   `json:"nofollow,omitempty"`
}

type contentAnalysisPayload struct {
	WordCount      int                `json:"wordCount"`
	ReadingTime    int                `json:"readingTime"`
	KeywordDensity map[string]float64 `json:"keywordDensity,omitempty"`
	ContentScore   int                `json:"contentScore"`
}

type performancePayload struct {
	LargestContentfulPaint float64 `json:"largestContentfulPaint"`
	FirstInputDelay        float64 `json:"firstInputDelay"`
	CumulativeLayoutShift  float64 `json:"cumulativeLayoutShift"`
	PageSpeedScore         int     `json:"pageSpeedScore"`
	MobileOptimized        bool    `json:"mobileOptimized"`
}

type analyticsPayload struct {
	GoogleAnalyticsID  string `json:"googleAnalyticsId,omitempty"`
	GoogleTagManagerID string `json:"googleTagManagerId,omitempty"`
	FacebookPixelID    string `json:"facebookPixelId,omitempty"`
}

type auditIssuePayload struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
	Fixed          bool   `json:"fixed"`
}

type auditPayload struct {
	LastAuditDate *time.Time          `json:"lastAuditDate,omitempty"`
	Issues        []auditIssuePayload `json:"issues"`
	Score         int                 `json:"score"`
}

type autoGeneratePayload struct {
	MetaTitle       bool `json:"metaTitle"`
	MetaDescription bool `json:"metaDescription"`
	Keywords        bool `json:"keywords"`
	StructuredData  bool `json:"structuredData"`
}

type seoRecordPayload struct {
	ID              string                  `json:"id"`
	PageURL         string                  `json:"pageUrl"`
	Slug            string                  `json:"slug"`
	PageType        string                  `json:"pageType"`
	EntityType      string                  `json:"entityType,omitempty"`
	EntityID        string                  `json:"entityId,omitempty"`
	MetaTitle       string                  `json:"metaTitle"`
	MetaDescription string                  `json:"metaDescription"`
	Keywords        []string                `json:"keywords"`
	CanonicalURL    string                  `json:"canonicalUrl,omitempty"`
	Robots          robotsPayload           `json:"robots"`
	RobotsDirective string                  `json:"robotsDirective,omitempty"`
	Language        string                  `json:"language,omitempty"`
	Region          string                  `json:"region,omitempty"`
	Hreflang        []hreflangPayload       `json:"hreflang,omitempty"`
	OpenGraph       openGraphPayload        `json:"openGraph"`
	TwitterCard     twitterCardPayload      `json:"twitterCard"`
	StructuredData  []structuredDataPayload `json:"structuredData"`
	Headings        []headingPayload        `json:"headings,omitempty"`
	Images          []imagePayload          `json:"images,omitempty"`
	InternalLinks   []linkPayload           `json:"internalLinks,omitempty"`
	ExternalLinks   []linkPayload           `json:"externalLinks,omitempty"`
	ContentAnalysis contentAnalysisPayload  `json:"contentAnalysis"`
	Performance     performancePayload      `json:"performance"`
	Status          string                  `json:"status"`
	Priority        string                  `json:"priority,omitempty"`
	Analytics       analyticsPayload        `json:"analytics"`
	Audit           auditPayload            `json:"audit"`
	RelatedPages    []string                `json:"relatedPages,omitempty"`
	CreatedBy       string                  `json:"createdBy,omitempty"`
	LastModifiedBy  string                  `json:"lastModifiedBy,omitempty"`
	AutoGenerate    autoGeneratePayload     `json:"autoGenerate"`
	CreatedAt       *time.Time              `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time              `json:"updatedAt,omitempty"`
}

// seoPatchPayload is the merge-mode request body; absent fields stay nil and are left untouched.
type seoPatchPayload struct {
	Slug            *string                  `json:"slug"`
	PageType        *string                  `json:"pageType"`
	MetaTitle       *string                  `json:"metaTitle"`
	MetaDescription *string                  `json:"metaDescription"`
	Keywords        *[]string                `json:"keywords"`
	CanonicalURL    *string                  `json:"canonicalUrl"`
	Robots          *robotsPayload           `json:"robots"`
	Language        *string                  `json:"language"`
	Region          *string                  `json:"region"`
	Hreflang        *[]hreflangPayload       `json:"hreflang"`
	OpenGraph       *openGraphPayload        `json:"openGraph"`
	TwitterCard     *twitterCardPayload      `json:"twitterCard"`
	StructuredData  *[]structuredDataPayload `json:"structuredData"`
	Headings        *[]headingPayload        `json:"headings"`
	Images          *[]imagePayload          `json:"images"`
	InternalLinks   *[]linkPayload           `json:"internalLinks"`
	ExternalLinks   *[]linkPayload           `json:"externalLinks"`
	ContentAnalysis *contentAnalysisPayload  `json:"contentAnalysis"`
	Performance     *performancePayload      `json:"performance"`
	Status          *string                  `json:"status"`
	Priority        *string                  `json:"priority"`
	Analytics       *analyticsPayload        `json:"analytics"`
	RelatedPages    *[]string                `json:"relatedPages"`
	AutoGenerate    *autoGeneratePayload     `json:"autoGenerate"`
}

func mapSlice[S, D any](in []S, fn func(S) D) []D {
	if in == nil {
		return nil
	}
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func newSEORecordPayload(m domain.SEOMetadata) seoRecordPayload {
	keywords := m.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return seoRecordPayload{
		ID:              m.ID,
		PageURL:         m.PageURL,
		Slug:            m.Slug,
		PageType:        string(m.PageType),
		EntityType:      m.EntityType,
		EntityID:        m.EntityID,
		MetaTitle:       m.MetaTitle,
		MetaDescription: m.MetaDescription,
		Keywords:        keywords,
		CanonicalURL:    m.CanonicalURL,
		Robots:          robotsPayload(m.Robots),
		RobotsDirective: m.Robots.Directive(),
		Language:        m.Language,
		Region:          m.Region,
		Hreflang:        mapSlice(m.Hreflang, func(v domain.SEOHreflang) hreflangPayload { return hreflangPayload(v) }),
		OpenGraph:       newOpenGraphPayload(m.OpenGraph),
		TwitterCard:     twitterCardPayload(m.TwitterCard),
		StructuredData:  structuredDataPayloads(m.StructuredData),
		Headings:        mapSlice(m.Headings, func(v domain.SEOHeading) headingPayload { return headingPayload(v) }),
		Images:          mapSlice(m.Images, func(v domain.SEOImage) imagePayload { return imagePayload(v) }),
		InternalLinks:   mapSlice(m.InternalLinks, func(v domain.SEOLink) linkPayload { return linkPayload(v) }),
		ExternalLinks:   mapSlice(m.ExternalLinks, func(v domain.SEOLink) linkPayload { return linkPayload(v) }),
		ContentAnalysis: contentAnalysisPayload(m.ContentAnalysis),
		Performance:     performancePayload(m.Performance),
		Status:          string(m.Status),
		Priority:        string(m.Priority),
		Analytics:       analyticsPayload(m.Analytics),
		Audit: auditPayload{
			LastAuditDate: m.Audit.LastAuditDate,
			Issues:        auditIssuePayloads(m.Audit.Issues),
			Score:         m.Audit.Score,
		},
		RelatedPages:   m.RelatedPages,
		CreatedBy:      m.CreatedBy,
		LastModifiedBy: m.LastModifiedBy,
		AutoGenerate:   autoGeneratePayload(m.AutoGenerate),
		CreatedAt:      optionalTime(m.CreatedAt),
		UpdatedAt:      optionalTime(m.UpdatedAt),
	}
}

func newOpenGraphPayload(og domain.SEOOpenGraph) openGraphPayload {
	out := openGraphPayload{
		Title:       og.Title,
		Description: og.Description,
		Image:       og.Image,
		ImageAlt:    og.ImageAlt,
		URL:         og.URL,
		Type:        og.Type,
		SiteName:    og.SiteName,
		Locale:      og.Locale,
	}
	if og.ProductData != nil {
		product := ogProductPayload(*og.ProductData)
		out.ProductData = &product
	}
	return out
}

func (p openGraphPayload) toDomain() domain.SEOOpenGraph {
	out := domain.SEOOpenGraph{
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		ImageAlt:    p.ImageAlt,
		URL:         p.URL,
		Type:        p.Type,
		SiteName:    p.SiteName,
		Locale:      p.Locale,
	}
	if p.ProductData != nil {
		product := domain.SEOOpenGraphProduct(*p.ProductData)
		out.ProductData = &product
	}
	return out
}

func structuredDataPayloads(entries []domain.StructuredData) []structuredDataPayload {
	out := make([]structuredDataPayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, structuredDataPayload{Type: string(entry.Type), Data: entry.Data})
	}
	return out
}

func structuredDataFromPayload(entries []structuredDataPayload) []domain.StructuredData {
	return mapSlice(entries, func(v structuredDataPayload) domain.StructuredData {
		return domain.StructuredData{Type: domain.StructuredDataType(v.Type), Data: v.Data}
	})
}

func auditIssuePayloads(issues []domain.SEOAuditIssue) []auditIssuePayload {
	out := make([]auditIssuePayload, 0, len(issues))
	for _, issue := range issues {
		out = append(out, auditIssuePayload{
			Type:           string(issue.Type),
			Severity:       string(issue.Severity),
			Description:    issue.Description,
			Recommendation: issue.Recommendation,
			Fixed:          issue.Fixed,
		})
	}
	return out
}

// toDomain converts a replace-mode body. Identity and timestamps are owned by the service.
func (p seoRecordPayload) toDomain() domain.SEOMetadata {
	return domain.SEOMetadata{
		PageURL:         p.PageURL,
		Slug:            p.Slug,
		PageType:        domain.SEOPageType(p.PageType),
		EntityType:      p.EntityType,
		EntityID:        p.EntityID,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		Keywords:        p.Keywords,
		CanonicalURL:    p.CanonicalURL,
		Robots:          domain.SEORobots(p.Robots),
		Language:        p.Language,
		Region:          p.Region,
		Hreflang:        mapSlice(p.Hreflang, func(v hreflangPayload) domain.SEOHreflang { return domain.SEOHreflang(v) }),
		OpenGraph:       p.OpenGraph.toDomain(),
		TwitterCard:     domain.SEOTwitterCard(p.TwitterCard),
		StructuredData:  structuredDataFromPayload(p.StructuredData),
		Headings:        mapSlice(p.Headings, func(v headingPayload) domain.SEOHeading { return domain.SEOHeading(v) }),
		Images:          mapSlice(p.Images, func(v imagePayload) domain.SEOImage { return domain.SEOImage(v) }),
		InternalLinks:   mapSlice(p.InternalLinks, func(v linkPayload) domain.SEOLink { return domain.SEOLink(v) }),
		ExternalLinks:   mapSlice(p.ExternalLinks, func(v linkPayload) domain.SEOLink { return domain.SEOLink(v) }),
		ContentAnalysis: domain.SEOContentAnalysis(p.ContentAnalysis),
		Performance:     domain.SEOPerformance(p.Performance),
		Status:          domain.SEOStatus(p.Status),
		Priority:        domain.SEOPriority(p.Priority),
		Analytics:       domain.SEOAnalytics(p.Analytics),
		Audit: domain.SEOAudit{
			LastAuditDate: p.Audit.LastAuditDate,
			Score:         p.Audit.Score,
			Issues: mapSlice(p.Audit.Issues, func(v auditIssuePayload) domain.SEOAuditIssue {
				return domain.SEOAuditIssue{
					Type:           domain.SEOIssueType(v.Type),
					Severity:       domain.SEOSeverity(v.Severity),
					Description:    v.Description,
					Recommendation: v.Recommendation,
					Fixed:          v.Fixed,
				}
			}),
		},
		RelatedPages: p.RelatedPages,
		AutoGenerate: domain.SEOAutoGenerate(p.AutoGenerate),
	}
}

func (p seoPatchPayload) toPatch() repositories.SEOMetadataPatch {
	patch := repositories.SEOMetadataPatch{
		Slug:            p.Slug,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		Keywords:        p.Keywords,
		CanonicalURL:    p.CanonicalURL,
		Language:        p.Language,
		Region:          p.Region,
		RelatedPages:    p.RelatedPages,
	}
	if p.PageType != nil {
		v := domain.SEOPageType(*p.PageType)
		patch.PageType = &v
	}
	if p.Robots != nil {
		v := domain.SEORobots(*p.Robots)
		patch.Robots = &v
	}
	if p.Hreflang != nil {
		v := mapSlice(*p.Hreflang, func(v hreflangPayload) domain.SEOHreflang { return domain.SEOHreflang(v) })
		patch.Hreflang = &v
	}
	if p.OpenGraph != nil {
		v := p.OpenGraph.toDomain()
		patch.OpenGraph = &v
	}
	if p.TwitterCard != nil {
		v := domain.SEOTwitterCard(*p.TwitterCard)
		patch.TwitterCard = &v
	}
	if p.StructuredData != nil {
		v := structuredDataFromPayload(*p.StructuredData)
		patch.StructuredData = &v
	}
	if p.Headings != nil {
		v := mapSlice(*p.Headings, func(v headingPayload) domain.SEOHeading { return domain.SEOHeading(v) })
		patch.Headings = &v
	}
	if p.Images != nil {
		v := mapSlice(*p.Images, func(v imagePayload) domain.SEOImage { return domain.SEOImage(v) })
		patch.Images = &v
	}
	if p.InternalLinks != nil {
		v := mapSlice(*p.InternalLinks, func(v linkPayload) domain.SEOLink { return domain.SEOLink(v) })
		patch.InternalLinks = &v
	}
	if p.ExternalLinks != nil {
		v := mapSlice(*p.ExternalLinks, func(v linkPayload) domain.SEOLink { return domain.SEOLink(v) })
		patch.ExternalLinks = &v
	}
	if p.ContentAnalysis != nil {
		v := domain.SEOContentAnalysis(*p.ContentAnalysis)
		patch.ContentAnalysis = &v
	}
	if p.Performance != nil {
		v := domain.SEOPerformance(*p.Performance)
		patch.Performance = &v
	}
	if p.Status != nil {
		v := domain.SEOStatus(*p.Status)
		patch.Status = &v
	}
	if p.Priority != nil {
		v := domain.SEOPriority(*p.Priority)
		patch.Priority = &v
	}
	if p.Analytics != nil {
		v := domain.SEOAnalytics(*p.Analytics)
		patch.Analytics = &v
	}
	if p.AutoGenerate != nil {
		v := domain.SEOAutoGenerate(*p.AutoGenerate)
		patch.AutoGenerate = &v
	}
	return patch
}

type auditReportPayload struct {
	RecordID        string              `json:"recordId"`
	PageURL         string              `json:"pageUrl"`
	Score           int                 `json:"score"`
	Issues          []auditIssuePayload `json:"issues"`
	Recommendations []string            `json:"recommendations"`
	AuditedAt       time.Time           `json:"auditedAt"`
}

type bulkItemPayload struct {
	ProductID string `json:"productId"`
	Success   bool   `json:"success"`
	PageURL   string `json:"pageUrl,omitempty"`
	SEOID     string `json:"seoId,omitempty"`
	Created   bool   `json:"created,omitempty"`
	Error     string `json:"error,omitempty"`
}

type bulkResultPayload struct {
	Results []bulkItemPayload       `json:"results"`
	Summary services.BulkSEOSummary `json:"summary"`
}

type pageTypeStatsPayload struct {
	PageType     string  `json:"pageType"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"averageScore"`
}

type overviewPayload struct {
	Total              int                    `json:"total"`
	ByStatus           map[string]int         `json:"byStatus"`
	AverageScore       float64                `json:"averageScore"`
	TotalIssues        int                    `json:"totalIssues"`
	WithStructuredData int                    `json:"withStructuredData"`
	ByPageType         []pageTypeStatsPayload `json:"byPageType"`
}

type pageAttentionPayload struct {
	ID         string   `json:"id"`
	PageURL    string   `json:"pageUrl"`
	PageType   string   `json:"pageType"`
	Status     string   `json:"status"`
	Score      int      `json:"score"`
	IssueCount int      `json:"issueCount"`
	Reasons    []string `json:"reasons"`
}

type issueFrequencyPayload struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type recommendationsPayload struct {
	Threshold    int                     `json:"threshold"`
	Pages        []pageAttentionPayload  `json:"pages"`
	CommonIssues []issueFrequencyPayload `json:"commonIssues"`
}

type storedObjectPayload struct {
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	Generation int64  `json:"generation"`
	Size       int64  `json:"size"`
}

type sitemapPublicationPayload struct {
	Sitemap     storedObjectPayload `json:"sitemap"`
	Robots      storedObjectPayload `json:"robots"`
	Entries     int                 `json:"entries"`
	PublishedAt time.Time           `json:"publishedAt"`
}
