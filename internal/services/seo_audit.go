package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	domain "github.com/storefront/seo-api/internal/domain"
)

const (
	minRecommendedTitleLength = 30
)

// auditRule is one row of the audit table. Rules are evaluated independently and their deductions add up.
type auditRule struct {
	Issue          domain.SEOIssueType
	Severity       domain.SEOSeverity
	Deduction      int
	Description    string
	Recommendation string
	Applies        func(domain.SEOMetadata) bool
}

// seoAuditRules is evaluated in order; the issue list preserves this order. The three title rules are
// mutually exclusive.
var seoAuditRules = []auditRule{
	{
		Issue:          domain.SEOIssueMissingMetaTitle,
		Severity:       domain.SEOSeverityCritical,
		Deduction:      20,
		Description:    "Meta title is missing",
		Recommendation: "Add a descriptive meta title between 30 and 60 characters",
		Applies: func(m domain.SEOMetadata) bool {
			return strings.TrimSpace(m.MetaTitle) == ""
		},
	},
	{
		Issue:          domain.SEOIssueTitleTooLong,
		Severity:       domain.SEOSeverityMedium,
		Deduction:      10,
		Description:    fmt.Sprintf("Meta title exceeds %d characters", domain.MaxMetaTitleLength),
		Recommendation: fmt.Sprintf("Shorten the meta title to %d characters or fewer", domain.MaxMetaTitleLength),
		Applies: func(m domain.SEOMetadata) bool {
			return titleLength(m) > domain.MaxMetaTitleLength
		},
	},
	{
		Issue:          domain.SEOIssueTitleTooShort,
		Severity:       domain.SEOSeverityLow,
		Deduction:      5,
		Description:    fmt.Sprintf("Meta title is shorter than %d characters", minRecommendedTitleLength),
		Recommendation: "Expand the meta title with relevant keywords",
		Applies: func(m domain.SEOMetadata) bool {
			n := titleLength(m)
			return n > 0 && n < minRecommendedTitleLength
		},
	},
	{
		Issue:          domain.SEOIssueMissingMetaDescription,
		Severity:       domain.SEOSeverityHigh,
		Deduction:      15,
		Description:    "Meta description is missing",
		Recommendation: "Add a compelling meta description of up to 160 characters",
		Applies: func(m domain.SEOMetadata) bool {
			return strings.TrimSpace(m.MetaDescription) == ""
		},
	},
	{
		Issue:          domain.SEOIssueMissingAltText,
		Severity:       domain.SEOSeverityMedium,
		Deduction:      10,
		Description:    "One or more images are missing alt text",
		Recommendation: "Add descriptive alt text to every image",
		Applies: func(m domain.SEOMetadata) bool {
			for _, img := range m.Images {
				if strings.TrimSpace(img.Alt) == "" {
					return true
				}
			}
			return false
		},
	},
	{
		Issue:          domain.SEOIssueMissingStructuredData,
		Severity:       domain.SEOSeverityMedium,
		Deduction:      10,
		Description:    "No structured data is attached to the page",
		Recommendation: "Add schema.org structured data for rich results",
		Applies: func(m domain.SEOMetadata) bool {
			return !m.HasStructuredData()
		},
	},
}

func titleLength(m domain.SEOMetadata) int {
	return utf8.RuneCountInString(strings.TrimSpace(m.MetaTitle))
}

// evaluateAudit runs rules against record and returns the clamped score and the issues found.
func evaluateAudit(rules []auditRule, record domain.SEOMetadata) (int, []domain.SEOAuditIssue) {
	score := domain.MaxAuditScore
	issues := make([]domain.SEOAuditIssue, 0, len(rules))
	for _, rule := range rules {
		if !rule.Applies(record) {
			continue
		}
		score -= rule.Deduction
		issues = append(issues, domain.SEOAuditIssue{
			Type:           rule.Issue,
			Severity:       rule.Severity,
			Description:    rule.Description,
			Recommendation: rule.Recommendation,
		})
	}
	return domain.ClampAuditScore(score), issues
}

// auditRecommendations lists advisory improvements that do not affect the score.
func auditRecommendations(record domain.SEOMetadata) []string {
	var out []string
	if len(record.Keywords) == 0 {
		out = append(out, "Add target keywords to guide content optimisation")
	}
	if record.ContentAnalysis.WordCount == 0 {
		out = append(out, "Run a content analysis to record the page word count")
	}
	if !record.Performance.MobileOptimized {
		out = append(out, "Verify the page is optimised for mobile devices")
	}
	if strings.TrimSpace(record.OpenGraph.Image) == "" {
		out = append(out, "Add an Open Graph image for richer social sharing")
	}
	if strings.TrimSpace(record.TwitterCard.Image) == "" {
		out = append(out, "Add a Twitter Card image")
	}
	return out
}
