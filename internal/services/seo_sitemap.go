package services

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	domain "github.com/storefront/seo-api/internal/domain"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

var (
	sitemapChangeFreq = map[domain.SEOPageType]string{
		domain.SEOPageTypeHomepage: "daily",
		domain.SEOPageTypeProduct:  "weekly",
		domain.SEOPageTypeCategory: "weekly",
		domain.SEOPageTypeBlog:     "monthly",
		domain.SEOPageTypeAbout:    "monthly",
		domain.SEOPageTypeContact:  "monthly",
	}
	sitemapPageTypePriority = map[domain.SEOPageType]float64{
		domain.SEOPageTypeHomepage: 1.0,
		domain.SEOPageTypeCategory: 0.8,
		domain.SEOPageTypeProduct:  0.6,
		domain.SEOPageTypeBlog:     0.4,
		domain.SEOPageTypeAbout:    0.3,
		domain.SEOPageTypeContact:  0.3,
	}
	sitemapExplicitPriority = map[domain.SEOPriority]float64{
		domain.SEOPriorityLow:      0.3,
		domain.SEOPriorityMedium:   0.5,
		domain.SEOPriorityHigh:     0.8,
		domain.SEOPriorityCritical: 1.0,
	}

	robotsDisallow = []string{"/admin/", "/api/", "/checkout/", "/account/", "/cart/"}
	robotsAllow    = []string{productPathPrefix, categoryPathPrefix, "/search"}
)

const (
	defaultChangeFreq      = "monthly"
	defaultSitemapPriority = 0.5
	robotsCrawlDelay       = 1
)

func changeFreqFor(pageType domain.SEOPageType) string {
	if freq, ok := sitemapChangeFreq[pageType]; ok {
		return freq
	}
	return defaultChangeFreq
}

// priorityFor prefers the record's explicit priority over the page type default.
func priorityFor(record domain.SEOMetadata) float64 {
	if p, ok := sitemapExplicitPriority[record.Priority]; ok {
		return p
	}
	if p, ok := sitemapPageTypePriority[record.PageType]; ok {
		return p
	}
	return defaultSitemapPriority
}

func sitemapEntries(baseDomain string, records []domain.SEOMetadata) []SitemapEntry {
	entries := make([]SitemapEntry, 0, len(records))
	for _, record := range records {
		if record.Status != domain.SEOStatusPublished {
			continue
		}
		lastMod := record.UpdatedAt
		if lastMod.IsZero() {
			lastMod = record.CreatedAt
		}
		entries = append(entries, SitemapEntry{
			Loc:        joinBaseURL(baseDomain, record.PageURL),
			LastMod:    lastMod.UTC(),
			ChangeFreq: changeFreqFor(record.PageType),
			Priority:   priorityFor(record),
		})
	}
	return entries
}

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

func renderSitemapXML(entries []SitemapEntry) ([]byte, error) {
	set := xmlURLSet{XMLNS: sitemapNamespace, URLs: make([]xmlURL, 0, len(entries))}
	for _, entry := range entries {
		u := xmlURL{
			Loc:        entry.Loc,
			ChangeFreq: entry.ChangeFreq,
			Priority:   fmt.Sprintf("%.1f", entry.Priority),
		}
		if !entry.LastMod.IsZero() {
			u.LastMod = entry.LastMod.Format(time.RFC3339)
		}
		set.URLs = append(set.URLs, u)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("render sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func renderRobotsTxt(baseDomain string) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	for _, path := range robotsDisallow {
		fmt.Fprintf(&b, "Disallow: %s\n", path)
	}
	for _, path := range robotsAllow {
		fmt.Fprintf(&b, "Allow: %s\n", path)
	}
	fmt.Fprintf(&b, "Crawl-delay: %d\n", robotsCrawlDelay)
	fmt.Fprintf(&b, "\nSitemap: %s/sitemap.xml\n", baseDomain)
	return b.String()
}
