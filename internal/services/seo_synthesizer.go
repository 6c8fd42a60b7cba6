package services

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"

	domain "github.com/storefront/seo-api/internal/domain"
)

const (
	defaultTemplateKey   = "default"
	descriptionExcerptLn = 120
	defaultOGLocale      = "en_US"
	twitterCardLarge     = "summary_large_image"
)

//go:embed seo_templates.yaml
var seoTemplateSource []byte

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z]+)\}`)

type seoTemplateSet struct {
	Title       []string `yaml:"title"`
	Description []string `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

type seoTemplateTable struct {
	PageTypes map[string]seoTemplateSet `yaml:"pageTypes"`
}

func parseSEOTemplates(src []byte) (seoTemplateTable, error) {
	var table seoTemplateTable
	if err := yaml.Unmarshal(src, &table); err != nil {
		return seoTemplateTable{}, fmt.Errorf("parse seo templates: %w", err)
	}
	fallback, ok := table.PageTypes[defaultTemplateKey]
	if !ok || len(fallback.Title) == 0 || len(fallback.Description) == 0 || len(fallback.Keywords) == 0 {
		return seoTemplateTable{}, errors.New("parse seo templates: default entry must define title, description and keywords")
	}
	for key := range table.PageTypes {
		if key != defaultTemplateKey && !domain.SEOPageType(key).Valid() {
			return seoTemplateTable{}, fmt.Errorf("parse seo templates: unknown page type %q", key)
		}
	}
	return table, nil
}

// forPageType resolves each field independently so a page type may override only some of them.
func (t seoTemplateTable) forPageType(pageType domain.SEOPageType) seoTemplateSet {
	set := t.PageTypes[string(pageType)]
	fallback := t.PageTypes[defaultTemplateKey]
	if len(set.Title) == 0 {
		set.Title = fallback.Title
	}
	if len(set.Description) == 0 {
		set.Description = fallback.Description
	}
	if len(set.Keywords) == 0 {
		set.Keywords = fallback.Keywords
	}
	return set
}

// seoEntity is the flattened view of the product, category or custom data a page describes.
type seoEntity struct {
	Kind         string
	ID           string
	Name         string
	Title        string
	Description  string
	Brand        string
	Category     string
	CategorySlug string
	Gender       string
	Material     string
	Image        string
	ImageAlt     string
	Price        float64
	InStock      bool

	product *domain.Product
}

func productEntity(p domain.Product) seoEntity {
	entity := seoEntity{
		Kind:         "product",
		ID:           p.ID,
		Name:         strings.TrimSpace(p.Name),
		Description:  p.Description,
		Brand:        strings.TrimSpace(p.Brand.Name),
		Category:     strings.TrimSpace(p.Category.Name),
		CategorySlug: strings.TrimSpace(p.Category.Slug),
		Gender:       strings.TrimSpace(p.Gender),
		Material:     strings.TrimSpace(p.Material),
		Price:        p.Price,
		InStock:      p.InStock(),
		product:      &p,
	}
	if len(p.Images) > 0 {
		entity.Image = strings.TrimSpace(p.Images[0].URL)
		entity.ImageAlt = strings.TrimSpace(p.Images[0].Alt)
	}
	return entity
}

func categoryEntity(c domain.Category) seoEntity {
	return seoEntity{
		Kind:         "category",
		ID:           c.ID,
		Name:         strings.TrimSpace(c.Name),
		Description:  c.Description,
		Category:     strings.TrimSpace(c.Name),
		CategorySlug: strings.TrimSpace(c.Slug),
		Image:        strings.TrimSpace(c.Image),
	}
}

// withCustomData overlays caller supplied values. Unknown keys are ignored.
func (e seoEntity) withCustomData(data map[string]any) seoEntity {
	if len(data) == 0 {
		return e
	}
	if e.Kind == "" {
		e.Kind = "custom"
	}
	set := func(dst *string, key string) {
		if v, ok := data[key].(string); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&e.Name, "name")
	set(&e.Title, "title")
	set(&e.Description, "description")
	set(&e.Brand, "brand")
	set(&e.Category, "category")
	set(&e.Gender, "gender")
	set(&e.Material, "material")
	set(&e.Image, "image")
	set(&e.ImageAlt, "imageAlt")
	return e
}

// seoSynthesis is the derived text of a page.
type seoSynthesis struct {
	Title       string
	Description string
	Keywords    []string
}

type seoSynthesizer struct {
	templates seoTemplateTable
	settings  SEOSettings
	policy    *bluemonday.Policy
}

func newSEOSynthesizer(settings SEOSettings, src []byte) (*seoSynthesizer, error) {
	table, err := parseSEOTemplates(src)
	if err != nil {
		return nil, err
	}
	return &seoSynthesizer{templates: table, settings: settings, policy: bluemonday.StrictPolicy()}, nil
}

// Synthesize renders title, description and keywords for the page type. Length caps steer template
// choice but are not enforced here; an over-long result is rejected when the record is validated.
func (s *seoSynthesizer) Synthesize(entity seoEntity, pageType domain.SEOPageType) seoSynthesis {
	set := s.templates.forPageType(pageType)
	values := s.placeholders(entity)
	return seoSynthesis{
		Title:       renderFirst(set.Title, values, domain.MaxMetaTitleLength),
		Description: renderFirst(set.Description, values, domain.MaxMetaDescriptionLength),
		Keywords:    renderKeywords(set.Keywords, values),
	}
}

func (s *seoSynthesizer) placeholders(entity seoEntity) map[string]string {
	description := s.plainText(entity.Description)
	return map[string]string{
		"name":        entity.Name,
		"title":       entity.Title,
		"description": description,
		"excerpt":     truncateRunes(description, descriptionExcerptLn),
		"brand":       entity.Brand,
		"category":    entity.Category,
		"gender":      entity.Gender,
		"material":    entity.Material,
		"siteName":    s.settings.SiteName,
	}
}

// plainText strips markup and collapses whitespace.
func (s *seoSynthesizer) plainText(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	stripped := html.UnescapeString(s.policy.Sanitize(value))
	return strings.Join(strings.Fields(stripped), " ")
}

// OpenGraph builds the Open Graph block. Product pages carry productData.
func (s *seoSynthesizer) OpenGraph(entity seoEntity, pageType domain.SEOPageType, text seoSynthesis, pageURL string) domain.SEOOpenGraph {
	og := domain.SEOOpenGraph{
		Title:       text.Title,
		Description: text.Description,
		Image:       s.absoluteURL(entity.Image),
		ImageAlt:    firstNonEmpty(entity.ImageAlt, entity.Name, text.Title),
		URL:         s.absoluteURL(pageURL),
		Type:        "website",
		SiteName:    s.settings.SiteName,
		Locale:      defaultOGLocale,
	}
	if og.Image == "" {
		og.ImageAlt = ""
	}
	if pageType == domain.SEOPageTypeProduct && entity.product != nil {
		og.Type = "product"
		availability := "out of stock"
		if entity.InStock {
			availability = "in stock"
		}
		og.ProductData = &domain.SEOOpenGraphProduct{
			Price:        entity.Price,
			Currency:     s.settings.DefaultCurrency,
			Availability: availability,
			Condition:    "new",
			Brand:        entity.Brand,
			Category:     entity.Category,
		}
	}
	return og
}

// TwitterCard mirrors the Open Graph text into a large image card.
func (s *seoSynthesizer) TwitterCard(og domain.SEOOpenGraph) domain.SEOTwitterCard {
	return domain.SEOTwitterCard{
		Card:        twitterCardLarge,
		Site:        s.settings.SocialHandle,
		Creator:     s.settings.SocialHandle,
		Title:       og.Title,
		Description: og.Description,
		Image:       og.Image,
		ImageAlt:    og.ImageAlt,
	}
}

func (s *seoSynthesizer) absoluteURL(path string) string {
	return joinBaseURL(s.settings.BaseDomain, path)
}

// joinBaseURL resolves a site-relative path against base. Absolute URLs pass through; "" stays "".
func joinBaseURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// renderFirst returns the first candidate whose placeholders all resolve and whose rendering fits
// maxRunes. When none fits, the first resolvable rendering is returned as is.
func renderFirst(candidates []string, values map[string]string, maxRunes int) string {
	var fallback string
	for _, candidate := range candidates {
		rendered, ok := renderTemplate(candidate, values)
		if !ok {
			continue
		}
		if maxRunes <= 0 || utf8.RuneCountInString(rendered) <= maxRunes {
			return rendered
		}
		if fallback == "" {
			fallback = rendered
		}
	}
	return fallback
}

func renderKeywords(candidates []string, values map[string]string) []string {
	keywords := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		rendered, ok := renderTemplate(candidate, values)
		if !ok {
			continue
		}
		keyword := strings.ToLower(strings.TrimSpace(rendered))
		if keyword == "" {
			continue
		}
		if _, dup := seen[keyword]; dup {
			continue
		}
		seen[keyword] = struct{}{}
		keywords = append(keywords, keyword)
	}
	return keywords
}

// renderTemplate substitutes placeholders and reports false if any of them has no value.
func renderTemplate(tmpl string, values map[string]string) (string, bool) {
	resolved := true
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		value := strings.TrimSpace(values[match[1:len(match)-1]])
		if value == "" {
			resolved = false
		}
		return value
	})
	if !resolved {
		return "", false
	}
	return strings.TrimSpace(out), true
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return strings.TrimSpace(string(runes[:limit]))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
