package services

import (
	"strings"

	domain "github.com/storefront/seo-api/internal/domain"
)

const (
	schemaContext         = "https://schema.org"
	schemaInStock         = "https://schema.org/InStock"
	schemaOutOfStock      = "https://schema.org/OutOfStock"
	schemaNewCondition    = "https://schema.org/NewCondition"
	reviewDateLayout      = "2006-01-02"
	reviewBestRatingValue = 5
)

// BreadcrumbItem is one step of a breadcrumb trail. URL may be relative to the base domain.
type BreadcrumbItem struct {
	Name string
	URL  string
}

type structuredDataGenerator struct {
	settings SEOSettings
	text     func(string) string
}

// Product maps a catalog product onto schema.org/Product with its brand, offer, rating and reviews.
// AggregateRating is present only when the product has been rated. Every review becomes one Review entry.
func (g structuredDataGenerator) Product(p domain.Product, pageURL string) domain.StructuredData {
	data := map[string]any{
		"@context": schemaContext,
		"@type":    string(domain.StructuredDataProduct),
		"name":     p.Name,
	}
	if desc := g.text(p.Description); desc != "" {
		data["description"] = desc
	}
	if sku := strings.TrimSpace(p.SKU); sku != "" {
		data["sku"] = sku
	}
	if images := g.productImages(p); len(images) > 0 {
		data["image"] = images
	}
	if brand := strings.TrimSpace(p.Brand.Name); brand != "" {
		data["brand"] = map[string]any{"@type": "Brand", "name": brand}
	}
	if category := strings.TrimSpace(p.Category.Name); category != "" {
		data["category"] = category
	}

	availability := schemaOutOfStock
	if p.InStock() {
		availability = schemaInStock
	}
	offer := map[string]any{
		"@type":         "Offer",
		"price":         p.Price,
		"priceCurrency": g.settings.DefaultCurrency,
		"availability":  availability,
		"itemCondition": schemaNewCondition,
		"seller": map[string]any{
			"@type": "Organization",
			"name":  g.settings.SiteName,
		},
	}
	if pageURL != "" {
		offer["url"] = g.absolute(pageURL)
	}
	data["offers"] = offer

	if p.Rating.Count > 0 {
		data["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": p.Rating.Average,
			"reviewCount": p.Rating.Count,
			"bestRating":  reviewBestRatingValue,
		}
	}

	if len(p.Reviews) > 0 {
		reviews := make([]map[string]any, 0, len(p.Reviews))
		for _, review := range p.Reviews {
			entry := map[string]any{
				"@type": "Review",
				"author": map[string]any{
					"@type": "Person",
					"name":  firstNonEmpty(review.AuthorName, "Anonymous"),
				},
				"reviewRating": map[string]any{
					"@type":       "Rating",
					"ratingValue": review.Rating,
					"bestRating":  reviewBestRatingValue,
				},
			}
			if title := strings.TrimSpace(review.Title); title != "" {
				entry["name"] = title
			}
			if body := strings.TrimSpace(review.Comment); body != "" {
				entry["reviewBody"] = body
			}
			if !review.CreatedAt.IsZero() {
				entry["datePublished"] = review.CreatedAt.UTC().Format(reviewDateLayout)
			}
			reviews = append(reviews, entry)
		}
		data["review"] = reviews
	}

	return domain.StructuredData{Type: domain.StructuredDataProduct, Data: data}
}

// Organization describes the storefront itself.
func (g structuredDataGenerator) Organization() domain.StructuredData {
	data := map[string]any{
		"@context": schemaContext,
		"@type":    string(domain.StructuredDataOrganization),
		"name":     g.settings.SiteName,
		"url":      g.settings.BaseDomain,
		"logo":     g.absolute("/logo.png"),
		"contactPoint": map[string]any{
			"@type":       "ContactPoint",
			"contactType": "customer service",
			"url":         g.absolute("/contact"),
		},
	}
	if handle := strings.TrimPrefix(g.settings.SocialHandle, "@"); handle != "" {
		data["sameAs"] = []string{"https://twitter.com/" + handle}
	}
	return domain.StructuredData{Type: domain.StructuredDataOrganization, Data: data}
}

// Breadcrumb numbers items from 1 in the order given.
func (g structuredDataGenerator) Breadcrumb(items []BreadcrumbItem) domain.StructuredData {
	elements := make([]map[string]any, 0, len(items))
	for i, item := range items {
		elements = append(elements, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     item.Name,
			"item":     g.absolute(item.URL),
		})
	}
	return domain.StructuredData{
		Type: domain.StructuredDataBreadcrumbList,
		Data: map[string]any{
			"@context":        schemaContext,
			"@type":           string(domain.StructuredDataBreadcrumbList),
			"itemListElement": elements,
		},
	}
}

// ProductBreadcrumb is Home > Category > Product. The category step is skipped for uncategorised products.
func (g structuredDataGenerator) ProductBreadcrumb(p domain.Product, pageURL string) domain.StructuredData {
	items := []BreadcrumbItem{{Name: "Home", URL: "/"}}
	if name := strings.TrimSpace(p.Category.Name); name != "" {
		items = append(items, BreadcrumbItem{Name: name, URL: categoryPath(p.Category.Slug, name)})
	}
	items = append(items, BreadcrumbItem{Name: p.Name, URL: pageURL})
	return g.Breadcrumb(items)
}

// CategoryBreadcrumb is Home > Category.
func (g structuredDataGenerator) CategoryBreadcrumb(c domain.Category, pageURL string) domain.StructuredData {
	if pageURL == "" {
		pageURL = categoryPath(c.Slug, c.Name)
	}
	return g.Breadcrumb([]BreadcrumbItem{{Name: "Home", URL: "/"}, {Name: c.Name, URL: pageURL}})
}

func (g structuredDataGenerator) productImages(p domain.Product) []string {
	images := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if u := strings.TrimSpace(img.URL); u != "" {
			images = append(images, g.absolute(u))
		}
	}
	return images
}

func (g structuredDataGenerator) absolute(path string) string {
	return joinBaseURL(g.settings.BaseDomain, path)
}
