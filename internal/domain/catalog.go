package domain

import "time"

// ProductBrand is the brand reference embedded in a product document.
type ProductBrand struct {
	ID   string
	Name string
	Logo string
}

// ProductCategory is the category reference embedded in a product document.
type ProductCategory struct {
	ID   string
	Name string
	Slug string
}

// ProductImage is a product gallery image.
type ProductImage struct {
	URL string
	Alt string
}

// ProductRating aggregates customer ratings for a product.
type ProductRating struct {
	Average float64
	Count   int
}

// ProductReview is an approved customer review attached to a product.
type ProductReview struct {
	ID         string
	AuthorName string
	Rating     int
	Title      string
	Comment    string
	CreatedAt  time.Time
}

// Product is the catalog entity SEO metadata is derived from.
type Product struct {
	ID          string
	Name        string
	Slug        string
	SKU         string
	Description string
	Brand       ProductBrand
	Category    ProductCategory
	Gender      string
	Material    string
	Price       float64
	Stock       int
	Images      []ProductImage
	Rating      ProductRating
	Reviews     []ProductReview
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Category is a storefront product category.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Image       string
	ParentID    string
}
