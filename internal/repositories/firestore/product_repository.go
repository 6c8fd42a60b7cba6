package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/storefront/seo-api/internal/domain"
	pfirestore "github.com/storefront/seo-api/internal/platform/firestore"
	"github.com/storefront/seo-api/internal/repositories"
)

const (
	productsCollection   = "products"
	reviewsCollection    = "reviews"
	reviewStatusApproved = "approved"
)

// ProductRepository reads catalog products owned by the catalog service. Reviews live in their own
// collection keyed by productId; only approved reviews are exposed.
type ProductRepository struct {
	products *pfirestore.BaseRepository[productDocument]
	reviews  *pfirestore.BaseRepository[reviewDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection),
		reviews:  pfirestore.NewBaseRepository[reviewDocument](provider, reviewsCollection),
	}, nil
}

// FindByID loads the product together with its most recent approved reviews.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	product := doc.Data.toDomain(doc.ID)

	reviews, err := r.reviews.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("productId", "==", productID)
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("load reviews for product %s: %w", productID, err)
	}
	for _, review := range reviews {
		if review.Data.Status != reviewStatusApproved {
			continue
		}
		product.Reviews = append(product.Reviews, review.Data.toDomain(review.ID))
	}
	sort.SliceStable(product.Reviews, func(i, j int) bool {
		return product.Reviews[i].CreatedAt.After(product.Reviews[j].CreatedAt)
	})
	return product, nil
}

// ListAll returns every product without reviews, ordered by ID.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Data.toDomain(doc.ID))
	}
	return out, nil
}

type productDocument struct {
	Name        string                  `firestore:"name"`
	Slug        string                  `firestore:"slug"`
	SKU         string                  `firestore:"sku"`
	Description string                  `firestore:"description"`
	Brand       productBrandDocument    `firestore:"brand"`
	Category    productCategoryDocument `firestore:"category"`
	Gender      string                  `firestore:"gender"`
	Material    string                  `firestore:"material"`
	Price       float64                 `firestore:"price"`
	Stock       int                     `firestore:"stock"`
	Images      []productImageDocument  `firestore:"images"`
	Rating      productRatingDocument   `firestore:"rating"`
	Tags        []string                `firestore:"tags"`
	CreatedAt   time.Time               `firestore:"createdAt"`
	UpdatedAt   time.Time               `firestore:"updatedAt"`
}

type productBrandDocument struct {
	ID   string `firestore:"id"`
	Name string `firestore:"name"`
	Logo string `firestore:"logo"`
}

type productCategoryDocument struct {
	ID   string `firestore:"id"`
	Name string `firestore:"name"`
	Slug string `firestore:"slug"`
}

type productImageDocument struct {
	URL string `firestore:"url"`
	Alt string `firestore:"alt"`
}

type productRatingDocument struct {
	Average float64 `firestore:"average"`
	Count   int     `firestore:"count"`
}

type reviewDocument struct {
	ProductID  string    `firestore:"productId"`
	AuthorName string    `firestore:"authorName"`
	Rating     int       `firestore:"rating"`
	Title      string    `firestore:"title"`
	Comment    string    `firestore:"comment"`
	Status     string    `firestore:"status"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

func (d productDocument) toDomain(id string) domain.Product {
	product := domain.Product{
		ID:          id,
		Name:        d.Name,
		Slug:        d.Slug,
		SKU:         d.SKU,
		Description: d.Description,
		Brand:       domain.ProductBrand(d.Brand),
		Category:    domain.ProductCategory(d.Category),
		Gender:      d.Gender,
		Material:    d.Material,
		Price:       d.Price,
		Stock:       d.Stock,
		Rating:      domain.ProductRating(d.Rating),
		Tags:        d.Tags,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	for _, img := range d.Images {
		product.Images = append(product.Images, domain.ProductImage(img))
	}
	return product
}

func (d reviewDocument) toDomain(id string) domain.ProductReview {
	return domain.ProductReview{
		ID:         id,
		AuthorName: d.AuthorName,
		Rating:     d.Rating,
		Title:      d.Title,
		Comment:    d.Comment,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}
