package firestore

import (
	"context"
	"errors"

	domain "github.com/storefront/seo-api/internal/domain"
	pfirestore "github.com/storefront/seo-api/internal/platform/firestore"
	"github.com/storefront/seo-api/internal/repositories"
)

const categoriesCollection = "categories"

type CategoryRepository struct {
	categories *pfirestore.BaseRepository[categoryDocument]
}

var _ repositories.CategoryRepository = (*CategoryRepository)(nil)

func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}
	return &CategoryRepository{
		categories: pfirestore.NewBaseRepository[categoryDocument](provider, categoriesCollection),
	}, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	doc, err := r.categories.Get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	return domain.Category{
		ID:          doc.ID,
		Name:        doc.Data.Name,
		Slug:        doc.Data.Slug,
		Description: doc.Data.Description,
		Image:       doc.Data.Image,
		ParentID:    doc.Data.ParentID,
	}, nil
}

type categoryDocument struct {
	Name        string `firestore:"name"`
	Slug        string `firestore:"slug"`
	Description string `firestore:"description"`
	Image       string `firestore:"image"`
	ParentID    string `firestore:"parentId"`
}
