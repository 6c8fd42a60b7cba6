//go:build integration

package firestore

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/storefront/seo-api/internal/domain"
	"github.com/storefront/seo-api/internal/repositories"
)

func seoFixture(id, pageURL, slug string, status domain.SEOStatus, score int, createdAt time.Time) domain.SEOMetadata {
	return domain.SEOMetadata{
		ID:              id,
		PageURL:         pageURL,
		Slug:            slug,
		PageType:        domain.SEOPageTypeProduct,
		MetaTitle:       "Title for " + slug,
		MetaDescription: "Description for " + slug,
		Keywords:        []string{slug},
		Status:          status,
		Robots:          domain.SEORobots{Index: true, Follow: true},
		AutoGenerate:    domain.DefaultSEOAutoGenerate(),
		Audit:           domain.SEOAudit{Score: score},
		CreatedBy:       "staff-1",
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestSEORepositoryIntegration(t *testing.T) {
	provider := newEmulatorProvider(t, "seo-test")
	repo, err := NewSEORepository(provider)
	if err != nil {
		t.Fatalf("new seo repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	base := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)

	created, err := repo.UpsertByPageURL(ctx, seoFixture("seo_1", "/product/red-shirt", "red-shirt", domain.SEOStatusPublished, 40, base))
	if err != nil {
		t.Fatalf("upsert create: %v", err)
	}
	if !created.Created || created.Record.ID != "seo_1" {
		t.Fatalf("expected creation of seo_1, got %+v", created)
	}

	replacement := seoFixture("seo_other", "/product/red-shirt", "red-shirt", domain.SEOStatusPublished, 90, base.Add(time.Hour))
	replacement.CreatedBy = "staff-2"
	replacement.MetaTitle = "Red Shirt - Acme | Buy Online"
	updated, err := repo.UpsertByPageURL(ctx, replacement)
	if err != nil {
		t.Fatalf("upsert replace: %v", err)
	}
	if updated.Created || updated.Record.ID != "seo_1" || updated.Record.CreatedBy != "staff-1" || !updated.Record.CreatedAt.Equal(base) {
		t.Fatalf("expected insert-only fields preserved, got %+v", updated.Record)
	}

	if _, err := repo.UpsertByPageURL(ctx, seoFixture("seo_2", "/product/blue-shirt", "blue-shirt", domain.SEOStatusDraft, 80, base.Add(2*time.Hour))); err != nil {
		t.Fatalf("upsert second: %v", err)
	}
	_, err = repo.UpsertByPageURL(ctx, seoFixture("seo_3", "/product/blue-shirt-2", "red-shirt", domain.SEOStatusDraft, 0, base))
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected slug conflict, got %v", err)
	}

	byURL, err := repo.FindByPageURL(ctx, "/product/red-shirt")
	if err != nil {
		t.Fatalf("find by page url: %v", err)
	}
	if byURL.MetaTitle != "Red Shirt - Acme | Buy Online" || byURL.Audit.Score != 90 {
		t.Fatalf("unexpected record %+v", byURL)
	}

	title := "Blue Shirt"
	merged, err := repo.Merge(ctx, "seo_2", repositories.SEOMetadataPatch{MetaTitle: &title, LastModifiedBy: "staff-3"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.MetaTitle != title || merged.MetaDescription != "Description for blue-shirt" || merged.LastModifiedBy != "staff-3" {
		t.Fatalf("unexpected merge result %+v", merged)
	}

	tooLong := "This title is far too long to be accepted because it exceeds sixty runes"
	if _, err := repo.Merge(ctx, "seo_2", repositories.SEOMetadataPatch{MetaTitle: &tooLong}); !errors.Is(err, domain.ErrSEOMetadataInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}

	replaced := seoFixture("seo_2", "/product/navy-shirt", "navy-shirt", domain.SEOStatusDraft, 80, base)
	replaced.Keywords = nil
	if _, err := repo.Replace(ctx, replaced); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := repo.UpsertByPageURL(ctx, seoFixture("seo_4", "/product/blue-shirt", "blue-shirt", domain.SEOStatusDraft, 0, base)); err != nil {
		t.Fatalf("expected released claims to be reusable: %v", err)
	}

	issueTime := base.Add(3 * time.Hour)
	audit := domain.SEOAudit{
		LastAuditDate: &issueTime,
		Score:         70,
		Issues: []domain.SEOAuditIssue{
			{Type: domain.SEOIssueMissingStructuredData, Severity: domain.SEOSeverityMedium},
			{Type: domain.SEOIssueTitleTooShort, Severity: domain.SEOSeverityLow},
		},
	}
	if err := repo.UpdateAudit(ctx, "seo_1", audit); err != nil {
		t.Fatalf("update audit: %v", err)
	}
	if err := repo.UpdateAudit(ctx, "seo_missing", audit); !isNotFound(err) {
		t.Fatalf("expected not found for missing record, got %v", err)
	}

	page, err := repo.List(ctx, repositories.SEOListFilter{SortBy: repositories.SEOSortPageURL, SortOrder: domain.SortAsc, Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalItems != 3 || len(page.Items) != 2 || page.Items[0].PageURL != "/product/blue-shirt" {
		t.Fatalf("unexpected page %+v", page)
	}

	searched, err := repo.List(ctx, repositories.SEOListFilter{Search: "NAVY", Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if searched.TotalItems != 1 || searched.Items[0].ID != "seo_2" {
		t.Fatalf("unexpected search result %+v", searched)
	}

	published, err := repo.ListPublished(ctx)
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(published) != 1 || published[0].ID != "seo_1" {
		t.Fatalf("unexpected published list %+v", published)
	}

	attention, err := repo.ListNeedingAttention(ctx, 75, 10)
	if err != nil {
		t.Fatalf("needing attention: %v", err)
	}
	if len(attention) != 2 || attention[0].Audit.Score > attention[1].Audit.Score {
		t.Fatalf("unexpected attention list %+v", attention)
	}

	overview, err := repo.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Total != 3 || overview.TotalIssues != 2 || overview.ByStatus[domain.SEOStatusPublished] != 1 {
		t.Fatalf("unexpected overview %+v", overview)
	}

	frequency, err := repo.IssueFrequency(ctx)
	if err != nil {
		t.Fatalf("issue frequency: %v", err)
	}
	if len(frequency) != 2 {
		t.Fatalf("unexpected frequency %+v", frequency)
	}

	byType, err := repo.CountByPageType(ctx)
	if err != nil {
		t.Fatalf("count by page type: %v", err)
	}
	if len(byType) != 1 || byType[0].PageType != domain.SEOPageTypeProduct || byType[0].Count != 3 {
		t.Fatalf("unexpected page type stats %+v", byType)
	}

	if err := repo.Delete(ctx, "seo_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, "seo_1"); !isNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "seo_1"); !isNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
