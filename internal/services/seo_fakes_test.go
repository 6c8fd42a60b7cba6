package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	domain "github.com/storefront/seo-api/internal/domain"
	"github.com/storefront/seo-api/internal/repositories"
)

func seoNotFound(id string) error {
	return repositories.NewSEOError(repositories.SEOErrorNotFound, "seo metadata "+id+" not found", nil)
}

type memorySEORepository struct {
	mu      sync.Mutex
	records map[string]domain.SEOMetadata

	upsertErr error
	// failPageURLs fails upserts for the listed page URLs only.
	failPageURLs map[string]error
	auditErr     error
	upserts      int
}

func newMemorySEORepository(records ...domain.SEOMetadata) *memorySEORepository {
	repo := &memorySEORepository{records: map[string]domain.SEOMetadata{}}
	for _, record := range records {
		repo.records[record.ID] = record
	}
	return repo
}

func (r *memorySEORepository) conflict(record domain.SEOMetadata) error {
	for id, other := range r.records {
		if id == record.ID {
			continue
		}
		if other.PageURL == record.PageURL {
			return repositories.NewSEOError(repositories.SEOErrorDuplicatePageURL, "page url taken", nil)
		}
		if other.Slug == record.Slug {
			return repositories.NewSEOError(repositories.SEOErrorDuplicateSlug, "slug taken", nil)
		}
	}
	return nil
}

func (r *memorySEORepository) UpsertByPageURL(_ context.Context, record domain.SEOMetadata) (repositories.SEOUpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	if r.upsertErr != nil {
		return repositories.SEOUpsertResult{}, r.upsertErr
	}
	if err := r.failPageURLs[record.PageURL]; err != nil {
		return repositories.SEOUpsertResult{}, err
	}
	created := true
	for _, existing := range r.records {
		if existing.PageURL == record.PageURL {
			record.ID = existing.ID
			record.CreatedAt = existing.CreatedAt
			record.CreatedBy = existing.CreatedBy
			created = false
			break
		}
	}
	if err := r.conflict(record); err != nil {
		return repositories.SEOUpsertResult{}, err
	}
	r.records[record.ID] = record
	return repositories.SEOUpsertResult{Record: record, Created: created}, nil
}

func (r *memorySEORepository) Replace(_ context.Context, record domain.SEOMetadata) (domain.SEOMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[record.ID]
	if !ok {
		return domain.SEOMetadata{}, seoNotFound(record.ID)
	}
	if err := r.conflict(record); err != nil {
		return domain.SEOMetadata{}, err
	}
	record.CreatedAt = existing.CreatedAt
	record.CreatedBy = existing.CreatedBy
	r.records[record.ID] = record
	return record, nil
}

func (r *memorySEORepository) Merge(_ context.Context, id string, patch repositories.SEOMetadataPatch) (domain.SEOMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[id]
	if !ok {
		return domain.SEOMetadata{}, seoNotFound(id)
	}
	merged := patch.Apply(existing)
	if err := merged.Validate(); err != nil {
		return domain.SEOMetadata{}, err
	}
	if err := r.conflict(merged); err != nil {
		return domain.SEOMetadata{}, err
	}
	r.records[id] = merged
	return merged, nil
}

func (r *memorySEORepository) FindByID(_ context.Context, id string) (domain.SEOMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return domain.SEOMetadata{}, seoNotFound(id)
	}
	return record, nil
}

func (r *memorySEORepository) FindByPageURL(_ context.Context, pageURL string) (domain.SEOMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.PageURL == pageURL {
			return record, nil
		}
	}
	return domain.SEOMetadata{}, seoNotFound(pageURL)
}

func (r *memorySEORepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return seoNotFound(id)
	}
	delete(r.records, id)
	return nil
}

func (r *memorySEORepository) sorted() []domain.SEOMetadata {
	out := make([]domain.SEOMetadata, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageURL < out[j].PageURL })
	return out
}

func (r *memorySEORepository) List(_ context.Context, filter repositories.SEOListFilter) (domain.OffsetPage[domain.SEOMetadata], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.SEOMetadata
	for _, record := range r.sorted() {
		if filter.PageType != nil && record.PageType != *filter.PageType {
			continue
		}
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && record.Priority != *filter.Priority {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(record.MetaTitle), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, record)
	}
	page, limit := max(filter.Page, 1), filter.Limit
	if limit <= 0 {
		limit = 20
	}
	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	return domain.OffsetPage[domain.SEOMetadata]{Items: matched[start:end], TotalItems: len(matched), Page: page, Limit: limit}, nil
}

func (r *memorySEORepository) ListPublished(context.Context) ([]domain.SEOMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SEOMetadata
	for _, record := range r.sorted() {
		if record.Status == domain.SEOStatusPublished {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *memorySEORepository) ListNeedingAttention(_ context.Context, threshold int, limit int) ([]domain.SEOMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SEOMetadata
	for _, record := range r.sorted() {
		if record.Audit.Score < threshold {
			out = append(out, record)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Audit.Score < out[j].Audit.Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memorySEORepository) UpdateAudit(_ context.Context, id string, audit domain.SEOAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.auditErr != nil {
		return r.auditErr
	}
	record, ok := r.records[id]
	if !ok {
		return seoNotFound(id)
	}
	record.Audit = audit
	r.records[id] = record
	return nil
}

func (r *memorySEORepository) Overview(context.Context) (repositories.SEOOverview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	overview := repositories.SEOOverview{ByStatus: map[domain.SEOStatus]int{}}
	total := 0
	for _, record := range r.records {
		overview.Total++
		overview.ByStatus[record.Status]++
		overview.TotalIssues += len(record.Audit.Issues)
		total += record.Audit.Score
		if record.HasStructuredData() {
			overview.WithStructuredData++
		}
	}
	if overview.Total > 0 {
		overview.AverageScore = float64(total) / float64(overview.Total)
	}
	return overview, nil
}

func (r *memorySEORepository) CountByPageType(context.Context) ([]repositories.SEOPageTypeStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.SEOPageType]int{}
	for _, record := range r.records {
		counts[record.PageType]++
	}
	var out []repositories.SEOPageTypeStats
	for _, pageType := range domain.SEOPageTypes {
		if n := counts[pageType]; n > 0 {
			out = append(out, repositories.SEOPageTypeStats{PageType: pageType, Count: n})
		}
	}
	return out, nil
}

func (r *memorySEORepository) IssueFrequency(context.Context) ([]repositories.SEOIssueFrequency, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[domain.SEOIssueType]int{}
	for _, record := range r.records {
		for _, issue := range record.Audit.Issues {
			counts[issue.Type]++
		}
	}
	out := make([]repositories.SEOIssueFrequency, 0, len(counts))
	for issueType, n := range counts {
		out = append(out, repositories.SEOIssueFrequency{Type: issueType, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func (r *memorySEORepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type memoryProductRepository struct {
	products map[string]domain.Product
	order    []string
	listErr  error
}

func newMemoryProductRepository(products ...domain.Product) *memoryProductRepository {
	repo := &memoryProductRepository{products: map[string]domain.Product{}}
	for _, p := range products {
		repo.products[p.ID] = p
		repo.order = append(repo.order, p.ID)
	}
	return repo
}

func (r *memoryProductRepository) FindByID(_ context.Context, id string) (domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, repositories.NewSEOError(repositories.SEOErrorNotFound, "product "+id+" not found", nil)
	}
	return p, nil
}

// ListAll omits reviews like the Firestore repository does.
func (r *memoryProductRepository) ListAll(context.Context) ([]domain.Product, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		p := r.products[id]
		p.Reviews = nil
		out = append(out, p)
	}
	return out, nil
}

type memoryCategoryRepository struct {
	categories map[string]domain.Category
}

func (r *memoryCategoryRepository) FindByID(_ context.Context, id string) (domain.Category, error) {
	c, ok := r.categories[id]
	if !ok {
		return domain.Category{}, repositories.NewSEOError(repositories.SEOErrorNotFound, "category "+id+" not found", nil)
	}
	return c, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []SEOEvent
	err    error
}

func (p *recordingPublisher) PublishSEOEvent(_ context.Context, event SEOEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []SEOEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]SEOEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type memorySitemapStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func (s *memorySitemapStore) WriteObject(_ context.Context, object, contentType string, body []byte) (StoredObject, error) {
	if s.err != nil {
		return StoredObject{}, s.err
	}
	if s.objects == nil {
		s.objects = map[string][]byte{}
		s.types = map[string]string{}
	}
	s.objects[object] = append([]byte(nil), body...)
	s.types[object] = contentType
	return StoredObject{Bucket: "exports", Name: object, Generation: 1, Size: int64(len(body))}, nil
}

var errBoom = errors.New("boom")
