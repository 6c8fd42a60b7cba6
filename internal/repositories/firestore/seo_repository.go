package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/storefront/seo-api/internal/domain"
	pfirestore "github.com/storefront/seo-api/internal/platform/firestore"
	"github.com/storefront/seo-api/internal/repositories"
)

const (
	// SEOMetadataCollection holds one document per page url.
	SEOMetadataCollection  = "seoMetadata"
	seoUniqueKeyCollection = "seoUniqueKeys"

	defaultSEOListLimit = 20
	maxSEOListLimit     = 100
	maxSEOListPage      = 10000
)

// SEORepository stores SEO metadata in Firestore. Uniqueness of pageUrl and slug is enforced with claim
// documents in seoUniqueKeys written in the same transaction as the record.
type SEORepository struct {
	provider *pfirestore.Provider
	records  *pfirestore.BaseRepository[seoDocument]
	claims   *pfirestore.BaseRepository[seoClaimDocument]
}

var _ repositories.SEORepository = (*SEORepository)(nil)

func NewSEORepository(provider *pfirestore.Provider) (*SEORepository, error) {
	if provider == nil {
		return nil, errors.New("seo repository requires firestore provider")
	}
	return &SEORepository{
		provider: provider,
		records:  pfirestore.NewBaseRepository[seoDocument](provider, SEOMetadataCollection),
		claims:   pfirestore.NewBaseRepository[seoClaimDocument](provider, seoUniqueKeyCollection),
	}, nil
}

// UpsertByPageURL inserts the record when no document owns its page URL, otherwise replaces the owner
// while keeping its ID, CreatedAt and CreatedBy.
func (r *SEORepository) UpsertByPageURL(ctx context.Context, record domain.SEOMetadata) (repositories.SEOUpsertResult, error) {
	if r == nil || r.provider == nil {
		return repositories.SEOUpsertResult{}, errors.New("seo repository not initialised")
	}
	if strings.TrimSpace(record.PageURL) == "" {
		return repositories.SEOUpsertResult{}, errors.New("seo upsert: page url is required")
	}

	var result repositories.SEOUpsertResult
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		pageClaim, err := r.readClaim(ctx, tx, pageURLClaimID(record.PageURL))
		if err != nil {
			return err
		}

		next := record
		var existing *domain.SEOMetadata
		if pageClaim != nil {
			current, err := r.readRecord(ctx, tx, pageClaim.Owner)
			if err != nil {
				return err
			}
			existing = current
		}
		switch {
		case existing != nil:
			next.ID = existing.ID
			next.CreatedAt = existing.CreatedAt
			next.CreatedBy = existing.CreatedBy
		case pageClaim != nil:
			// orphaned claim left by a record deleted outside this repository
			next.ID = pageClaim.Owner
		case strings.TrimSpace(next.ID) == "":
			return errors.New("seo upsert: id is required for new records")
		}

		claims, err := r.checkClaims(ctx, tx, next, existing)
		if err != nil {
			return err
		}
		if err := r.write(ctx, tx, next, claims); err != nil {
			return err
		}
		result = repositories.SEOUpsertResult{Record: next, Created: existing == nil}
		return nil
	})
	if err != nil {
		return repositories.SEOUpsertResult{}, wrapSEOError("seoMetadata.upsert", err)
	}
	return result, nil
}

// Replace overwrites the record with the given ID. Fields absent from record are dropped.
func (r *SEORepository) Replace(ctx context.Context, record domain.SEOMetadata) (domain.SEOMetadata, error) {
	if r == nil || r.provider == nil {
		return domain.SEOMetadata{}, errors.New("seo repository not initialised")
	}
	var stored domain.SEOMetadata
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := r.readRecord(ctx, tx, record.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return repositories.NewSEOError(repositories.SEOErrorNotFound, fmt.Sprintf("seo metadata %s not found", record.ID), nil)
		}
		next := record
		next.CreatedAt = existing.CreatedAt
		next.CreatedBy = existing.CreatedBy

		claims, err := r.checkClaims(ctx, tx, next, existing)
		if err != nil {
			return err
		}
		if err := r.write(ctx, tx, next, claims); err != nil {
			return err
		}
		stored = next
		return nil
	})
	if err != nil {
		return domain.SEOMetadata{}, wrapSEOError("seoMetadata.replace", err)
	}
	return stored, nil
}

// Merge applies the non-nil fields of patch to the stored record. The merged result is validated
// before it is written.
func (r *SEORepository) Merge(ctx context.Context, id string, patch repositories.SEOMetadataPatch) (domain.SEOMetadata, error) {
	if r == nil || r.provider == nil {
		return domain.SEOMetadata{}, errors.New("seo repository not initialised")
	}
	var stored domain.SEOMetadata
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := r.readRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return repositories.NewSEOError(repositories.SEOErrorNotFound, fmt.Sprintf("seo metadata %s not found", id), nil)
		}
		next := patch.Apply(*existing)
		if err := next.Validate(); err != nil {
			return err
		}
		claims, err := r.checkClaims(ctx, tx, next, existing)
		if err != nil {
			return err
		}
		if err := r.write(ctx, tx, next, claims); err != nil {
			return err
		}
		stored = next
		return nil
	})
	if err != nil {
		return domain.SEOMetadata{}, wrapSEOError("seoMetadata.merge", err)
	}
	return stored, nil
}

func (r *SEORepository) FindByID(ctx context.Context, id string) (domain.SEOMetadata, error) {
	doc, err := r.records.Get(ctx, id)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return domain.SEOMetadata{}, repositories.NewSEOError(repositories.SEOErrorNotFound, fmt.Sprintf("seo metadata %s not found", id), err)
		}
		return domain.SEOMetadata{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *SEORepository) FindByPageURL(ctx context.Context, pageURL string) (domain.SEOMetadata, error) {
	docs, err := r.records.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("pageUrl", "==", pageURL).Limit(1)
	})
	if err != nil {
		return domain.SEOMetadata{}, err
	}
	if len(docs) == 0 {
		return domain.SEOMetadata{}, repositories.NewSEOError(repositories.SEOErrorNotFound, fmt.Sprintf("seo metadata for %s not found", pageURL), nil)
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// Delete removes the record and releases its page URL and slug claims.
func (r *SEORepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.provider == nil {
		return errors.New("seo repository not initialised")
	}
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := r.readRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return repositories.NewSEOError(repositories.SEOErrorNotFound, fmt.Sprintf("seo metadata %s not found", id), nil)
		}
		pageClaim, err := r.readClaim(ctx, tx, pageURLClaimID(existing.PageURL))
		if err != nil {
			return err
		}
		slugClaim, err := r.readClaim(ctx, tx, slugClaimID(existing.Slug))
		if err != nil {
			return err
		}

		ref, err := r.records.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ref); err != nil {
			return err
		}
		for _, claim := range []*seoClaimDocument{pageClaim, slugClaim} {
			if claim == nil || claim.Owner != id {
				continue
			}
			if err := r.releaseClaim(ctx, tx, claim.id); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapSEOError("seoMetadata.delete", err)
}

// List applies equality filters and ordering in Firestore. Substring search has no index to use, so a
// search request scans the filtered set and paginates in memory.
func (r *SEORepository) List(ctx context.Context, filter repositories.SEOListFilter) (domain.OffsetPage[domain.SEOMetadata], error) {
	page, limit := normalisePage(filter.Page, filter.Limit)
	result := domain.OffsetPage[domain.SEOMetadata]{Page: page, Limit: limit}

	filtered := func(q firestore.Query) firestore.Query {
		if filter.PageType != nil {
			q = q.Where("pageType", "==", string(*filter.PageType))
		}
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		if filter.Priority != nil {
			q = q.Where("priority", "==", string(*filter.Priority))
		}
		return q
	}
	ordered := func(q firestore.Query) firestore.Query {
		field := filter.SortBy
		if field == "" {
			field = repositories.SEOSortCreatedAt
		}
		direction := firestore.Desc
		if filter.SortOrder == domain.SortAsc {
			direction = firestore.Asc
		}
		return filtered(q).OrderBy(string(field), direction)
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	if search == "" {
		total, err := r.records.Count(ctx, filtered)
		if err != nil {
			return result, err
		}
		docs, err := r.records.Query(ctx, func(q firestore.Query) firestore.Query {
			return ordered(q).Offset((page - 1) * limit).Limit(limit)
		})
		if err != nil {
			return result, err
		}
		result.TotalItems = total
		result.Items = toDomainRecords(docs)
		return result, nil
	}

	docs, err := r.records.Query(ctx, ordered)
	if err != nil {
		return result, err
	}
	matches := make([]domain.SEOMetadata, 0, len(docs))
	for _, doc := range docs {
		record := doc.Data.toDomain(doc.ID)
		if matchesSearch(record, search) {
			matches = append(matches, record)
		}
	}
	result.TotalItems = len(matches)
	start := (page - 1) * limit
	if start > len(matches) {
		start = len(matches)
	}
	end := start + limit
	if end > len(matches) {
		end = len(matches)
	}
	result.Items = matches[start:end]
	return result, nil
}

// ListPublished returns every published record ordered by page URL.
func (r *SEORepository) ListPublished(ctx context.Context) ([]domain.SEOMetadata, error) {
	docs, err := r.records.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("status", "==", string(domain.SEOStatusPublished)).OrderBy("pageUrl", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	return toDomainRecords(docs), nil
}

// ListNeedingAttention returns the lowest scoring records below threshold, worst first.
func (r *SEORepository) ListNeedingAttention(ctx context.Context, scoreThreshold int, limit int) ([]domain.SEOMetadata, error) {
	if limit <= 0 {
		limit = defaultSEOListLimit
	}
	docs, err := r.records.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("audit.score", "<", scoreThreshold).OrderBy("audit.score", firestore.Asc).Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	return toDomainRecords(docs), nil
}

// UpdateAudit overwrites only the audit block of a record.
func (r *SEORepository) UpdateAudit(ctx context.Context, id string, audit domain.SEOAudit) error {
	err := r.records.Update(ctx, id, []firestore.Update{{Path: "audit", Value: newSEOAuditDocument(audit)}})
	if pfirestore.IsNotFound(err) {
		return repositories.NewSEOError(repositories.SEOErrorNotFound, fmt.Sprintf("seo metadata %s not found", id), err)
	}
	return err
}

func (r *SEORepository) Overview(ctx context.Context) (repositories.SEOOverview, error) {
	totals, err := r.records.Aggregate(ctx, nil,
		pfirestore.Aggregation{Alias: "total", Kind: pfirestore.AggregateCount},
		pfirestore.Aggregation{Alias: "avgScore", Kind: pfirestore.AggregateAvg, Field: "audit.score"},
		pfirestore.Aggregation{Alias: "issues", Kind: pfirestore.AggregateSum, Field: "audit.issueCount"},
	)
	if err != nil {
		return repositories.SEOOverview{}, err
	}
	overview := repositories.SEOOverview{
		Total:        totals.Int("total"),
		AverageScore: totals["avgScore"],
		TotalIssues:  totals.Int("issues"),
		ByStatus:     make(map[domain.SEOStatus]int, len(domain.SEOStatuses)),
	}
	for _, status := range domain.SEOStatuses {
		count, err := r.records.Count(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("status", "==", string(status))
		})
		if err != nil {
			return repositories.SEOOverview{}, err
		}
		overview.ByStatus[status] = count
	}
	withData, err := r.records.Count(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("hasStructuredData", "==", true)
	})
	if err != nil {
		return repositories.SEOOverview{}, err
	}
	overview.WithStructuredData = withData
	return overview, nil
}

// CountByPageType reports count and average score for every page type that has records.
func (r *SEORepository) CountByPageType(ctx context.Context) ([]repositories.SEOPageTypeStats, error) {
	var stats []repositories.SEOPageTypeStats
	for _, pageType := range domain.SEOPageTypes {
		agg, err := r.records.Aggregate(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("pageType", "==", string(pageType))
		},
			pfirestore.Aggregation{Alias: "count", Kind: pfirestore.AggregateCount},
			pfirestore.Aggregation{Alias: "avgScore", Kind: pfirestore.AggregateAvg, Field: "audit.score"},
		)
		if err != nil {
			return nil, err
		}
		if agg.Int("count") == 0 {
			continue
		}
		stats = append(stats, repositories.SEOPageTypeStats{
			PageType:     pageType,
			Count:        agg.Int("count"),
			AverageScore: agg["avgScore"],
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })
	return stats, nil
}

// IssueFrequency counts audit issues across records that have any, most frequent first.
func (r *SEORepository) IssueFrequency(ctx context.Context) ([]repositories.SEOIssueFrequency, error) {
	docs, err := r.records.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("audit.issueCount", ">", 0).Select("audit")
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.SEOIssueType]int)
	for _, doc := range docs {
		for _, issue := range doc.Data.Audit.Issues {
			counts[domain.SEOIssueType(issue.Type)]++
		}
	}
	out := make([]repositories.SEOIssueFrequency, 0, len(counts))
	for issueType, count := range counts {
		out = append(out, repositories.SEOIssueFrequency{Type: issueType, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

type pendingClaims struct {
	claim   []seoClaimDocument
	release []string
}

// checkClaims verifies that next may own its page URL and slug and works out which claims to write and
// which stale claims of existing to release. All reads happen here so writes can follow.
func (r *SEORepository) checkClaims(ctx context.Context, tx *firestore.Transaction, next domain.SEOMetadata, existing *domain.SEOMetadata) (pendingClaims, error) {
	var pending pendingClaims
	keys := []struct {
		id    string
		kind  string
		value string
		code  repositories.SEOErrorCode
		old   string
	}{
		{pageURLClaimID(next.PageURL), "pageUrl", next.PageURL, repositories.SEOErrorDuplicatePageURL, ""},
		{slugClaimID(next.Slug), "slug", next.Slug, repositories.SEOErrorDuplicateSlug, ""},
	}
	if existing != nil {
		keys[0].old = pageURLClaimID(existing.PageURL)
		keys[1].old = slugClaimID(existing.Slug)
	}

	for _, key := range keys {
		claim, err := r.readClaim(ctx, tx, key.id)
		if err != nil {
			return pendingClaims{}, err
		}
		if claim != nil && claim.Owner != next.ID {
			return pendingClaims{}, repositories.NewSEOError(key.code, fmt.Sprintf("%s %q is already used by another record", key.kind, key.value), nil)
		}
		pending.claim = append(pending.claim, seoClaimDocument{id: key.id, Kind: key.kind, Value: key.value, Owner: next.ID})
		if key.old != "" && key.old != key.id {
			pending.release = append(pending.release, key.old)
		}
	}
	return pending, nil
}

func (r *SEORepository) write(ctx context.Context, tx *firestore.Transaction, record domain.SEOMetadata, claims pendingClaims) error {
	ref, err := r.records.DocumentRef(ctx, record.ID)
	if err != nil {
		return err
	}
	if err := tx.Set(ref, newSEODocument(record)); err != nil {
		return err
	}
	for _, claim := range claims.claim {
		claimRef, err := r.claims.DocumentRef(ctx, claim.id)
		if err != nil {
			return err
		}
		if err := tx.Set(claimRef, claim); err != nil {
			return err
		}
	}
	for _, id := range claims.release {
		if err := r.releaseClaim(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *SEORepository) releaseClaim(ctx context.Context, tx *firestore.Transaction, id string) error {
	ref, err := r.claims.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	return tx.Delete(ref)
}

func (r *SEORepository) readClaim(ctx context.Context, tx *firestore.Transaction, id string) (*seoClaimDocument, error) {
	ref, err := r.claims.DocumentRef(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := tx.Get(ref)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var claim seoClaimDocument
	if err := snap.DataTo(&claim); err != nil {
		return nil, fmt.Errorf("decode seo claim %s: %w", id, err)
	}
	claim.id = id
	return &claim, nil
}

func (r *SEORepository) readRecord(ctx context.Context, tx *firestore.Transaction, id string) (*domain.SEOMetadata, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	ref, err := r.records.DocumentRef(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := tx.Get(ref)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc seoDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode seo metadata %s: %w", id, err)
	}
	record := doc.toDomain(id)
	return &record, nil
}

func wrapSEOError(op string, err error) error {
	if err == nil {
		return nil
	}
	var seoErr *repositories.SEOError
	if errors.As(err, &seoErr) {
		if seoErr.Op == "" {
			seoErr.Op = op
		}
		return seoErr
	}
	if errors.Is(err, domain.ErrSEOMetadataInvalid) {
		return err
	}
	return pfirestore.WrapError(op, err)
}

func pageURLClaimID(pageURL string) string {
	return claimID("pageUrl", pageURL)
}

func slugClaimID(slug string) string {
	return claimID("slug", slug)
}

func claimID(kind, value string) string {
	sum := sha256.Sum256([]byte(value))
	return kind + ":" + hex.EncodeToString(sum[:])
}

func normalisePage(page, limit int) (int, int) {
	page = min(max(page, 1), maxSEOListPage)
	if limit <= 0 {
		limit = defaultSEOListLimit
	}
	if limit > maxSEOListLimit {
		limit = maxSEOListLimit
	}
	return page, limit
}

func matchesSearch(record domain.SEOMetadata, needle string) bool {
	for _, haystack := range []string{record.MetaTitle, record.MetaDescription, record.PageURL, record.Slug} {
		if strings.Contains(strings.ToLower(haystack), needle) {
			return true
		}
	}
	return false
}

func toDomainRecords(docs []pfirestore.Document[seoDocument]) []domain.SEOMetadata {
	out := make([]domain.SEOMetadata, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.Data.toDomain(doc.ID))
	}
	return out
}

type seoClaimDocument struct {
	id    string
	Kind  string `firestore:"kind"`
	Value string `firestore:"value"`
	Owner string `firestore:"owner"`
}

type seoDocument struct {
	PageURL           string                   `firestore:"pageUrl"`
	Slug              string                   `firestore:"slug"`
	PageType          string                   `firestore:"pageType"`
	EntityType        string                   `firestore:"entityType,omitempty"`
	EntityID          string                   `firestore:"entityId,omitempty"`
	MetaTitle         string                   `firestore:"metaTitle"`
	MetaDescription   string                   `firestore:"metaDescription"`
	Keywords          []string                 `firestore:"keywords"`
	CanonicalURL      string                   `firestore:"canonicalUrl,omitempty"`
	Robots            seoRobotsDocument        `firestore:"robots"`
	Language          string                   `firestore:"language,omitempty"`
	Region            string                   `firestore:"region,omitempty"`
	Hreflang          []seoHreflangDocument    `firestore:"hreflang,omitempty"`
	OpenGraph         seoOpenGraphDocument     `firestore:"openGraph"`
	TwitterCard       seoTwitterDocument       `firestore:"twitterCard"`
	StructuredData    []structuredDataDocument `firestore:"structuredData"`
	HasStructuredData bool                     `firestore:"hasStructuredData"`
	Headings          []seoHeadingDocument     `firestore:"headings,omitempty"`
	Images            []seoImageDocument       `firestore:"images,omitempty"`
	InternalLinks     []seoLinkDocument        `firestore:"internalLinks,omitempty"`
	ExternalLinks     []seoLinkDocument        `firestore:"externalLinks,omitempty"`
	ContentAnalysis   seoContentDocument       `firestore:"contentAnalysis"`
	Performance       seoPerformanceDocument   `firestore:"performance"`
	Status            string                   `firestore:"status"`
	Priority          string                   `firestore:"priority"`
	Analytics         seoAnalyticsDocument     `firestore:"analytics"`
	Audit             seoAuditDocument         `firestore:"audit"`
	RelatedPages      []string                 `firestore:"relatedPages,omitempty"`
	CreatedBy         string                   `firestore:"createdBy,omitempty"`
	LastModifiedBy    string                   `firestore:"lastModifiedBy,omitempty"`
	AutoGenerate      seoAutoGenerateDocument  `firestore:"autoGenerate"`
	CreatedAt         time.Time                `firestore:"createdAt"`
	UpdatedAt         time.Time                `firestore:"updatedAt"`
}

type seoRobotsDocument struct {
	Index        bool `firestore:"index"`
	Follow       bool `firestore:"follow"`
	NoArchive    bool `firestore:"noarchive"`
	NoSnippet    bool `firestore:"nosnippet"`
	NoImageIndex bool `firestore:"noimageindex"`
}

type seoHreflangDocument struct {
	Lang string `firestore:"lang"`
	URL  string `firestore:"url"`
}

type seoOpenGraphDocument struct {
	Title       string                `firestore:"title,omitempty"`
	Description string                `firestore:"description,omitempty"`
	Image       string                `firestore:"image,omitempty"`
	ImageAlt    string                `firestore:"imageAlt,omitempty"`
	URL         string                `firestore:"url,omitempty"`
	Type        string                `firestore:"type,omitempty"`
	SiteName    string                `firestore:"siteName,omitempty"`
	Locale      string                `firestore:"locale,omitempty"`
	ProductData *seoOGProductDocument `firestore:"productData,omitempty"`
}

type seoOGProductDocument struct {
	Price        float64 `firestore:"price"`
	Currency     string  `firestore:"currency"`
	Availability string  `firestore:"availability"`
	Condition    string  `firestore:"condition"`
	Brand        string  `firestore:"brand,omitempty"`
	Category     string  `firestore:"category,omitempty"`
}

type seoTwitterDocument struct {
	Card        string `firestore:"card,omitempty"`
	Site        string `firestore:"site,omitempty"`
	Creator     string `firestore:"creator,omitempty"`
	Title       string `firestore:"title,omitempty"`
	Description string `firestore:"description,omitempty"`
	Image       string `firestore:"image,omitempty"`
	ImageAlt    string `firestore:"imageAlt,omitempty"`
}

type structuredDataDocument struct {
	Type string         `firestore:"type"`
	Data map[string]any `firestore:"data"`
}

type seoHeadingDocument struct {
	Level int    `firestore:"level"`
	Text  string `firestore:"text"`
}

type seoImageDocument struct {
	URL     string `firestore:"url"`
	Alt     string `firestore:"alt"`
	Title   string `firestore:"title,omitempty"`
	Caption string `firestore:"caption,omitempty"`
}

type seoLinkDocument struct {
	URL      string `firestore:"url"`
	Anchor   string `firestore:"anchor,omitempty"`
	NoFollow bool   `firestore:"nofollow"`
}

type seoContentDocument struct {
	WordCount      int                `firestore:"wordCount"`
	ReadingTime    int                `firestore:"readingTime"`
	KeywordDensity map[string]float64 `firestore:"keywordDensity,omitempty"`
	ContentScore   int                `firestore:"contentScore"`
}

type seoPerformanceDocument struct {
	LargestContentfulPaint float64 `firestore:"lcp"`
	FirstInputDelay        float64 `firestore:"fid"`
	CumulativeLayoutShift  float64 `firestore:"cls"`
	PageSpeedScore         int     `firestore:"pageSpeedScore"`
	MobileOptimized        bool    `firestore:"mobileOptimized"`
}

type seoAnalyticsDocument struct {
	GoogleAnalyticsID  string `firestore:"googleAnalyticsId,omitempty"`
	GoogleTagManagerID string `firestore:"googleTagManagerId,omitempty"`
	FacebookPixelID    string `firestore:"facebookPixelId,omitempty"`
}

type seoAuditDocument struct {
	LastAuditDate *time.Time              `firestore:"lastAuditDate"`
	Issues        []seoAuditIssueDocument `firestore:"issues"`
	IssueCount    int                     `firestore:"issueCount"`
	Score         int                     `firestore:"score"`
}

type seoAuditIssueDocument struct {
	Type           string `firestore:"type"`
	Severity       string `firestore:"severity"`
	Description    string `firestore:"description"`
	Recommendation string `firestore:"recommendation"`
	Fixed          bool   `firestore:"fixed"`
}

type seoAutoGenerateDocument struct {
	MetaTitle       bool `firestore:"metaTitle"`
	MetaDescription bool `firestore:"metaDescription"`
	Keywords        bool `firestore:"keywords"`
	StructuredData  bool `firestore:"structuredData"`
}

func newSEODocument(m domain.SEOMetadata) seoDocument {
	doc := seoDocument{
		PageURL:         m.PageURL,
		Slug:            m.Slug,
		PageType:        string(m.PageType),
		EntityType:      m.EntityType,
		EntityID:        m.EntityID,
		MetaTitle:       m.MetaTitle,
		MetaDescription: m.MetaDescription,
		Keywords:        append([]string{}, m.Keywords...),
		CanonicalURL:    m.CanonicalURL,
		Robots: seoRobotsDocument{
			Index:        m.Robots.Index,
			Follow:       m.Robots.Follow,
			NoArchive:    m.Robots.NoArchive,
			NoSnippet:    m.Robots.NoSnippet,
			NoImageIndex: m.Robots.NoImageIndex,
		},
		Language: m.Language,
		Region:   m.Region,
		OpenGraph: seoOpenGraphDocument{
			Title:       m.OpenGraph.Title,
			Description: m.OpenGraph.Description,
			Image:       m.OpenGraph.Image,
			ImageAlt:    m.OpenGraph.ImageAlt,
			URL:         m.OpenGraph.URL,
			Type:        m.OpenGraph.Type,
			SiteName:    m.OpenGraph.SiteName,
			Locale:      m.OpenGraph.Locale,
		},
		TwitterCard:       seoTwitterDocument(m.TwitterCard),
		StructuredData:    make([]structuredDataDocument, 0, len(m.StructuredData)),
		HasStructuredData: m.HasStructuredData(),
		ContentAnalysis: seoContentDocument{
			WordCount:      m.ContentAnalysis.WordCount,
			ReadingTime:    m.ContentAnalysis.ReadingTime,
			KeywordDensity: m.ContentAnalysis.KeywordDensity,
			ContentScore:   m.ContentAnalysis.ContentScore,
		},
		Performance:    seoPerformanceDocument(m.Performance),
		Status:         string(m.Status),
		Priority:       string(m.Priority),
		Analytics:      seoAnalyticsDocument(m.Analytics),
		Audit:          newSEOAuditDocument(m.Audit),
		RelatedPages:   m.RelatedPages,
		CreatedBy:      m.CreatedBy,
		LastModifiedBy: m.LastModifiedBy,
		AutoGenerate:   seoAutoGenerateDocument(m.AutoGenerate),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
	if pd := m.OpenGraph.ProductData; pd != nil {
		product := seoOGProductDocument(*pd)
		doc.OpenGraph.ProductData = &product
	}
	for _, h := range m.Hreflang {
		doc.Hreflang = append(doc.Hreflang, seoHreflangDocument(h))
	}
	for _, sd := range m.StructuredData {
		doc.StructuredData = append(doc.StructuredData, structuredDataDocument{Type: string(sd.Type), Data: sd.Data})
	}
	for _, h := range m.Headings {
		doc.Headings = append(doc.Headings, seoHeadingDocument(h))
	}
	for _, img := range m.Images {
		doc.Images = append(doc.Images, seoImageDocument(img))
	}
	for _, link := range m.InternalLinks {
		doc.InternalLinks = append(doc.InternalLinks, seoLinkDocument(link))
	}
	for _, link := range m.ExternalLinks {
		doc.ExternalLinks = append(doc.ExternalLinks, seoLinkDocument(link))
	}
	return doc
}

func newSEOAuditDocument(a domain.SEOAudit) seoAuditDocument {
	doc := seoAuditDocument{
		Issues:     make([]seoAuditIssueDocument, 0, len(a.Issues)),
		IssueCount: len(a.Issues),
		Score:      a.Score,
	}
	if a.LastAuditDate != nil {
		at := a.LastAuditDate.UTC()
		doc.LastAuditDate = &at
	}
	for _, issue := range a.Issues {
		doc.Issues = append(doc.Issues, seoAuditIssueDocument{
			Type:           string(issue.Type),
			Severity:       string(issue.Severity),
			Description:    issue.Description,
			Recommendation: issue.Recommendation,
			Fixed:          issue.Fixed,
		})
	}
	return doc
}

func (d seoDocument) toDomain(id string) domain.SEOMetadata {
	m := domain.SEOMetadata{
		ID:              id,
		PageURL:         d.PageURL,
		Slug:            d.Slug,
		PageType:        domain.SEOPageType(d.PageType),
		EntityType:      d.EntityType,
		EntityID:        d.EntityID,
		MetaTitle:       d.MetaTitle,
		MetaDescription: d.MetaDescription,
		Keywords:        d.Keywords,
		CanonicalURL:    d.CanonicalURL,
		Robots: domain.SEORobots{
			Index:        d.Robots.Index,
			Follow:       d.Robots.Follow,
			NoArchive:    d.Robots.NoArchive,
			NoSnippet:    d.Robots.NoSnippet,
			NoImageIndex: d.Robots.NoImageIndex,
		},
		Language: d.Language,
		Region:   d.Region,
		OpenGraph: domain.SEOOpenGraph{
			Title:       d.OpenGraph.Title,
			Description: d.OpenGraph.Description,
			Image:       d.OpenGraph.Image,
			ImageAlt:    d.OpenGraph.ImageAlt,
			URL:         d.OpenGraph.URL,
			Type:        d.OpenGraph.Type,
			SiteName:    d.OpenGraph.SiteName,
			Locale:      d.OpenGraph.Locale,
		},
		TwitterCard: domain.SEOTwitterCard(d.TwitterCard),
		ContentAnalysis: domain.SEOContentAnalysis{
			WordCount:      d.ContentAnalysis.WordCount,
			ReadingTime:    d.ContentAnalysis.ReadingTime,
			KeywordDensity: d.ContentAnalysis.KeywordDensity,
			ContentScore:   d.ContentAnalysis.ContentScore,
		},
		Performance:    domain.SEOPerformance(d.Performance),
		Status:         domain.SEOStatus(d.Status),
		Priority:       domain.SEOPriority(d.Priority),
		Analytics:      domain.SEOAnalytics(d.Analytics),
		RelatedPages:   d.RelatedPages,
		CreatedBy:      d.CreatedBy,
		LastModifiedBy: d.LastModifiedBy,
		AutoGenerate:   domain.SEOAutoGenerate(d.AutoGenerate),
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
		Audit:          domain.SEOAudit{Score: d.Audit.Score},
	}
	if pd := d.OpenGraph.ProductData; pd != nil {
		product := domain.SEOOpenGraphProduct(*pd)
		m.OpenGraph.ProductData = &product
	}
	for _, h := range d.Hreflang {
		m.Hreflang = append(m.Hreflang, domain.SEOHreflang(h))
	}
	for _, sd := range d.StructuredData {
		m.StructuredData = append(m.StructuredData, domain.StructuredData{Type: domain.StructuredDataType(sd.Type), Data: sd.Data})
	}
	for _, h := range d.Headings {
		m.Headings = append(m.Headings, domain.SEOHeading(h))
	}
	for _, img := range d.Images {
		m.Images = append(m.Images, domain.SEOImage(img))
	}
	for _, link := range d.InternalLinks {
		m.InternalLinks = append(m.InternalLinks, domain.SEOLink(link))
	}
	for _, link := range d.ExternalLinks {
		m.ExternalLinks = append(m.ExternalLinks, domain.SEOLink(link))
	}
	if d.Audit.LastAuditDate != nil {
		at := d.Audit.LastAuditDate.UTC()
		m.Audit.LastAuditDate = &at
	}
	for _, issue := range d.Audit.Issues {
		m.Audit.Issues = append(m.Audit.Issues, domain.SEOAuditIssue{
			Type:           domain.SEOIssueType(issue.Type),
			Severity:       domain.SEOSeverity(issue.Severity),
			Description:    issue.Description,
			Recommendation: issue.Recommendation,
			Fixed:          issue.Fixed,
		})
	}
	return m
}
