package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "github.com/storefront/seo-api/internal/domain"
	"github.com/storefront/seo-api/internal/platform/textutil"
	"github.com/storefront/seo-api/internal/repositories"
)

const (
	seoInstrumentationName    = "github.com/storefront/seo-api/internal/services"
	seoIDPrefix               = "seo_"
	productPathPrefix         = "/product/"
	categoryPathPrefix        = "/category/"
	homepageSlug              = "home"
	defaultBulkConcurrency    = 8
	defaultAuditThreshold     = 70
	defaultSitemapPrefix      = "seo"
	recommendationPageLimit   = 50
	recommendationReviewLimit = 100
)

var (
	// ErrSEOInvalidInput signals a malformed request or a record that fails schema validation.
	ErrSEOInvalidInput = errors.New("seo: invalid input")
	// ErrSEONotFound signals that no metadata record matches the identifier.
	ErrSEONotFound = errors.New("seo: metadata not found")
	// ErrSEOConflict signals a page URL or slug already owned by another record.
	ErrSEOConflict = errors.New("seo: conflict")
	// ErrSEOEntityNotFound signals that the product or category a page refers to does not exist.
	ErrSEOEntityNotFound = errors.New("seo: entity not found")
	// ErrSEOUnavailable signals a missing or unreachable collaborator.
	ErrSEOUnavailable = errors.New("seo: dependency unavailable")
)

// SEOSettings is the storefront-wide configuration of the SEO pipeline, validated at startup.
type SEOSettings struct {
	BaseDomain      string
	SiteName        string
	DefaultCurrency string
	SocialHandle    string
	BulkConcurrency int
	AuditThreshold  int
	SitemapPrefix   string
	Analytics       domain.SEOAnalytics
}

// SEOServiceDeps bundles the collaborators of the SEO service. Events and Sitemaps are optional.
type SEOServiceDeps struct {
	Repository  repositories.SEORepository
	Products    repositories.ProductRepository
	Categories  repositories.CategoryRepository
	Events      SEOEventPublisher
	Sitemaps    SitemapStore
	Settings    SEOSettings
	Templates   []byte
	Clock       func() time.Time
	IDGenerator func() string
	Logger      *zap.Logger
	Meter       metric.Meter
	Tracer      trace.Tracer
}

type seoService struct {
	repo       repositories.SEORepository
	products   repositories.ProductRepository
	categories repositories.CategoryRepository
	events     SEOEventPublisher
	sitemaps   SitemapStore
	settings   SEOSettings
	synth      *seoSynthesizer
	structured structuredDataGenerator
	rules      []auditRule
	clock      func() time.Time
	newID      func() string
	logger     *zap.Logger
	tracer     trace.Tracer
	metrics    seoMetrics
}

var _ SEOService = (*seoService)(nil)

// NewSEOService validates settings and wires the SEO pipeline.
func NewSEOService(deps SEOServiceDeps) (SEOService, error) {
	if deps.Repository == nil {
		return nil, errors.New("seo service: seo repository is required")
	}
	settings, err := normaliseSEOSettings(deps.Settings)
	if err != nil {
		return nil, err
	}

	templates := deps.Templates
	if len(templates) == 0 {
		templates = seoTemplateSource
	}
	synth, err := newSEOSynthesizer(settings, templates)
	if err != nil {
		return nil, fmt.Errorf("seo service: %w", err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(seoInstrumentationName)
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.Meter(seoInstrumentationName)
	}
	metrics, err := newSEOMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("seo service: register metrics: %w", err)
	}

	return &seoService{
		repo:       deps.Repository,
		products:   deps.Products,
		categories: deps.Categories,
		events:     deps.Events,
		sitemaps:   deps.Sitemaps,
		settings:   settings,
		synth:      synth,
		structured: structuredDataGenerator{settings: settings, text: synth.plainText},
		rules:      seoAuditRules,
		clock:      func() time.Time { return clock().UTC() },
		newID: func() string {
			return ensureSEOID(idGen())
		},
		logger:  logger.Named("seo"),
		tracer:  tracer,
		metrics: metrics,
	}, nil
}

func normaliseSEOSettings(in SEOSettings) (SEOSettings, error) {
	out := in
	out.BaseDomain = strings.TrimRight(strings.TrimSpace(in.BaseDomain), "/")
	if out.BaseDomain == "" {
		return SEOSettings{}, errors.New("seo service: base domain is required")
	}
	out.SiteName = strings.TrimSpace(in.SiteName)
	out.DefaultCurrency = strings.ToUpper(strings.TrimSpace(in.DefaultCurrency))
	if out.DefaultCurrency == "" {
		out.DefaultCurrency = "USD"
	}
	out.SocialHandle = strings.TrimSpace(in.SocialHandle)
	if out.BulkConcurrency <= 0 {
		out.BulkConcurrency = defaultBulkConcurrency
	}
	if out.AuditThreshold <= 0 || out.AuditThreshold > domain.MaxAuditScore {
		out.AuditThreshold = defaultAuditThreshold
	}
	out.SitemapPrefix = strings.Trim(strings.TrimSpace(in.SitemapPrefix), "/")
	if out.SitemapPrefix == "" {
		out.SitemapPrefix = defaultSitemapPrefix
	}
	return out, nil
}

func ensureSEOID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		id = ulid.Make().String()
	}
	if strings.HasPrefix(id, seoIDPrefix) {
		return id
	}
	return seoIDPrefix + id
}

// CreateOrUpdate regenerates the derived fields of a page from its entity data and upserts the record by
// page URL. Fields an editor maintains (headings, links, content analysis, performance, hreflang,
// related pages) carry over from an existing record, as do derived fields whose autoGenerate flag is off.
func (s *seoService) CreateOrUpdate(ctx context.Context, cmd UpsertSEOCommand) (SEOUpsertResult, error) {
	pageURL := normalisePageURL(cmd.PageURL)
	if pageURL == "" {
		return SEOUpsertResult{}, fmt.Errorf("%w: pageUrl is required", ErrSEOInvalidInput)
	}
	if strings.TrimSpace(string(cmd.PageType)) == "" {
		return SEOUpsertResult{}, fmt.Errorf("%w: pageType is required", ErrSEOInvalidInput)
	}
	if !cmd.PageType.Valid() {
		return SEOUpsertResult{}, fmt.Errorf("%w: pageType %q is not supported", ErrSEOInvalidInput, cmd.PageType)
	}
	cmd.PageURL = pageURL

	entity, err := s.loadEntity(ctx, cmd.PageType, strings.TrimSpace(cmd.EntityID))
	if err != nil {
		return SEOUpsertResult{}, err
	}
	return s.upsert(ctx, cmd, entity.withCustomData(cmd.CustomData))
}

func (s *seoService) loadEntity(ctx context.Context, pageType domain.SEOPageType, entityID string) (seoEntity, error) {
	if entityID == "" {
		return seoEntity{}, nil
	}
	switch pageType {
	case domain.SEOPageTypeProduct:
		if s.products == nil {
			return seoEntity{}, fmt.Errorf("%w: product repository not configured", ErrSEOUnavailable)
		}
		product, err := s.products.FindByID(ctx, entityID)
		if err != nil {
			return seoEntity{}, s.mapEntityError("product", entityID, err)
		}
		return productEntity(product), nil
	case domain.SEOPageTypeCategory:
		if s.categories == nil {
			return seoEntity{}, fmt.Errorf("%w: category repository not configured", ErrSEOUnavailable)
		}
		category, err := s.categories.FindByID(ctx, entityID)
		if err != nil {
			return seoEntity{}, s.mapEntityError("category", entityID, err)
		}
		return categoryEntity(category), nil
	default:
		return seoEntity{Kind: "custom", ID: entityID}, nil
	}
}

func (s *seoService) upsert(ctx context.Context, cmd UpsertSEOCommand, entity seoEntity) (SEOUpsertResult, error) {
	existing, found, err := s.findExisting(ctx, cmd.PageURL)
	if err != nil {
		return SEOUpsertResult{}, err
	}

	record, err := s.buildRecord(cmd, entity)
	if err != nil {
		return SEOUpsertResult{}, err
	}
	if found {
		record = carryOver(record, existing, cmd)
	}
	record.Audit = s.scoreRecord(record)

	if err := record.Validate(); err != nil {
		return SEOUpsertResult{}, fmt.Errorf("%w: %w", ErrSEOInvalidInput, err)
	}

	result, err := s.repo.UpsertByPageURL(ctx, record)
	if err != nil {
		return SEOUpsertResult{}, s.mapRepositoryError(err)
	}
	s.metrics.upserts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("page_type", string(record.PageType)),
		attribute.Bool("created", result.Created),
	))
	s.publish(ctx, SEOEvent{
		Type:     SEOEventUpserted,
		RecordID: result.Record.ID,
		PageURL:  result.Record.PageURL,
		PageType: string(result.Record.PageType),
		ActorID:  cmd.ActorID,
		Metadata: map[string]string{"created": fmt.Sprint(result.Created), "entityId": entity.ID},
	})
	return SEOUpsertResult(result), nil
}

func (s *seoService) findExisting(ctx context.Context, pageURL string) (domain.SEOMetadata, bool, error) {
	existing, err := s.repo.FindByPageURL(ctx, pageURL)
	if err == nil {
		return existing, true, nil
	}
	if isRepositoryNotFound(err) {
		return domain.SEOMetadata{}, false, nil
	}
	return domain.SEOMetadata{}, false, s.mapRepositoryError(err)
}

func (s *seoService) buildRecord(cmd UpsertSEOCommand, entity seoEntity) (domain.SEOMetadata, error) {
	text := s.synth.Synthesize(entity, cmd.PageType)
	if title, ok := customString(cmd.CustomData, "metaTitle"); ok {
		text.Title = title
	}
	if desc, ok := customString(cmd.CustomData, "metaDescription"); ok {
		text.Description = desc
	}
	if keywords, ok := customStrings(cmd.CustomData, "keywords"); ok {
		text.Keywords = keywords
	}

	slug := pageSlug(cmd.PageURL)
	if custom, ok := customString(cmd.CustomData, "slug"); ok {
		slug = textutil.Slugify(custom)
	}
	if slug == "" {
		return domain.SEOMetadata{}, fmt.Errorf("%w: unable to derive a slug for %s", ErrSEOInvalidInput, cmd.PageURL)
	}

	status := cmd.Status
	if status == "" {
		status = domain.SEOStatusDraft
	}
	og := s.synth.OpenGraph(entity, cmd.PageType, text, cmd.PageURL)
	now := s.clock()

	record := domain.SEOMetadata{
		ID:              s.newID(),
		PageURL:         cmd.PageURL,
		Slug:            slug,
		PageType:        cmd.PageType,
		EntityType:      entity.Kind,
		EntityID:        entity.ID,
		MetaTitle:       text.Title,
		MetaDescription: text.Description,
		Keywords:        text.Keywords,
		CanonicalURL:    joinBaseURL(s.settings.BaseDomain, cmd.PageURL),
		Robots:          domain.SEORobots{Index: true, Follow: true},
		OpenGraph:       og,
		TwitterCard:     s.synth.TwitterCard(og),
		StructuredData:  s.structuredDataFor(entity, cmd.PageType, cmd.PageURL),
		Images:          entityImages(entity),
		Status:          status,
		Priority:        cmd.Priority,
		Analytics:       s.settings.Analytics,
		CreatedBy:       cmd.ActorID,
		LastModifiedBy:  cmd.ActorID,
		AutoGenerate:    domain.DefaultSEOAutoGenerate(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return record, nil
}

// carryOver keeps the editorial state of existing in a regenerated record.
func carryOver(record, existing domain.SEOMetadata, cmd UpsertSEOCommand) domain.SEOMetadata {
	if cmd.Status == "" && existing.Status != "" {
		record.Status = existing.Status
	}
	if cmd.Priority == "" {
		record.Priority = existing.Priority
	}
	record.AutoGenerate = existing.AutoGenerate
	if !existing.AutoGenerate.MetaTitle {
		record.MetaTitle = existing.MetaTitle
	}
	if !existing.AutoGenerate.MetaDescription {
		record.MetaDescription = existing.MetaDescription
	}
	if !existing.AutoGenerate.Keywords {
		record.Keywords = existing.Keywords
	}
	if !existing.AutoGenerate.StructuredData {
		record.StructuredData = existing.StructuredData
	}
	if existing.Analytics != (domain.SEOAnalytics{}) {
		record.Analytics = existing.Analytics
	}
	record.Robots = existing.Robots
	record.Language = existing.Language
	record.Region = existing.Region
	record.Hreflang = existing.Hreflang
	record.Headings = existing.Headings
	record.InternalLinks = existing.InternalLinks
	record.ExternalLinks = existing.ExternalLinks
	record.ContentAnalysis = existing.ContentAnalysis
	record.Performance = existing.Performance
	record.RelatedPages = existing.RelatedPages
	if existing.CanonicalURL != "" {
		record.CanonicalURL = existing.CanonicalURL
	}
	return record
}

func (s *seoService) structuredDataFor(entity seoEntity, pageType domain.SEOPageType, pageURL string) []domain.StructuredData {
	switch {
	case pageType == domain.SEOPageTypeProduct && entity.product != nil:
		return []domain.StructuredData{
			s.structured.Product(*entity.product, pageURL),
			s.structured.ProductBreadcrumb(*entity.product, pageURL),
		}
	case pageType == domain.SEOPageTypeCategory && entity.Name != "":
		return []domain.StructuredData{
			s.structured.CategoryBreadcrumb(domain.Category{Name: entity.Name, Slug: entity.CategorySlug}, pageURL),
		}
	case pageType == domain.SEOPageTypeHomepage:
		return []domain.StructuredData{s.structured.Organization()}
	}
	return nil
}

func (s *seoService) scoreRecord(record domain.SEOMetadata) domain.SEOAudit {
	score, issues := evaluateAudit(s.rules, record)
	at := s.clock()
	return domain.SEOAudit{LastAuditDate: &at, Issues: issues, Score: score}
}

func (s *seoService) GetByPageURL(ctx context.Context, pageURL string) (domain.SEOMetadata, error) {
	pageURL = normalisePageURL(pageURL)
	if pageURL == "" {
		return domain.SEOMetadata{}, fmt.Errorf("%w: pageUrl is required", ErrSEOInvalidInput)
	}
	record, err := s.repo.FindByPageURL(ctx, pageURL)
	if err != nil {
		return domain.SEOMetadata{}, s.mapRepositoryError(err)
	}
	return record, nil
}

func (s *seoService) List(ctx context.Context, filter SEOListFilter) (domain.OffsetPage[domain.SEOMetadata], error) {
	if filter.PageType != nil && !filter.PageType.Valid() {
		return domain.OffsetPage[domain.SEOMetadata]{}, fmt.Errorf("%w: pageType %q is not supported", ErrSEOInvalidInput, *filter.PageType)
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return domain.OffsetPage[domain.SEOMetadata]{}, fmt.Errorf("%w: status %q is not supported", ErrSEOInvalidInput, *filter.Status)
	}
	if filter.Priority != nil && (*filter.Priority == "" || !filter.Priority.Valid()) {
		return domain.OffsetPage[domain.SEOMetadata]{}, fmt.Errorf("%w: priority %q is not supported", ErrSEOInvalidInput, *filter.Priority)
	}
	filter.Search = strings.TrimSpace(filter.Search)
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.OffsetPage[domain.SEOMetadata]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// Update applies cmd in replace or merge mode. Replace drops every field absent from cmd.Record except
// the insert-only ones; merge changes only the non-nil patch fields.
func (s *seoService) Update(ctx context.Context, cmd UpdateSEOCommand) (domain.SEOMetadata, error) {
	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		return domain.SEOMetadata{}, fmt.Errorf("%w: seo id is required", ErrSEOInvalidInput)
	}
	now := s.clock()

	var (
		stored domain.SEOMetadata
		err    error
	)
	switch cmd.Mode {
	case SEOUpdateMerge:
		patch := cmd.Patch
		if patch.Slug != nil {
			slug := textutil.Slugify(*patch.Slug)
			patch.Slug = &slug
		}
		patch.LastModifiedBy = cmd.ActorID
		patch.UpdatedAt = now
		stored, err = s.repo.Merge(ctx, id, patch)
	case SEOUpdateReplace, "":
		record := cmd.Record
		record.ID = id
		record.PageURL = normalisePageURL(record.PageURL)
		if record.PageURL == "" {
			return domain.SEOMetadata{}, fmt.Errorf("%w: pageUrl is required", ErrSEOInvalidInput)
		}
		if record.Slug = textutil.Slugify(record.Slug); record.Slug == "" {
			record.Slug = pageSlug(record.PageURL)
		}
		if record.Status == "" {
			record.Status = domain.SEOStatusDraft
		}
		record.Audit.Score = domain.ClampAuditScore(record.Audit.Score)
		record.LastModifiedBy = cmd.ActorID
		record.UpdatedAt = now
		if err := record.Validate(); err != nil {
			return domain.SEOMetadata{}, fmt.Errorf("%w: %w", ErrSEOInvalidInput, err)
		}
		stored, err = s.repo.Replace(ctx, record)
	default:
		return domain.SEOMetadata{}, fmt.Errorf("%w: update mode %q is not supported", ErrSEOInvalidInput, cmd.Mode)
	}
	if err != nil {
		return domain.SEOMetadata{}, s.mapRepositoryError(err)
	}

	mode := cmd.Mode
	if mode == "" {
		mode = SEOUpdateReplace
	}
	s.publish(ctx, SEOEvent{
		Type:     SEOEventUpdated,
		RecordID: stored.ID,
		PageURL:  stored.PageURL,
		PageType: string(stored.PageType),
		ActorID:  cmd.ActorID,
		Metadata: map[string]string{"mode": string(mode)},
	})
	return stored, nil
}

func (s *seoService) Delete(ctx context.Context, cmd DeleteSEOCommand) error {
	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		return fmt.Errorf("%w: seo id is required", ErrSEOInvalidInput)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapRepositoryError(err)
	}
	s.publish(ctx, SEOEvent{Type: SEOEventDeleted, RecordID: id, ActorID: cmd.ActorID})
	return nil
}

// Sitemap lists every published page.
func (s *seoService) Sitemap(ctx context.Context) ([]SitemapEntry, error) {
	records, err := s.repo.ListPublished(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return sitemapEntries(s.settings.BaseDomain, records), nil
}

func (s *seoService) SitemapXML(ctx context.Context) ([]byte, error) {
	entries, err := s.Sitemap(ctx)
	if err != nil {
		return nil, err
	}
	return renderSitemapXML(entries)
}

func (s *seoService) RobotsTxt(context.Context) string {
	return renderRobotsTxt(s.settings.BaseDomain)
}

// Audit scores the stored record for the page, persists the audit block and returns it with
// advisory recommendations.
func (s *seoService) Audit(ctx context.Context, cmd AuditSEOCommand) (report SEOAuditReport, err error) {
	pageURL := normalisePageURL(cmd.PageURL)
	if pageURL == "" {
		return SEOAuditReport{}, fmt.Errorf("%w: pageUrl is required", ErrSEOInvalidInput)
	}

	ctx, span := s.tracer.Start(ctx, "seo.Audit", trace.WithAttributes(attribute.String("seo.page_url", pageURL)))
	defer func() { endSpan(span, err) }()

	record, err := s.repo.FindByPageURL(ctx, pageURL)
	if err != nil {
		return SEOAuditReport{}, s.mapRepositoryError(err)
	}

	audit := s.scoreRecord(record)
	if err := s.repo.UpdateAudit(ctx, record.ID, audit); err != nil {
		return SEOAuditReport{}, s.mapRepositoryError(err)
	}
	record.Audit = audit

	span.SetAttributes(attribute.Int("seo.audit.score", audit.Score), attribute.Int("seo.audit.issues", len(audit.Issues)))
	s.metrics.auditScore.Record(ctx, int64(audit.Score), metric.WithAttributes(attribute.String("page_type", string(record.PageType))))
	score := audit.Score
	s.publish(ctx, SEOEvent{
		Type:     SEOEventAudited,
		RecordID: record.ID,
		PageURL:  record.PageURL,
		PageType: string(record.PageType),
		ActorID:  cmd.ActorID,
		Score:    &score,
	})

	return SEOAuditReport{
		RecordID:        record.ID,
		PageURL:         record.PageURL,
		Score:           audit.Score,
		Issues:          audit.Issues,
		Recommendations: auditRecommendations(record),
		AuditedAt:       *audit.LastAuditDate,
	}, nil
}

// BulkUpdate regenerates product page metadata. Each product succeeds or fails on its own; results keep
// the order of the requested IDs (or of the catalog listing when none are given).
func (s *seoService) BulkUpdate(ctx context.Context, cmd BulkSEOCommand) (result BulkSEOResult, err error) {
	if s.products == nil {
		return BulkSEOResult{}, fmt.Errorf("%w: product repository not configured", ErrSEOUnavailable)
	}

	ctx, span := s.tracer.Start(ctx, "seo.BulkUpdate")
	defer func() { endSpan(span, err) }()

	items, err := s.bulkItems(ctx, cmd.ProductIDs)
	if err != nil {
		return BulkSEOResult{}, err
	}
	span.SetAttributes(attribute.Int("seo.bulk.total", len(items)))

	results := make([]BulkSEOItemResult, len(items))
	var g errgroup.Group
	g.SetLimit(s.settings.BulkConcurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = s.bulkOne(ctx, item, cmd.ActorID)
			return nil
		})
	}
	_ = g.Wait()

	summary := BulkSEOSummary{Total: len(results)}
	for _, r := range results {
		outcome := "succeeded"
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
			outcome = "failed"
			s.logger.Warn("bulk seo update failed", zap.String("product_id", r.ProductID), zap.String("error", r.Error))
		}
		s.metrics.bulkItems.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	span.SetAttributes(attribute.Int("seo.bulk.failed", summary.Failed))
	s.logger.Info("bulk seo update completed",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	s.publish(ctx, SEOEvent{Type: SEOEventBulkCompleted, ActorID: cmd.ActorID, Summary: &summary})

	return BulkSEOResult{Results: results, Summary: summary}, nil
}

// bulkItems lists the product IDs to regenerate. Each product is loaded again with its reviews when processed.
func (s *seoService) bulkItems(ctx context.Context, ids []string) ([]string, error) {
	requested := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			requested = append(requested, id)
		}
	}
	if len(requested) > 0 {
		return requested, nil
	}

	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	items := make([]string, 0, len(products))
	for _, p := range products {
		items = append(items, p.ID)
	}
	return items, nil
}

func (s *seoService) bulkOne(ctx context.Context, productID string, actorID string) BulkSEOItemResult {
	out := BulkSEOItemResult{ProductID: productID}
	if err := ctx.Err(); err != nil {
		out.Error = err.Error()
		return out
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		out.Error = s.mapEntityError("product", productID, err).Error()
		return out
	}

	pageURL := productPagePath(product.Name)
	if pageURL == "" {
		out.Error = fmt.Sprintf("%v: product %s has no name to derive a page url from", ErrSEOInvalidInput, productID)
		return out
	}
	out.PageURL = pageURL

	res, err := s.upsert(ctx, UpsertSEOCommand{
		PageURL:  pageURL,
		PageType: domain.SEOPageTypeProduct,
		EntityID: product.ID,
		ActorID:  actorID,
	}, productEntity(product))
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Success = true
	out.SEOID = res.Record.ID
	out.Created = res.Created
	return out
}

func (s *seoService) Overview(ctx context.Context) (SEOAnalyticsOverview, error) {
	overview, err := s.repo.Overview(ctx)
	if err != nil {
		return SEOAnalyticsOverview{}, s.mapRepositoryError(err)
	}
	byType, err := s.repo.CountByPageType(ctx)
	if err != nil {
		return SEOAnalyticsOverview{}, s.mapRepositoryError(err)
	}
	return SEOAnalyticsOverview{
		Total:              overview.Total,
		ByStatus:           overview.ByStatus,
		AverageScore:       overview.AverageScore,
		TotalIssues:        overview.TotalIssues,
		WithStructuredData: overview.WithStructuredData,
		ByPageType:         byType,
	}, nil
}

// Recommendations lists pages scoring below the audit threshold (worst first) followed by pages flagged
// needs_review, together with the issue frequency table.
func (s *seoService) Recommendations(ctx context.Context) (SEORecommendationReport, error) {
	threshold := s.settings.AuditThreshold
	low, err := s.repo.ListNeedingAttention(ctx, threshold, recommendationPageLimit)
	if err != nil {
		return SEORecommendationReport{}, s.mapRepositoryError(err)
	}
	status := domain.SEOStatusNeedsReview
	review, err := s.repo.List(ctx, repositories.SEOListFilter{
		Status:    &status,
		SortBy:    repositories.SEOSortUpdatedAt,
		SortOrder: domain.SortDesc,
		Page:      1,
		Limit:     recommendationReviewLimit,
	})
	if err != nil {
		return SEORecommendationReport{}, s.mapRepositoryError(err)
	}
	frequency, err := s.repo.IssueFrequency(ctx)
	if err != nil {
		return SEORecommendationReport{}, s.mapRepositoryError(err)
	}

	pages := make([]SEOPageAttention, 0, len(low)+len(review.Items))
	index := make(map[string]int, cap(pages))
	add := func(record domain.SEOMetadata, reason string) {
		if i, ok := index[record.ID]; ok {
			pages[i].Reasons = append(pages[i].Reasons, reason)
			return
		}
		index[record.ID] = len(pages)
		pages = append(pages, SEOPageAttention{
			ID:         record.ID,
			PageURL:    record.PageURL,
			PageType:   record.PageType,
			Status:     record.Status,
			Score:      record.Audit.Score,
			IssueCount: len(record.Audit.Issues),
			Reasons:    []string{reason},
		})
	}
	for _, record := range low {
		add(record, fmt.Sprintf("audit score %d is below %d", record.Audit.Score, threshold))
	}
	for _, record := range review.Items {
		add(record, "flagged for review")
	}

	sort.SliceStable(frequency, func(i, j int) bool { return frequency[i].Count > frequency[j].Count })
	return SEORecommendationReport{Threshold: threshold, Pages: pages, CommonIssues: frequency}, nil
}

// StructuredData generates schema.org data for a product, a category or the organization.
func (s *seoService) StructuredData(ctx context.Context, entityType string, entityID string) (domain.StructuredData, error) {
	entityID = strings.TrimSpace(entityID)
	switch strings.ToLower(strings.TrimSpace(entityType)) {
	case "organization":
		return s.structured.Organization(), nil
	case "product":
		if s.products == nil {
			return domain.StructuredData{}, fmt.Errorf("%w: product repository not configured", ErrSEOUnavailable)
		}
		if entityID == "" {
			return domain.StructuredData{}, fmt.Errorf("%w: product id is required", ErrSEOInvalidInput)
		}
		product, err := s.products.FindByID(ctx, entityID)
		if err != nil {
			return domain.StructuredData{}, s.mapEntityError("product", entityID, err)
		}
		return s.structured.Product(product, productPagePath(product.Name)), nil
	case "category":
		if s.categories == nil {
			return domain.StructuredData{}, fmt.Errorf("%w: category repository not configured", ErrSEOUnavailable)
		}
		if entityID == "" {
			return domain.StructuredData{}, fmt.Errorf("%w: category id is required", ErrSEOInvalidInput)
		}
		category, err := s.categories.FindByID(ctx, entityID)
		if err != nil {
			return domain.StructuredData{}, s.mapEntityError("category", entityID, err)
		}
		return s.structured.CategoryBreadcrumb(category, ""), nil
	default:
		return domain.StructuredData{}, fmt.Errorf("%w: entity type %q is not supported", ErrSEOInvalidInput, entityType)
	}
}

// PublishSitemap renders sitemap.xml and robots.txt and writes both under the configured prefix of the
// exports bucket.
func (s *seoService) PublishSitemap(ctx context.Context, cmd PublishSitemapCommand) (SitemapPublication, error) {
	if s.sitemaps == nil {
		return SitemapPublication{}, fmt.Errorf("%w: sitemap store not configured", ErrSEOUnavailable)
	}
	entries, err := s.Sitemap(ctx)
	if err != nil {
		return SitemapPublication{}, err
	}
	body, err := renderSitemapXML(entries)
	if err != nil {
		return SitemapPublication{}, err
	}

	sitemap, err := s.sitemaps.WriteObject(ctx, path.Join(s.settings.SitemapPrefix, "sitemap.xml"), "application/xml", body)
	if err != nil {
		return SitemapPublication{}, fmt.Errorf("%w: write sitemap: %w", ErrSEOUnavailable, err)
	}
	robots, err := s.sitemaps.WriteObject(ctx, path.Join(s.settings.SitemapPrefix, "robots.txt"), "text/plain; charset=utf-8", []byte(s.RobotsTxt(ctx)))
	if err != nil {
		return SitemapPublication{}, fmt.Errorf("%w: write robots.txt: %w", ErrSEOUnavailable, err)
	}

	publication := SitemapPublication{Sitemap: sitemap, Robots: robots, Entries: len(entries), PublishedAt: s.clock()}
	s.publish(ctx, SEOEvent{
		Type:    SEOEventSitemapPublished,
		ActorID: cmd.ActorID,
		Metadata: map[string]string{
			"sitemap": sitemap.Bucket + "/" + sitemap.Name,
			"entries": fmt.Sprint(len(entries)),
		},
	})
	return publication, nil
}

// publish is best effort; a failed publish never fails the operation that triggered it.
func (s *seoService) publish(ctx context.Context, event SEOEvent) {
	if s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock()
	}
	event.Metadata = textutil.CompactStringMap(event.Metadata)
	if err := s.events.PublishSEOEvent(ctx, event); err != nil {
		s.logger.Warn("publish seo event failed",
			zap.String("type", string(event.Type)),
			zap.String("record_id", event.RecordID),
			zap.Error(err),
		)
	}
}

func (s *seoService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrSEOMetadataInvalid) {
		return fmt.Errorf("%w: %w", ErrSEOInvalidInput, err)
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %w", ErrSEONotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %w", ErrSEOConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %w", ErrSEOUnavailable, err)
		}
	}
	return err
}

func (s *seoService) mapEntityError(kind, id string, err error) error {
	if isRepositoryNotFound(err) {
		return fmt.Errorf("%w: %s %s not found", ErrSEOEntityNotFound, kind, id)
	}
	return s.mapRepositoryError(err)
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// normalisePageURL trims the URL and ensures a leading slash. Absolute URLs are kept as given.
func normalisePageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "/") {
		return raw
	}
	return "/" + raw
}

// pageSlug derives the record slug from the page path, e.g. "/product/red-shirt" -> "product-red-shirt".
func pageSlug(pageURL string) string {
	trimmed := strings.Trim(pageURL, "/")
	if trimmed == "" {
		return homepageSlug
	}
	return textutil.Slugify(trimmed)
}

func productPagePath(name string) string {
	slug := textutil.Slugify(name)
	if slug == "" {
		return ""
	}
	return productPathPrefix + slug
}

func categoryPath(slug, name string) string {
	if slug = textutil.Slugify(slug); slug == "" {
		slug = textutil.Slugify(name)
	}
	return categoryPathPrefix + slug
}

func entityImages(entity seoEntity) []domain.SEOImage {
	if entity.product != nil {
		images := make([]domain.SEOImage, 0, len(entity.product.Images))
		for _, img := range entity.product.Images {
			if strings.TrimSpace(img.URL) == "" {
				continue
			}
			images = append(images, domain.SEOImage{URL: img.URL, Alt: img.Alt, Title: entity.Name})
		}
		return images
	}
	if entity.Image != "" {
		return []domain.SEOImage{{URL: entity.Image, Alt: entity.ImageAlt}}
	}
	return nil
}

func customString(data map[string]any, key string) (string, bool) {
	v, ok := data[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func customStrings(data map[string]any, key string) ([]string, bool) {
	var raw []string
	switch v := data[key].(type) {
	case []string:
		raw = v
	case []any:
		for _, item := range v {
			if str, ok := item.(string); ok {
				raw = append(raw, str)
			}
		}
	default:
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, keyword := range raw {
		if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
			out = append(out, keyword)
		}
	}
	return out, len(out) > 0
}

type seoMetrics struct {
	upserts    metric.Int64Counter
	bulkItems  metric.Int64Counter
	auditScore metric.Int64Histogram
}

func newSEOMetrics(meter metric.Meter) (seoMetrics, error) {
	upserts, err := meter.Int64Counter("seo.metadata.upserts", metric.WithDescription("SEO records created or regenerated"))
	if err != nil {
		return seoMetrics{}, err
	}
	bulkItems, err := meter.Int64Counter("seo.bulk.items", metric.WithDescription("Products processed by bulk regeneration"))
	if err != nil {
		return seoMetrics{}, err
	}
	auditScore, err := meter.Int64Histogram("seo.audit.score", metric.WithDescription("Audit scores of audited pages"))
	if err != nil {
		return seoMetrics{}, err
	}
	return seoMetrics{upserts: upserts, bulkItems: bulkItems, auditScore: auditScore}, nil
}
