package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/storefront/seo-api/internal/domain"
	"github.com/storefront/seo-api/internal/platform/auth"
	"github.com/storefront/seo-api/internal/platform/httpx"
	"github.com/storefront/seo-api/internal/platform/pagination"
	"github.com/storefront/seo-api/internal/repositories"
	"github.com/storefront/seo-api/internal/services"
)

const (
	maxSEOBodySize     = 256 * 1024
	maxSEOBulkBodySize = 1024 * 1024

	contentTypeXML  = "application/xml; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

var seoSortFields = []string{
	string(repositories.SEOSortCreatedAt),
	string(repositories.SEOSortUpdatedAt),
	string(repositories.SEOSortPageURL),
	string(repositories.SEOSortMetaTitle),
	string(repositories.SEOSortAuditScore),
	string(repositories.SEOSortPriority),
}

type createSEORequest struct {
	PageURL    string         `json:"pageUrl"`
	PageType   string         `json:"pageType"`
	EntityID   string         `json:"entityId"`
	CustomData map[string]any `json:"customData"`
	Status     string         `json:"status"`
	Priority   string         `json:"priority"`
}

type bulkSEORequest struct {
	ProductIDs []string `json:"productIds"`
}

// SEOHandlers exposes the metadata API. Reads are public; writes require a staff identity.
type SEOHandlers struct {
	authn      *auth.Authenticator
	seo        services.SEOService
	staffRoles []string
}

// SEOHandlerOption customises SEOHandlers.
type SEOHandlerOption func(*SEOHandlers)

// WithSEOStaffRoles replaces the roles admitted to the write routes.
func WithSEOStaffRoles(roles ...string) SEOHandlerOption {
	return func(h *SEOHandlers) {
		if len(roles) > 0 {
			h.staffRoles = roles
		}
	}
}

// NewSEOHandlers constructs SEOHandlers. A nil authenticator leaves the staff routes unguarded.
func NewSEOHandlers(authn *auth.Authenticator, seo services.SEOService, opts ...SEOHandlerOption) *SEOHandlers {
	h := &SEOHandlers{
		authn:      authn,
		seo:        seo,
		staffRoles: []string{auth.RoleStaff, auth.RoleAdmin},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /seo endpoints.
func (h *SEOHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/sitemap.xml", h.sitemapXML)
	r.Get("/robots.txt", h.robotsTxt)
	r.Get("/structured-data/{entityType}", h.structuredData)
	r.Get("/structured-data/{entityType}/{entityId}", h.structuredData)
	r.Get("/{pageUrl}", h.getByPageURL)

	r.Group(func(staff chi.Router) {
		if h.authn != nil {
			staff.Use(h.authn.RequireFirebaseAuth(h.staffRoles...))
		}
		staff.Post("/", h.createOrUpdate)
		staff.Get("/", h.list)
		staff.Get("/audit/{pageUrl}", h.audit)
		staff.Post("/bulk-update", h.bulkUpdate)
		staff.Get("/analytics/overview", h.overview)
		staff.Get("/recommendations", h.recommendations)
		staff.Post("/sitemap:publish", h.publishSitemap)
		staff.Put("/{seoId}", h.update)
		staff.Delete("/{seoId}", h.delete)
	})
}

// RootRoutes serves sitemap.xml and robots.txt at the site root for crawlers.
func (h *SEOHandlers) RootRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/sitemap.xml", h.sitemapXML)
	r.Get("/robots.txt", h.robotsTxt)
}

func (h *SEOHandlers) createOrUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	var req createSEORequest
	if err := decodeJSONBody(w, r, maxSEOBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.seo.CreateOrUpdate(ctx, services.UpsertSEOCommand{
		PageURL:    req.PageURL,
		PageType:   domain.SEOPageType(strings.TrimSpace(req.PageType)),
		EntityID:   strings.TrimSpace(req.EntityID),
		CustomData: req.CustomData,
		Status:     domain.SEOStatus(strings.TrimSpace(req.Status)),
		Priority:   domain.SEOPriority(strings.TrimSpace(req.Priority)),
		ActorID:    auth.ActorID(ctx),
	})
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}

	status, message := http.StatusOK, "SEO metadata updated"
	if result.Created {
		status, message = http.StatusCreated, "SEO metadata created"
	}
	httpx.WriteSuccess(w, status, newSEORecordPayload(result.Record), message)
}

func (h *SEOHandlers) getByPageURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	pageURL, ok := pageURLParam(ctx, w, r)
	if !ok {
		return
	}
	record, err := h.seo.GetByPageURL(ctx, pageURL)
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, newSEORecordPayload(record), "SEO metadata retrieved")
}

func (h *SEOHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	query := r.URL.Query()
	params, err := pagination.Parse(query, pagination.Options{
		AllowedSortFields: seoSortFields,
		DefaultSortBy:     string(repositories.SEOSortCreatedAt),
		DefaultSortDesc:   true,
	})
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}

	filter := services.SEOListFilter{
		Search:    strings.TrimSpace(query.Get("search")),
		SortBy:    repositories.SEOSortField(params.SortBy),
		SortOrder: domain.SortAsc,
		Page:      params.Page,
		Limit:     params.Limit,
	}
	if params.SortDesc {
		filter.SortOrder = domain.SortDesc
	}
	if raw := strings.TrimSpace(query.Get("pageType")); raw != "" {
		v := domain.SEOPageType(raw)
		filter.PageType = &v
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		v := domain.SEOStatus(raw)
		filter.Status = &v
	}
	if raw := strings.TrimSpace(query.Get("priority")); raw != "" {
		v := domain.SEOPriority(raw)
		filter.Priority = &v
	}

	page, err := h.seo.List(ctx, filter)
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	items := make([]seoRecordPayload, 0, len(page.Items))
	for _, record := range page.Items {
		items = append(items, newSEORecordPayload(record))
	}
	httpx.WriteSuccess(w, http.StatusOK, items, "SEO metadata retrieved", map[string]any{
		"pagination": pagination.NewMeta(params.Page, params.Limit, page.TotalItems),
	})
}

func (h *SEOHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "seoId"))
	if id == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "seo id is required", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateSEOCommand{
		ID:      id,
		Mode:    services.SEOUpdateMode(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode")))),
		ActorID: auth.ActorID(ctx),
	}
	if cmd.Mode == services.SEOUpdateMerge {
		var patch seoPatchPayload
		if err := decodeJSONBody(w, r, maxSEOBodySize, &patch); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		cmd.Patch = patch.toPatch()
	} else {
		var record seoRecordPayload
		if err := decodeJSONBody(w, r, maxSEOBodySize, &record); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		cmd.Record = record.toDomain()
	}

	updated, err := h.seo.Update(ctx, cmd)
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, newSEORecordPayload(updated), "SEO metadata updated")
}

func (h *SEOHandlers) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "seoId"))
	if err := h.seo.Delete(ctx, services.DeleteSEOCommand{ID: id, ActorID: auth.ActorID(ctx)}); err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, nil, "SEO metadata deleted")
}

func (h *SEOHandlers) sitemapXML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	body, err := h.seo.SitemapXML(ctx)
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	httpx.WriteText(w, http.StatusOK, contentTypeXML, body)
}

func (h *SEOHandlers) robotsTxt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	httpx.WriteText(w, http.StatusOK, contentTypeText, []byte(h.seo.RobotsTxt(ctx)))
}

func (h *SEOHandlers) audit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	pageURL, ok := pageURLParam(ctx, w, r)
	if !ok {
		return
	}
	report, err := h.seo.Audit(ctx, services.AuditSEOCommand{PageURL: pageURL, ActorID: auth.ActorID(ctx)})
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	recommendations := report.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}
	httpx.WriteSuccess(w, http.StatusOK, auditReportPayload{
		RecordID:        report.RecordID,
		PageURL:         report.PageURL,
		Score:           report.Score,
		Issues:          auditIssuePayloads(report.Issues),
		Recommendations: recommendations,
		AuditedAt:       report.AuditedAt,
	}, "SEO audit completed")
}

func (h *SEOHandlers) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	var req bulkSEORequest
	if err := decodeJSONBody(w, r, maxSEOBulkBodySize, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	result, err := h.seo.BulkUpdate(ctx, services.BulkSEOCommand{ProductIDs: req.ProductIDs, ActorID: auth.ActorID(ctx)})
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	payload := bulkResultPayload{
		Results: mapSlice(result.Results, func(v services.BulkSEOItemResult) bulkItemPayload { return bulkItemPayload(v) }),
		Summary: result.Summary,
	}
	if payload.Results == nil {
		payload.Results = []bulkItemPayload{}
	}
	httpx.WriteSuccess(w, http.StatusOK, payload, "Bulk SEO update completed")
}

func (h *SEOHandlers) overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	overview, err := h.seo.Overview(ctx)
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	byStatus := make(map[string]int, len(overview.ByStatus))
	for status, count := range overview.ByStatus {
		byStatus[string(status)] = count
	}
	byPageType := make([]pageTypeStatsPayload, 0, len(overview.ByPageType))
	for _, stats := range overview.ByPageType {
		byPageType = append(byPageType, pageTypeStatsPayload{
			PageType:     string(stats.PageType),
			Count:        stats.Count,
			AverageScore: stats.AverageScore,
		})
	}
	httpx.WriteSuccess(w, http.StatusOK, overviewPayload{
		Total:              overview.Total,
		ByStatus:           byStatus,
		AverageScore:       overview.AverageScore,
		TotalIssues:        overview.TotalIssues,
		WithStructuredData: overview.WithStructuredData,
		ByPageType:         byPageType,
	}, "SEO overview retrieved")
}

func (h *SEOHandlers) recommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	report, err := h.seo.Recommendations(ctx)
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	payload := recommendationsPayload{
		Threshold:    report.Threshold,
		Pages:        make([]pageAttentionPayload, 0, len(report.Pages)),
		CommonIssues: make([]issueFrequencyPayload, 0, len(report.CommonIssues)),
	}
	for _, page := range report.Pages {
		payload.Pages = append(payload.Pages, pageAttentionPayload{
			ID:         page.ID,
			PageURL:    page.PageURL,
			PageType:   string(page.PageType),
			Status:     string(page.Status),
			Score:      page.Score,
			IssueCount: page.IssueCount,
			Reasons:    page.Reasons,
		})
	}
	for _, issue := range report.CommonIssues {
		payload.CommonIssues = append(payload.CommonIssues, issueFrequencyPayload{Type: string(issue.Type), Count: issue.Count})
	}
	httpx.WriteSuccess(w, http.StatusOK, payload, "SEO recommendations retrieved")
}

func (h *SEOHandlers) structuredData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	data, err := h.seo.StructuredData(ctx, chi.URLParam(r, "entityType"), chi.URLParam(r, "entityId"))
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, structuredDataPayload{Type: string(data.Type), Data: data.Data}, "Structured data generated")
}

func (h *SEOHandlers) publishSitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.available(ctx, w) {
		return
	}
	publication, err := h.seo.PublishSitemap(ctx, services.PublishSitemapCommand{ActorID: auth.ActorID(ctx)})
	if err != nil {
		writeSEOError(ctx, w, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, sitemapPublicationPayload{
		Sitemap:     storedObjectPayload(publication.Sitemap),
		Robots:      storedObjectPayload(publication.Robots),
		Entries:     publication.Entries,
		PublishedAt: publication.PublishedAt,
	}, "Sitemap published")
}

func (h *SEOHandlers) available(ctx context.Context, w http.ResponseWriter) bool {
	if h.seo == nil {
		httpx.WriteError(ctx, w, httpx.NewError("seo_service_unavailable", "seo service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

// pageURLParam decodes the escaped page url segment, e.g. %2Fproduct%2Fred-shirt.
func pageURLParam(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "pageUrl")
	pageURL, err := url.PathUnescape(raw)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pageUrl is not a valid escaped path", http.StatusBadRequest))
		return "", false
	}
	if strings.TrimSpace(pageURL) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pageUrl is required", http.StatusBadRequest))
		return "", false
	}
	return pageURL, true
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("request body too large")
		}
		return errors.New("request body must be valid JSON")
	}
	return nil
}

func writeSEOError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrSEOInvalidInput),
		errors.Is(err, pagination.ErrInvalidPage),
		errors.Is(err, pagination.ErrInvalidLimit),
		errors.Is(err, pagination.ErrInvalidSortBy),
		errors.Is(err, pagination.ErrInvalidSortOrder):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrSEOEntityNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("entity_not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrSEONotFound):
		httpx.WriteError(ctx, w, httpx.NewError("seo_not_found", "SEO metadata not found", http.StatusNotFound))
	case errors.Is(err, services.ErrSEOConflict):
		httpx.WriteError(ctx, w, httpx.NewError("seo_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrSEOUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("seo_unavailable", err.Error(), http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("seo_error", err.Error(), http.StatusInternalServerError))
	}
}
