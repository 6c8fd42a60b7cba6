package pagination

import (
	"errors"
	"net/url"
	"testing"
)

var seoOptions = Options{
	AllowedSortFields: []string{"createdAt", "pageUrl", "audit.score"},
	DefaultSortBy:     "createdAt",
	DefaultSortDesc:   true,
}

func TestParseDefaults(t *testing.T) {
	params, err := Parse(url.Values{}, seoOptions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Page != 1 || params.Limit != DefaultLimit || params.SortBy != "createdAt" || !params.SortDesc {
		t.Fatalf("unexpected defaults %+v", params)
	}
	if params.SortOrder() != "desc" {
		t.Fatalf("expected desc, got %s", params.SortOrder())
	}
}

func TestParseExplicitValues(t *testing.T) {
	values := url.Values{"page": {"3"}, "limit": {"500"}, "sortBy": {"pageUrl"}, "sortOrder": {"ASC"}}
	params, err := Parse(values, seoOptions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Page != 3 || params.Limit != MaxLimit || params.SortBy != "pageUrl" || params.SortDesc {
		t.Fatalf("unexpected params %+v", params)
	}
}

func TestParseClampsHugePage(t *testing.T) {
	for _, raw := range []string{"10001", "9223372036854775807"} {
		params, err := Parse(url.Values{"page": {raw}, "limit": {"100"}}, seoOptions)
		if err != nil {
			t.Fatalf("page %s: unexpected error: %v", raw, err)
		}
		if params.Page != MaxPage {
			t.Fatalf("page %s: expected %d, got %d", raw, MaxPage, params.Page)
		}
		if offset := (params.Page - 1) * params.Limit; offset < 0 || offset > 1<<31-1 {
			t.Fatalf("page %s: offset %d out of range", raw, offset)
		}
	}
}

func TestParseRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   error
	}{
		{name: "page zero", values: url.Values{"page": {"0"}}, want: ErrInvalidPage},
		{name: "page text", values: url.Values{"page": {"two"}}, want: ErrInvalidPage},
		{name: "negative limit", values: url.Values{"limit": {"-5"}}, want: ErrInvalidLimit},
		{name: "unknown sort", values: url.Values{"sortBy": {"secret"}}, want: ErrInvalidSortBy},
		{name: "bad order", values: url.Values{"sortOrder": {"sideways"}}, want: ErrInvalidSortOrder},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.values, seoOptions); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewMeta(t *testing.T) {
	tests := []struct {
		page, limit, total int
		want               Meta
	}{
		{page: 1, limit: 20, total: 0, want: Meta{CurrentPage: 1}},
		{page: 1, limit: 20, total: 45, want: Meta{CurrentPage: 1, TotalPages: 3, TotalItems: 45, HasNextPage: true}},
		{page: 3, limit: 20, total: 45, want: Meta{CurrentPage: 3, TotalPages: 3, TotalItems: 45, HasPrevPage: true}},
		{page: 2, limit: 10, total: 20, want: Meta{CurrentPage: 2, TotalPages: 2, TotalItems: 20, HasPrevPage: true}},
	}
	for _, tc := range tests {
		if got := NewMeta(tc.page, tc.limit, tc.total); got != tc.want {
			t.Fatalf("NewMeta(%d,%d,%d) = %+v, want %+v", tc.page, tc.limit, tc.total, got, tc.want)
		}
	}
}
