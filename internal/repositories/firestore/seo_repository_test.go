package firestore

import "testing"

func TestNormalisePage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{name: "defaults", page: 0, limit: 0, wantPage: 1, wantLimit: defaultSEOListLimit},
		{name: "explicit", page: 3, limit: 50, wantPage: 3, wantLimit: 50},
		{name: "limit clamped", page: 1, limit: 1000, wantPage: 1, wantLimit: maxSEOListLimit},
		{name: "huge page clamped", page: int(^uint(0) >> 1), limit: 100, wantPage: maxSEOListPage, wantLimit: maxSEOListLimit},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, limit := normalisePage(tc.page, tc.limit)
			if page != tc.wantPage || limit != tc.wantLimit {
				t.Fatalf("expected (%d, %d), got (%d, %d)", tc.wantPage, tc.wantLimit, page, limit)
			}
			if offset := (page - 1) * limit; offset < 0 || offset > 1<<31-1 {
				t.Fatalf("offset %d out of range", offset)
			}
		})
	}
}
