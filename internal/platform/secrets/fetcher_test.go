package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const analyticsResource = "projects/storefront/secrets/seo_google_analytics_id/versions/latest"

func writeFallback(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".secrets.local")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fallback: %v", err)
	}
	return path
}

func TestResolveCachesRemoteSecret(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.values[analyticsResource] = "G-REMOTE"

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("storefront"), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	for i := 0; i < 3; i++ {
		got, err := fetcher.Resolve(ctx, "secret://seo_google_analytics_id")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if got != "G-REMOTE" {
			t.Fatalf("expected G-REMOTE, got %s", got)
		}
	}
	if calls := client.callCount(analyticsResource); calls != 1 {
		t.Fatalf("expected one remote fetch, got %d", calls)
	}

	fetcher.Invalidate("sm://seo_google_analytics_id")
	if _, err := fetcher.Resolve(ctx, "secret://seo_google_analytics_id"); err != nil {
		t.Fatalf("Resolve after invalidate: %v", err)
	}
	if calls := client.callCount(analyticsResource); calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", calls)
	}
}

func TestResolveHonoursVersionAndProjectOverrides(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	pinned := "projects/shared/secrets/seo_pixel_id/versions/3"
	client.values[pinned] = "pixel-3"

	fetcher, err := NewFetcher(ctx, WithSecretManagerClient(client), WithProject("storefront"))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	got, err := fetcher.Resolve(ctx, "secret://seo_pixel_id?version=3&project=shared")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "pixel-3" {
		t.Fatalf("expected pixel-3, got %s", got)
	}
}

func TestResolveFallsBackWhenSecretManagerDenies(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.errors[analyticsResource] = status.Error(codes.PermissionDenied, "denied")

	fetcher, err := NewFetcher(ctx,
		WithSecretManagerClient(client),
		WithProject("storefront"),
		WithFallbackFile(writeFallback(t, "# local\nsm://seo_google_analytics_id=G-LOCAL\n")),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	got, err := fetcher.Resolve(ctx, "secret://seo_google_analytics_id")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "G-LOCAL" {
		t.Fatalf("expected fallback value, got %s", got)
	}
}

func TestResolveDoesNotFallbackOnNotFound(t *testing.T) {
	ctx := context.Background()
	client := newFakeSecretClient()
	client.errors[analyticsResource] = status.Error(codes.NotFound, "missing")

	fetcher, err := NewFetcher(ctx,
		WithSecretManagerClient(client),
		WithProject("storefront"),
		WithFallbackFile(writeFallback(t, "secret://seo_google_analytics_id=G-LOCAL\n")),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	if _, err := fetcher.Resolve(ctx, "secret://seo_google_analytics_id"); err == nil {
		t.Fatal("expected error for missing remote secret")
	}
}

func TestNewFetcherWithoutCredentialsUsesFallback(t *testing.T) {
	original := newSecretManagerClient
	newSecretManagerClient = func(context.Context, ...option.ClientOption) (secretManagerClient, error) {
		return nil, errors.New("no credentials")
	}
	t.Cleanup(func() { newSecretManagerClient = original })

	ctx := context.Background()
	fetcher, err := NewFetcher(ctx,
		WithProject("storefront"),
		WithFallbackFile(writeFallback(t, "secret://seo_tag_manager_id=GTM-LOCAL\n")),
	)
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	got, err := fetcher.Resolve(ctx, "secret://seo_tag_manager_id")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "GTM-LOCAL" {
		t.Fatalf("expected GTM-LOCAL, got %s", got)
	}
}

func TestParseReferenceRejectsInvalidInput(t *testing.T) {
	for _, ref := range []string{"", "https://example.com/secret", "secret://"} {
		if _, err := parseReference(ref); err == nil {
			t.Fatalf("expected error for %q", ref)
		}
	}
}

type fakeSecretClient struct {
	mu      sync.Mutex
	values  map[string]string
	errors  map[string]error
	counter map[string]int
}

func newFakeSecretClient() *fakeSecretClient {
	return &fakeSecretClient{
		values:  make(map[string]string),
		errors:  make(map[string]error),
		counter: make(map[string]int),
	}
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := req.GetName()
	f.counter[name]++
	if err := f.errors[name]; err != nil {
		return nil, err
	}
	if value, ok := f.values[name]; ok {
		return &secretmanagerpb.AccessSecretVersionResponse{
			Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
		}, nil
	}
	return nil, status.Error(codes.NotFound, "not found")
}

func (f *fakeSecretClient) Close() error { return nil }

func (f *fakeSecretClient) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter[name]
}
