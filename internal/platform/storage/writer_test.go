package storage

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type uploadedObject struct {
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	CacheControl string `json:"cacheControl"`
	body         string
}

// fakeGCS accepts multipart uploads and bucket lookups of the JSON API.
type fakeGCS struct {
	mu      sync.Mutex
	objects map[string]uploadedObject
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/b/") {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"exports"}`)
		return
	}
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reader := multipart.NewReader(r.Body, params["boundary"])

	var obj uploadedObject
	meta, err := reader.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := json.NewDecoder(meta).Decode(&obj); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	media, err := reader.NextPart()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, _ := io.ReadAll(media)
	obj.body = string(data)

	f.mu.Lock()
	f.objects[obj.Name] = obj
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"bucket":      "exports",
		"name":        obj.Name,
		"contentType": obj.ContentType,
		"generation":  "1700000000000001",
		"size":        len(data),
	})
}

func newFakeGCSClient(t *testing.T) (*gcs.Client, *fakeGCS) {
	t.Helper()
	fake := &fakeGCS{objects: map[string]uploadedObject{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := gcs.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("storage.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, fake
}

func TestObjectWriterWritesObject(t *testing.T) {
	client, fake := newFakeGCSClient(t)
	writer, err := NewObjectWriter(client, "exports", WithCacheControl("no-cache"))
	if err != nil {
		t.Fatalf("NewObjectWriter: %v", err)
	}

	body := []byte("<urlset></urlset>")
	stored, err := writer.WriteObject(context.Background(), "/seo/sitemap.xml", "application/xml", body)
	if err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	if stored.Bucket != "exports" || stored.Name != "seo/sitemap.xml" {
		t.Fatalf("unexpected stored object %+v", stored)
	}
	if stored.Generation != 1700000000000001 {
		t.Fatalf("expected generation from server, got %d", stored.Generation)
	}
	if stored.Size != int64(len(body)) {
		t.Fatalf("expected size %d, got %d", len(body), stored.Size)
	}

	obj, ok := fake.objects["seo/sitemap.xml"]
	if !ok {
		t.Fatalf("object not uploaded: %#v", fake.objects)
	}
	if obj.body != string(body) || obj.ContentType != "application/xml" || obj.CacheControl != "no-cache" {
		t.Fatalf("unexpected upload %+v", obj)
	}

	if err := writer.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestObjectWriterValidation(t *testing.T) {
	if _, err := NewObjectWriter(nil, "exports"); err != errNoClient {
		t.Fatalf("expected errNoClient, got %v", err)
	}
	client, _ := newFakeGCSClient(t)
	if _, err := NewObjectWriter(client, " "); err != errInvalidBucket {
		t.Fatalf("expected errInvalidBucket, got %v", err)
	}

	writer, err := NewObjectWriter(client, "exports")
	if err != nil {
		t.Fatalf("NewObjectWriter: %v", err)
	}
	if _, err := writer.WriteObject(context.Background(), "", "text/plain", nil); err != errInvalidObject {
		t.Fatalf("expected errInvalidObject, got %v", err)
	}
	if _, err := writer.WriteObject(context.Background(), "robots.txt", "", nil); err != errContentMissing {
		t.Fatalf("expected errContentMissing, got %v", err)
	}
}
