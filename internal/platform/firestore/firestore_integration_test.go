//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	pconfig "github.com/storefront/seo-api/internal/platform/config"
	pfirestore "github.com/storefront/seo-api/internal/platform/firestore"
)

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"

type sampleEntity struct {
	Name  string `firestore:"name"`
	Count int    `firestore:"count"`
}

func TestProviderAndRepositoryIntegration(t *testing.T) {
	provider := startEmulatorProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	repo := pfirestore.NewBaseRepository[sampleEntity](provider, "samples")
	for i, name := range []string{"alpha", "beta", "gamma"} {
		if err := repo.Set(ctx, fmt.Sprintf("sample-%d", i), sampleEntity{Name: name, Count: i + 1}); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}

	doc, err := repo.Get(ctx, "sample-0")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data.Name != "alpha" || doc.UpdateTime.IsZero() {
		t.Fatalf("unexpected document %#v", doc)
	}

	if err := repo.Update(ctx, "sample-0", []firestore.Update{{Path: "count", Value: 10}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	agg, err := repo.Aggregate(ctx, nil,
		pfirestore.Aggregation{Alias: "n", Kind: pfirestore.AggregateCount},
		pfirestore.Aggregation{Alias: "sum", Kind: pfirestore.AggregateSum, Field: "count"},
		pfirestore.Aggregation{Alias: "avg", Kind: pfirestore.AggregateAvg, Field: "count"},
	)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Int("n") != 3 || agg.Int("sum") != 15 || agg["avg"] != 5 {
		t.Fatalf("unexpected aggregates %v", agg)
	}

	filtered, err := repo.Count(ctx, func(q firestore.Query) firestore.Query { return q.Where("count", ">", 2) })
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if filtered != 2 {
		t.Fatalf("expected 2 matching docs, got %d", filtered)
	}

	if err := repo.Delete(ctx, "sample-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "sample-2"); !pfirestore.IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}

	if err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := repo.DocumentRef(ctx, "sample-1")
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var entity sampleEntity
		if err := snap.DataTo(&entity); err != nil {
			return err
		}
		entity.Count++
		return tx.Set(ref, entity)
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	doc, err = repo.Get(ctx, "sample-1")
	if err != nil {
		t.Fatalf("get after transaction: %v", err)
	}
	if doc.Data.Count != 3 {
		t.Fatalf("expected count=3 after transaction, got %d", doc.Data.Count)
	}

	if err := provider.Ping(ctx, "samples"); err != nil {
		t.Fatalf("ping: %v", err)
	}

	cancelled, cancelTxn := context.WithCancel(context.Background())
	cancelTxn()
	if err := provider.RunTransaction(cancelled, func(context.Context, *firestore.Transaction) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

// startEmulatorProvider runs the Firestore emulator in docker and returns a provider bound to it.
func startEmulatorProvider(t *testing.T) *pfirestore.Provider {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })
	waitForEndpoint(t, endpoint, 30*time.Second)

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "test-project", EmulatorHost: endpoint})
	t.Cleanup(func() { _ = provider.Close(context.Background()) })
	return provider
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		lastErr = err
		time.Sleep(250 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for endpoint")
	}
	t.Fatalf("emulator did not become ready: %v", lastErr)
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Skip("docker daemon unavailable: " + err.Error())
	}
}
