package ytcollect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"ytcollect/config"
	"ytcollect/storage"
	"ytcollect/youtube"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cats := filepath.Join(dir, "categories.yaml")
	if err := os.WriteFile(cats, []byte("categories:\n  - id: \"10\"\n    name: Music\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.CategoriesPath = cats
	cfg.SnapshotDir = filepath.Join(dir, "snapshots")
	cfg.PacingInterval = config.Duration(1)
	return cfg
}

func TestNewAppRequiresKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.APIKey = ""
	if _, err := NewApp(context.Background(), cfg, zerolog.Nop()); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("NewApp() error = %v, want ErrMissingCredential", err)
	}
}

func TestNewAppWiresNotifiers(t *testing.T) {
	cfg := testConfig(t)
	cfg.WebhookURL = "https://hooks.slack.com/services/T000/B000/XXXX"

	app, err := NewApp(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	if len(app.Categories) != 1 || app.Categories[0].ID != "10" {
		t.Errorf("Categories = %+v", app.Categories)
	}
	if app.Notifier.Len() != 2 {
		t.Errorf("notifiers = %d, want log and webhook", app.Notifier.Len())
	}
	if _, err := app.Collector(); err != nil {
		t.Errorf("Collector() error = %v", err)
	}
}

func TestNewAppBadCategories(t *testing.T) {
	cfg := testConfig(t)
	cfg.CategoriesPath = filepath.Join(t.TempDir(), "missing.json")
	if _, err := NewApp(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("NewApp() with missing category file returned nil error")
	}
}

// TestAppRunAgainstFakeAPI drives a full run through the real Data API client
// against an httptest server.
func TestAppRunAgainstFakeAPI(t *testing.T) {
	var videoCalls, channelCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/videos"):
			videoCalls.Add(1)
			w.Write([]byte(`{"items": [
				{"snippet": {"channelId": "UC1"}},
				{"snippet": {"channelId": "UC2"}},
				{"snippet": {"channelId": "UC1"}}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/channels"):
			channelCalls.Add(1)
			w.Write([]byte(`{"items": [
				{"id": "UC1", "snippet": {"title": "One", "description": "mail: one@example.com"}, "statistics": {"subscriberCount": "12", "viewCount": "340", "videoCount": "5"}},
				{"id": "UC2", "snippet": {"title": "Two", "description": "no contact"}}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "ytcollect.prom")

	app, err := NewApp(context.Background(), cfg, zerolog.Nop(), youtube.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	report, err := app.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.NewChannelCount() != 2 || report.TotalChannels != 2 {
		t.Errorf("report = %+v", report)
	}
	if videoCalls.Load() != 1 || channelCalls.Load() != 1 {
		t.Errorf("calls videos=%d channels=%d, want 1 each", videoCalls.Load(), channelCalls.Load())
	}
	if report.QuotaUsed != 2 {
		t.Errorf("QuotaUsed = %d, want 2", report.QuotaUsed)
	}

	d, err := storage.LoadDataset(context.Background(), app.Sink)
	if err != nil {
		t.Fatal(err)
	}
	one, ok := d.Get("UC1")
	if !ok || one.Email != "one@example.com" || one.SubscriberCount != 12 {
		t.Errorf("UC1 = %+v", one)
	}

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	if err != nil {
		t.Fatalf("metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), "ytcollect_dataset_channels 2") {
		t.Errorf("metrics textfile missing dataset gauge:\n%s", prom)
	}
}
