package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/blogwatch/backend/pkg/config"
	pkgerrors "github.com/blogwatch/backend/pkg/errors"
	"github.com/blogwatch/backend/pkg/logger"
)

const sampleFeed = `{
  "posts": [
    {
      "title": "System maintenance window",
      "content": "The intranet will be unavailable on Saturday night.",
      "publish_date": "2026-08-28T18:00:00Z",
      "location": "Budapest",
      "department": "IT",
      "category": "maintenance",
      "likes": 4,
      "comments": 1
    },
    {
      "title": "",
      "content": "entry without a title is dropped",
      "publish_date": "2026-08-28T18:00:00Z"
    },
    {
      "title": "Broken date entry",
      "content": "dropped as well",
      "publish_date": "sometime soon"
    },
    {
      "title": "Cafeteria menu",
      "content": "New vegetarian options from Monday.",
      "publish_date": "2026-08-29 08:00:00",
      "location": "Szeged",
      "department": "Facilities",
      "category": "announcement",
      "is_urgent": true
    }
  ]
}`

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "feed-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestJSONParserSkipsMalformedEntries(t *testing.T) {
	parser := NewJSONParser()
	candidates, err := parser.Parse([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Title != "System maintenance window" {
		t.Fatalf("unexpected first candidate %q", candidates[0].Title)
	}
	if !candidates[1].IsUrgent {
		t.Fatal("expected second candidate to be urgent")
	}
	if candidates[1].PublishDate.IsZero() {
		t.Fatal("expected space-separated publish date to parse")
	}
}

func TestJSONParserRejectsEmptyDocument(t *testing.T) {
	parser := NewJSONParser()
	if _, err := parser.Parse(nil); err == nil {
		t.Fatal("expected error for empty document")
	}
	if _, err := parser.Parse([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestClientFetchesAndParses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 1)
	candidates, err := client.FetchPosts(context.Background())
	if err != nil {
		t.Fatalf("fetch posts: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	if _, err := client.FetchPosts(context.Background()); err != nil {
		t.Fatalf("fetch posts after retry: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	_, err := client.FetchPosts(context.Background())
	if err == nil {
		t.Fatal("expected error for 403")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeIngestion {
		t.Fatalf("expected ingestion error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single call, got %d", got)
	}
}

func newTestClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	client, err := NewClient(ClientParams{
		Config: config.FeedConfig{
			URL:          url,
			Timeout:      5 * time.Second,
			MaxRetries:   retries,
			RetryBackoff: time.Millisecond,
		},
		Parser: NewJSONParser(),
		Logger: testLogger(t),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}
