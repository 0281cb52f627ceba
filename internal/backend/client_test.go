package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kingrea/workbench/internal/tier"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestListProjectsSendsTokenAndDecodes(t *testing.T) {
	var gotAuth, gotPath string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"projects":[{"id":"p1","name":"Acme","readiness_score":72.5},{"id":7,"client_name":"Globex"}]}`)
	})
	client, err := New(srv.URL+"/", WithToken(" secret "))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	projects, err := client.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPath != "/v1/projects" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(projects))
	}
	if projects[0].ID != "p1" || projects[1].ID != "7" || projects[1].Client != "Globex" {
		t.Fatalf("unexpected projects: %+v", projects)
	}
	if v, ok := projects[0].ReadinessScore.Value(); !ok || v != 72.5 {
		t.Fatalf("readiness score = %v/%v", v, ok)
	}
}

func TestReadinessResolvesDimensions(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/projects/p 1/readiness" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"score": 10, "dimensions": {"scope": {"score": 80, "weight": 0.5}, "budget": {"score": 60, "weight": 0.5}}}`)
	})
	client, err := New(srv.URL + "/api")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	payload, err := client.Readiness(context.Background(), "p 1")
	if err != nil {
		t.Fatalf("Readiness: %v", err)
	}
	result := tier.Resolve(payload.Readiness(), tier.Presets()["readiness"])
	if result.DisplayPercent != 70 || result.Label != "Fair" {
		t.Fatalf("result = %+v, want 70%% Fair", result)
	}
}

func TestReadinessNotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"project missing"}`)
	})
	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Readiness(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err is not *APIError: %T", err)
	}
	if apiErr.Message != "project missing" || apiErr.Path != "/v1/projects/nope/readiness" {
		t.Fatalf("api error = %+v", apiErr)
	}
}

func TestServerErrorIsNotNotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	client, _ := New(srv.URL)
	_, err := client.ListProjects(context.Background())
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want non-404 API error", err)
	}
	if !strings.Contains(err.Error(), "HTTP 500") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error text = %q", err.Error())
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "::"} {
		if _, err := New(raw); err == nil {
			t.Fatalf("New(%q) succeeded", raw)
		}
	}
}

func TestReadinessRequiresID(t *testing.T) {
	client, _ := New("http://127.0.0.1:1")
	if _, err := client.Readiness(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank id")
	}
}

func TestFetchAllKeepsOrderAndCollectsErrors(t *testing.T) {
	var inflight, peak int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		switch r.URL.Path {
		case "/v1/projects/bad/readiness":
			w.WriteHeader(http.StatusBadGateway)
		default:
			fmt.Fprint(w, `{"score": 55}`)
		}
	})
	client, _ := New(srv.URL, WithConcurrency(2))
	ids := []string{"a", "bad", "c", "d", "e"}
	results, err := client.FetchAll(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("results = %d, want %d", len(results), len(ids))
	}
	for i, res := range results {
		if res.ProjectID != ids[i] {
			t.Fatalf("result %d id = %s, want %s", i, res.ProjectID, ids[i])
		}
		if ids[i] == "bad" {
			if res.Err == nil {
				t.Fatalf("expected error for bad project")
			}
			continue
		}
		if res.Err != nil {
			t.Fatalf("project %s: %v", ids[i], res.Err)
		}
		if v, ok := res.Payload.Score.Value(); !ok || v != 55 {
			t.Fatalf("project %s score = %v/%v", ids[i], v, ok)
		}
	}
	if p := atomic.LoadInt32(&peak); p > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", p)
	}
}

func TestFetchAllHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { once.Do(func() { close(release) }) })
	client, _ := New(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.FetchAll(ctx, []string{"a", "b"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestClientLogsFailures(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	logger := &recordingLogger{}
	client, _ := New(srv.URL, WithLogger(logger))
	if _, err := client.FetchAll(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.lines) != 1 || !strings.Contains(logger.lines[0], "readiness for x failed") {
		t.Fatalf("log lines = %v", logger.lines)
	}
}
