package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/config"
	apierrors "github.com/pagerduty-mcp/pagerduty-mcp-server/internal/errors"
	"github.com/pagerduty-mcp/pagerduty-mcp-server/internal/infra"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.APIKey = "test-key"
	cfg.RateLimit = 1000
	return cfg
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]ClientOption{WithBaseURL(server.URL), WithLogger(logger)}, opts...)
	return NewClient(testConfig(), opts...)
}

func TestNewClient(t *testing.T) {
	client := NewClient(testConfig())

	if client.HTTPClient == nil {
		t.Error("HTTPClient is nil")
	}
	if client.Logger == nil {
		t.Error("Logger is nil")
	}
	if client.CircuitBreaker == nil {
		t.Error("CircuitBreaker is nil")
	}
	if client.Limiter == nil {
		t.Error("Limiter is nil")
	}
	if client.HTTPClient.Timeout != config.DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.HTTPClient.Timeout, config.DefaultTimeout)
	}
	if client.BaseURL() != config.DefaultAPIHost {
		t.Errorf("BaseURL = %q, want %q", client.BaseURL(), config.DefaultAPIHost)
	}
}

func TestNewClientWithOptions(t *testing.T) {
	customHTTP := &http.Client{Timeout: 60 * time.Second}
	customLogger := slog.Default()
	customBreaker := infra.NewCircuitBreaker(infra.BreakerConfig{Threshold: 2})
	customLimiter := rate.NewLimiter(rate.Inf, 1)

	client := NewClient(nil,
		WithHTTPClient(customHTTP),
		WithLogger(customLogger),
		WithBaseURL("https://api.eu.pagerduty.com/"),
		WithCircuitBreaker(customBreaker),
		WithRateLimiter(customLimiter),
	)

	if client.HTTPClient != customHTTP {
		t.Error("custom HTTP client was not set")
	}
	if client.Logger != customLogger {
		t.Error("custom logger was not set")
	}
	if client.CircuitBreaker != customBreaker {
		t.Error("custom circuit breaker was not set")
	}
	if client.Limiter != customLimiter {
		t.Error("custom rate limiter was not set")
	}
	if client.BaseURL() != "https://api.eu.pagerduty.com" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", client.BaseURL())
	}
}

func TestGet_SendsHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.FromEmail = "oncall@example.com"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Token token=test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != AcceptHeader {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("From"); got != "oncall@example.com" {
			t.Errorf("From = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != config.DefaultUserAgent {
			t.Errorf("User-Agent = %q", got)
		}
		if r.URL.Path != "/services/PX1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"service": {"id": "PX1", "name": "Checkout"}}`))
	}))
	defer server.Close()

	client := NewClient(cfg, WithBaseURL(server.URL))

	obj, err := client.Get(context.Background(), "/services/PX1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := obj["service"]; !ok {
		t.Errorf("expected 'service' key, got %v", obj)
	}
}

func TestGet_NotAnObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1, 2, 3]`))
	})

	if _, err := client.Get(context.Background(), "/services/PX1"); err == nil {
		t.Error("expected decode error for a JSON array")
	}
}

func TestGet_HTTPError(t *testing.T) {
	body := `{"error":{"message":"Invalid Input Provided","code":2001,"errors":["Invalid team ID format"]}}`
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	})

	_, err := client.Get(context.Background(), "/services/bad")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", httpErr.StatusCode)
	}
	if httpErr.Code != 2001 || httpErr.Message != "Invalid Input Provided" {
		t.Errorf("parsed payload = %d %q", httpErr.Code, httpErr.Message)
	}
	if httpErr.ResponseBody() != body {
		t.Errorf("ResponseBody = %q", httpErr.ResponseBody())
	}
	if !strings.Contains(err.Error(), "Invalid team ID format") {
		t.Errorf("error should include details: %v", err)
	}
	if client.CircuitBreaker.Failures() != 0 {
		t.Error("4xx responses must not count as circuit breaker failures")
	}
}

func TestGet_ServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	})

	_, err := client.Get(context.Background(), "/services/PX1")
	if err == nil {
		t.Fatal("expected error for 502")
	}
	if calls != 1 {
		t.Errorf("server called %d times, want exactly 1", calls)
	}
	if client.CircuitBreaker.Failures() != 1 {
		t.Errorf("breaker failures = %d, want 1", client.CircuitBreaker.Failures())
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error should include the status: %v", err)
	}
}

func TestGet_CircuitOpenFailsFast(t *testing.T) {
	calls := 0
	breaker := infra.NewCircuitBreaker(infra.BreakerConfig{Threshold: 1, Cooldown: time.Hour})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}, WithCircuitBreaker(breaker))

	_, _ = client.Get(context.Background(), "/services/PX1")
	_, err := client.Get(context.Background(), "/services/PX1")

	var openErr *infra.ErrCircuitOpen
	if !errors.As(err, &openErr) {
		t.Fatalf("expected *infra.ErrCircuitOpen, got %v", err)
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}

func TestGet_BreakerRecoversAfterRequestNeverSent(t *testing.T) {
	var healthy atomic.Bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"service": {"id": "PX1"}}`))
	},
		WithCircuitBreaker(infra.NewCircuitBreaker(infra.BreakerConfig{Threshold: 1, Cooldown: 10 * time.Millisecond})),
		WithRateLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)),
	)

	if _, err := client.Get(context.Background(), "/services/PX1"); err == nil {
		t.Fatal("expected 502 error")
	}
	if client.CircuitBreaker.State() != infra.CircuitOpen {
		t.Fatalf("state = %v, want open", client.CircuitBreaker.State())
	}
	time.Sleep(20 * time.Millisecond)

	// The limiter has no token left, so this call gives up before sending
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := client.Get(ctx, "/services/PX1"); err == nil || !strings.Contains(err.Error(), "rate limiter") {
		t.Fatalf("expected rate limiter error, got %v", err)
	}

	healthy.Store(true)
	client.Limiter = nil

	if _, err := client.Get(context.Background(), "/services/PX1"); err != nil {
		t.Fatalf("Get after recovery failed: %v", err)
	}
	if client.CircuitBreaker.State() != infra.CircuitClosed {
		t.Errorf("state = %v, want closed", client.CircuitBreaker.State())
	}
}

func TestGet_ContextCanceled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Get(ctx, "/services/PX1"); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestListAll_FollowsPagination(t *testing.T) {
	var offsets []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		offsets = append(offsets, q.Get("offset"))

		if got := q["team_ids[]"]; len(got) != 2 || got[0] != "T1" || got[1] != "T2" {
			t.Errorf("team_ids[] = %v, want [T1 T2]", got)
		}
		if q.Get("limit") != "2" {
			t.Errorf("limit = %q, want 2", q.Get("limit"))
		}

		offset, _ := strconv.Atoi(q.Get("offset"))
		switch offset {
		case 0:
			_, _ = w.Write([]byte(`{"services":[{"id":"S1"},{"id":"S2"}],"limit":2,"offset":0,"more":true}`))
		case 2:
			_, _ = w.Write([]byte(`{"services":[{"id":"S3"}],"limit":2,"offset":2,"more":false}`))
		default:
			t.Errorf("unexpected offset %d", offset)
		}
	})

	params := url.Values{"team_ids[]": {"T1", "T2"}, "limit": {"2"}}
	records, err := client.ListAll(context.Background(), "/services", params)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []string{`{"id":"S1"}`, `{"id":"S2"}`, `{"id":"S3"}`} {
		if string(records[i]) != want {
			t.Errorf("record %d = %s, want %s", i, records[i], want)
		}
	}
	if strings.Join(offsets, ",") != "0,2" {
		t.Errorf("offsets = %v, want [0 2]", offsets)
	}
	if params.Get("offset") != "" {
		t.Error("ListAll must not modify the caller's params")
	}
}

func TestListAll_DefaultPageSize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != strconv.Itoa(DefaultPageSize) {
			t.Errorf("limit = %q, want %d", got, DefaultPageSize)
		}
		_, _ = w.Write([]byte(`{"services":[],"more":false}`))
	})

	records, err := client.ListAll(context.Background(), "/services", nil)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %v, want empty non-nil slice", records)
	}
}

func TestListAll_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"services":[],"more":true}`))
	})

	if _, err := client.ListAll(context.Background(), "/services", nil); err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, an empty page must end pagination", calls)
	}
}

func TestListAll_MissingKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"teams":[]}`))
	})

	_, err := client.ListAll(context.Background(), "/services", nil)
	if !apierrors.IsContract(err) {
		t.Fatalf("expected ContractError, got %T: %v", err, err)
	}
	if err.Error() != "failed to fetch services: response missing 'services' field" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestListAll_ErrorMidway(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "0" {
			_, _ = w.Write([]byte(`{"services":[{"id":"S1"}],"more":true}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit exceeded","code":2020}}`))
	})

	records, err := client.ListAll(context.Background(), "/services", nil)
	if err == nil {
		t.Fatal("expected error from the second page")
	}
	if records != nil {
		t.Error("partial results must not be returned")
	}
}

func TestEntityKey(t *testing.T) {
	tests := map[string]string{
		"/services":         "services",
		"/services/PX1":     "services",
		"/users/me":         "users",
		"/teams/T1/members": "members",
		"/":                 "unknown",
	}
	for path, want := range tests {
		if got := entityKey(path); got != want {
			t.Errorf("entityKey(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestHTTPError_PlainBody(t *testing.T) {
	err := newHTTPError(http.MethodGet, "/services", 503, []byte(strings.Repeat("x", 300)))
	msg := err.Error()
	if !strings.HasPrefix(msg, fmt.Sprintf("PagerDuty API error %d on GET /services: ", 503)) {
		t.Errorf("unexpected message %q", msg)
	}
	if !strings.HasSuffix(msg, "...") {
		t.Error("long bodies should be truncated")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 7, "this is..."},
		{"", 5, ""},
		{"héllo", 2, "h..."},
		{"日本語", 4, "日..."},
		{"日本語", 6, "日本..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
		if got := truncate(tt.input, tt.maxLen); !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.input, tt.maxLen, got)
		}
	}
}
