package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/losredoe132/muellabfuhr-reminder/internal/config"
	"github.com/losredoe132/muellabfuhr-reminder/internal/model"
)

// scheduleBody mirrors the /api/schedule JSON for assertions. Dates
// and categories arrive as their string forms.
type scheduleBody struct {
	LinkState string     `json:"link_state"`
	FetchedAt *time.Time `json:"fetched_at"`
	Events    []struct {
		Date     string `json:"date"`
		Category string `json:"category"`
	} `json:"events"`
	LastError string `json:"last_error"`
}

func testSchedule() model.Schedule {
	return model.Schedule{
		FetchedAt: time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC),
		Events: []model.PickupEvent{
			{Date: model.Date{Year: 2026, Month: 1, Day: 19}, Category: model.CategoryPaper},
		},
	}
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeSchedule(t *testing.T, rec *httptest.ResponseRecorder) scheduleBody {
	t.Helper()
	var body scheduleBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	srv := NewServer(&config.Config{}, nil)
	rec := doGet(t, srv.Handler(), "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestScheduleBeforeFirstFetch(t *testing.T) {
	srv := NewServer(&config.Config{}, nil)
	rec := doGet(t, srv.Handler(), "/api/schedule")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeSchedule(t, rec)
	if body.LinkState != "disconnected" {
		t.Errorf("link_state = %q, want disconnected", body.LinkState)
	}
	if body.FetchedAt != nil {
		t.Errorf("fetched_at = %v, want absent before the first fetch", body.FetchedAt)
	}
	if body.Events == nil || len(body.Events) != 0 {
		t.Errorf("events = %v, want empty array", body.Events)
	}
}

func TestSchedulePublishAndFailure(t *testing.T) {
	srv := NewServer(&config.Config{}, nil)
	h := srv.Handler()

	srv.SetLinkState("connected")
	srv.RecordFailure(errors.New("calendar fetch failed: 503"))

	body := decodeSchedule(t, doGet(t, h, "/api/schedule"))
	if body.LinkState != "connected" {
		t.Errorf("link_state = %q, want connected", body.LinkState)
	}
	if !strings.Contains(body.LastError, "calendar fetch failed") {
		t.Errorf("last_error = %q, want the recorded failure", body.LastError)
	}

	if err := srv.Publish(context.Background(), testSchedule()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	body = decodeSchedule(t, doGet(t, h, "/api/schedule"))
	if body.LastError != "" {
		t.Errorf("last_error = %q, want cleared after a successful refresh", body.LastError)
	}
	if body.FetchedAt == nil {
		t.Fatal("fetched_at missing after publish")
	}
	if len(body.Events) != 1 {
		t.Fatalf("got %d events, want 1", len(body.Events))
	}
	if body.Events[0].Date != "2026-01-19" || body.Events[0].Category != "paper" {
		t.Errorf("event = %+v, want the paper pickup on 2026-01-19", body.Events[0])
	}
}

func TestCalendarRoute(t *testing.T) {
	srv := NewServer(&config.Config{}, nil)
	h := srv.Handler()

	rec := doGet(t, h, "/calendar.ics")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before publish = %d, want 503", rec.Code)
	}

	if err := srv.Publish(context.Background(), testSchedule()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	rec = doGet(t, h, "/calendar.ics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q, want text/calendar", ct)
	}
	if !strings.Contains(rec.Body.String(), "BEGIN:VCALENDAR") {
		t.Errorf("body is not a calendar:\n%s", rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := &config.Config{
		BasicAuth: &config.BasicAuthConfig{Username: "admin", Password: "secret"},
	}
	h := NewServer(cfg, nil).Handler()

	rec := doGet(t, h, "/api/schedule")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without credentials = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("401 response is missing WWW-Authenticate")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status with wrong password = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/schedule", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with credentials = %d, want 200", rec.Code)
	}

	// The liveness probe stays open.
	if rec := doGet(t, h, "/health"); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200 without credentials", rec.Code)
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("metrics-ok"))
	})
	srv := NewServer(&config.Config{}, metrics)
	rec := doGet(t, srv.Handler(), "/metrics")
	if rec.Code != http.StatusOK || rec.Body.String() != "metrics-ok" {
		t.Errorf("metrics route: status = %d body = %q", rec.Code, rec.Body.String())
	}

	bare := NewServer(&config.Config{}, nil)
	if rec := doGet(t, bare.Handler(), "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without handler: status = %d, want 404", rec.Code)
	}
}
