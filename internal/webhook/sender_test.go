package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ycradar/internal/domain"
)

type recordingServer struct {
	mu       sync.Mutex
	payloads []map[string]any
	failIDs  map[string]bool
	*httptest.Server
}

func newRecordingServer(t *testing.T, failIDs ...string) *recordingServer {
	t.Helper()
	rs := &recordingServer{failIDs: make(map[string]bool)}
	for _, id := range failIDs {
		rs.failIDs[id] = true
	}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		var p map[string]any
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("invalid JSON body: %v", err)
		}
		rs.mu.Lock()
		rs.payloads = append(rs.payloads, p)
		fail := rs.failIDs[asString(p["id"])]
		rs.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func (rs *recordingServer) sentIDs() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	var out []string
	for _, p := range rs.payloads {
		out = append(out, asString(p["id"]))
	}
	return out
}

func testSender(url string, maxRetries int) *Sender {
	s := NewSender(url, 5*time.Second, maxRetries, nil)
	s.sleep = func(time.Duration) {}
	s.now = func() time.Time { return time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC) }
	return s
}

func company(id string) domain.Company {
	return domain.Company{ID: id, Name: "company-" + id, Batch: "W26"}
}

func TestDeliverPayloadShape(t *testing.T) {
	srv := newRecordingServer(t)
	s := testSender(srv.URL, 1)

	c := domain.Company{
		ID:       "123",
		Name:     "Acme",
		Slug:     "acme",
		URL:      "https://www.ycombinator.com/companies/acme",
		Batch:    "W26",
		Tags:     []string{"ai", "devtools"},
		IsHiring: true,
	}
	delivered, failed := s.Deliver(context.Background(), nil, []domain.Company{c})

	if len(delivered) != 1 || delivered[0] != "123" {
		t.Fatalf("delivered = %v, want [123]", delivered)
	}
	if len(failed) != 0 {
		t.Fatalf("failed = %v, want empty", failed)
	}

	p := srv.payloads[0]
	if p["event"] != EventType {
		t.Errorf("event = %v, want %q", p["event"], EventType)
	}
	if p["detected_at"] != "2026-08-26T09:30:00Z" {
		t.Errorf("detected_at = %v", p["detected_at"])
	}
	if p["name"] != "Acme" || p["batch"] != "W26" || p["is_hiring"] != true {
		t.Errorf("company fields wrong: %v", p)
	}
}

func TestDeliverPartialFailure(t *testing.T) {
	srv := newRecordingServer(t, "2")
	s := testSender(srv.URL, 1)

	fresh := []domain.Company{company("1"), company("2"), company("3")}
	delivered, failed := s.Deliver(context.Background(), nil, fresh)

	if len(delivered) != 2 || delivered[0] != "1" || delivered[1] != "3" {
		t.Errorf("delivered = %v, want [1 3]", delivered)
	}
	pd, ok := failed["2"]
	if !ok {
		t.Fatalf("entry 2 missing from failed set: %v", failed)
	}
	if pd.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", pd.Attempts)
	}
	if pd.FirstFailedAt.IsZero() {
		t.Error("FirstFailedAt not set")
	}
	if pd.LastError == "" {
		t.Error("LastError not set")
	}
}

func TestDeliverPendingFirstInQueueOrder(t *testing.T) {
	srv := newRecordingServer(t)
	s := testSender(srv.URL, 1)

	base := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	pending := map[string]domain.PendingDelivery{
		"p2": {Company: company("p2"), Attempts: 1, FirstFailedAt: base.Add(time.Hour)},
		"p1": {Company: company("p1"), Attempts: 1, FirstFailedAt: base},
	}
	fresh := []domain.Company{company("n1"), company("n2")}

	delivered, failed := s.Deliver(context.Background(), pending, fresh)

	want := []string{"p1", "p2", "n1", "n2"}
	got := srv.sentIDs()
	if len(got) != len(want) {
		t.Fatalf("sent = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent = %v, want %v", got, want)
		}
	}
	if len(delivered) != 4 || len(failed) != 0 {
		t.Errorf("delivered=%v failed=%v", delivered, failed)
	}
}

func TestDeliverPendingFailureIncrementsAttempts(t *testing.T) {
	srv := newRecordingServer(t, "p1")
	s := testSender(srv.URL, 1)

	first := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	pending := map[string]domain.PendingDelivery{
		"p1": {Company: company("p1"), Attempts: 3, FirstFailedAt: first},
	}

	_, failed := s.Deliver(context.Background(), pending, nil)

	pd, ok := failed["p1"]
	if !ok {
		t.Fatalf("p1 missing from failed set")
	}
	if pd.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", pd.Attempts)
	}
	if !pd.FirstFailedAt.Equal(first) {
		t.Errorf("FirstFailedAt = %v, want preserved %v", pd.FirstFailedAt, first)
	}
}

func TestDeliverDoesNotSendPendingEntryTwice(t *testing.T) {
	srv := newRecordingServer(t)
	s := testSender(srv.URL, 1)

	pending := map[string]domain.PendingDelivery{
		"a": {Company: company("a"), Attempts: 1, FirstFailedAt: time.Now().UTC()},
	}
	// entry also shows up in this run's fresh fetch
	fresh := []domain.Company{company("a"), company("b")}

	delivered, _ := s.Deliver(context.Background(), pending, fresh)

	if got := srv.sentIDs(); len(got) != 2 {
		t.Errorf("sent = %v, want one POST each for a and b", got)
	}
	if len(delivered) != 2 {
		t.Errorf("delivered = %v, want 2 entries", delivered)
	}
}

func TestSendOneRetriesThenSucceeds(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var slept []time.Duration
	s := testSender(srv.URL, 3)
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	delivered, failed := s.Deliver(context.Background(), nil, []domain.Company{company("x")})

	if len(delivered) != 1 {
		t.Fatalf("delivered = %v, failed = %v; want success on third attempt", delivered, failed)
	}
	if calls != 3 {
		t.Errorf("server calls = %d, want 3", calls)
	}
	// backoff doubles: 2s then 4s
	if len(slept) != 2 || slept[0] != 2*time.Second || slept[1] != 4*time.Second {
		t.Errorf("backoff sleeps = %v", slept)
	}
}

func TestSendOneExhaustsRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	s := testSender(srv.URL, 3)
	delivered, failed := s.Deliver(context.Background(), nil, []domain.Company{company("x")})

	if len(delivered) != 0 {
		t.Errorf("delivered = %v, want none", delivered)
	}
	if calls != 3 {
		t.Errorf("server calls = %d, want 3", calls)
	}
	if _, ok := failed["x"]; !ok {
		t.Errorf("x missing from failed set: %v", failed)
	}
}
