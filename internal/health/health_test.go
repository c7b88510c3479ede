package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestCheckCollectsAllComponents(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("storage", PingCheck(fakePinger{}))
	c.Register("broken", PingCheck(fakePinger{err: errors.New("database is locked")}))

	results := c.Check(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["storage"].Status != StatusHealthy {
		t.Errorf("storage = %+v, want healthy", results["storage"])
	}
	if results["broken"].Status != StatusUnhealthy {
		t.Errorf("broken = %+v, want unhealthy", results["broken"])
	}
	if results["storage"].LastChecked.IsZero() {
		t.Error("LastChecked not set")
	}
	if Overall(results) != StatusUnhealthy {
		t.Error("one unhealthy component should make the overall status unhealthy")
	}
}

func TestOverallWithNoChecks(t *testing.T) {
	if got := Overall(nil); got != StatusHealthy {
		t.Errorf("Overall(nil) = %s, want healthy", got)
	}
}

func TestReadinessHandlerStatusCodes(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("storage", PingCheck(fakePinger{}))

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != StatusHealthy {
		t.Errorf("status = %s, want healthy", resp.Status)
	}

	c.Register("storage", PingCheck(fakePinger{err: errors.New("gone")}))
	rec = httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unready status = %d, want 503", rec.Code)
	}
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("storage", PingCheck(fakePinger{err: errors.New("down")}))

	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200 regardless of dependencies", rec.Code)
	}
}

func TestHeartbeat(t *testing.T) {
	hb := NewHeartbeat()
	check := hb.Check(50 * time.Millisecond)

	if got := check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("fresh heartbeat = %+v, want healthy", got)
	}

	time.Sleep(80 * time.Millisecond)
	if got := check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("stale heartbeat = %+v, want unhealthy", got)
	}

	hb.Beat()
	if got := check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("beaten heartbeat = %+v, want healthy", got)
	}
}
