package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bastion-lab/project-bastion/internal/analytics"
	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/core/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeGenerator records generation requests and serves stored reports.
type fakeGenerator struct {
	mu        sync.Mutex
	generated []time.Time
	reports   map[string]model.DailyReport
	err       error
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{reports: make(map[string]model.DailyReport)}
}

func (g *fakeGenerator) GenerateDailyReport(_ context.Context, date time.Time) (*model.DailyReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	g.generated = append(g.generated, day)
	report := model.DailyReport{ReportDate: day, GeneratedAt: time.Now().UTC()}
	g.reports[day.Format(dateLayout)] = report
	return &report, nil
}

func (g *fakeGenerator) GetDailyReport(_ context.Context, date time.Time) (*model.DailyReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	report, ok := g.reports[date.Format(dateLayout)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &report, nil
}

func (g *fakeGenerator) ListDailyReports(_ context.Context, limit int) ([]model.DailyReport, error) {
	if limit < 0 {
		return nil, analytics.ErrInvalidQuery
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var result []model.DailyReport
	for _, r := range g.reports {
		result = append(result, r)
	}
	return result, nil
}

func TestSchedulerNextFire(t *testing.T) {
	s := NewScheduler(newFakeGenerator(), 0, 0)

	// before midnight: fires at the next midnight
	now := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), s.nextFire(now))

	// exactly at the firing instant: fires tomorrow, never immediately
	now = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), s.nextFire(now))

	// non-midnight firing time
	s = NewScheduler(newFakeGenerator(), 2, 30)
	now = time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC), s.nextFire(now))
}

func TestSchedulerGeneratesPreviousDay(t *testing.T) {
	gen := newFakeGenerator()
	s := NewScheduler(gen, 0, 0)

	fire := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	s.runOnce(context.Background(), fire)

	gen.mu.Lock()
	defer gen.mu.Unlock()
	require.Len(t, gen.generated, 1)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), gen.generated[0])
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	gen := newFakeGenerator()
	s := NewScheduler(gen, 0, 0)
	// pin "now" right after a firing so the timer waits nearly a full day
	s.nowFn = func() time.Time {
		return time.Date(2026, 3, 10, 0, 0, 1, 0, time.UTC)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	require.Empty(t, gen.generated)
}

func newTestRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(store).RegisterRoutes(r)
	return r
}

func TestHandleGenerateAndGet(t *testing.T) {
	gen := newFakeGenerator()
	router := newTestRouter(gen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/generate?date=2026-03-09", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var report model.DailyReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), report.ReportDate)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/reports/2026-03-09", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// dates with no report are a 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/reports/2026-03-01", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)

	// malformed dates are a 400
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/reports/yesterday", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGenerateRejectsBadDate(t *testing.T) {
	router := newTestRouter(newFakeGenerator())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/generate?date=03-09-2026", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleList(t *testing.T) {
	gen := newFakeGenerator()
	router := newTestRouter(gen)

	_, err := gen.GenerateDailyReport(context.Background(), time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Reports []model.DailyReport `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Reports, 1)
}
