package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/internal/application/command"
	"github.com/nekolog/wellness-hub/internal/domain/reward"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/wellness"
	"github.com/nekolog/wellness-hub/internal/infrastructure/scheduler"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type memDailyRepo struct {
	state wellness.DailyState
	saved int
}

func (r *memDailyRepo) LoadDailyState(ctx context.Context) (wellness.DailyState, error) {
	return r.state, nil
}

func (r *memDailyRepo) SaveDailyState(ctx context.Context, state wellness.DailyState) error {
	r.state = state
	r.saved++
	return nil
}

type memProfileReader struct {
	name    shared.CatName
	address shared.Address
}

func (r *memProfileReader) Profile(ctx context.Context) (shared.CatName, shared.Address, error) {
	return r.name, r.address, nil
}

type memBalanceRepo struct {
	balance shared.Treats
}

func (r *memBalanceRepo) LoadBalance(ctx context.Context) (shared.Treats, error) {
	return r.balance, nil
}

func (r *memBalanceRepo) SaveBalance(ctx context.Context, balance shared.Treats) error {
	r.balance = balance
	return nil
}

type memGateRepo struct {
	state reward.GateState
}

func (r *memGateRepo) LoadGateState(ctx context.Context) (reward.GateState, error) {
	return r.state, nil
}

func (r *memGateRepo) SaveGateState(ctx context.Context, state reward.GateState) error {
	r.state = state
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

type serverFixture struct {
	server  *Server
	daily   *memDailyRepo
	balance *memBalanceRepo
	treats  *reward.Ledger
}

func newServerFixture(t *testing.T, mutate func(*Config, *Dependencies)) *serverFixture {
	t.Helper()
	ctx := context.Background()

	daily := &memDailyRepo{state: wellness.DefaultDailyState()}
	balance := &memBalanceRepo{balance: 3}

	treats := reward.NewLedger(balance, nil, nil)
	treats.Load(ctx)

	gate := reward.NewStepGate(reward.DefaultStepGoal, timeutil.JST, &memGateRepo{}, treats, nil, nil)
	gate.Load(ctx)

	engine := wellness.NewDefaultEngine()
	profile := &memProfileReader{name: "Mochi", address: "Shibuya, Tokyo"}

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	deps := Dependencies{
		CheckIn:   command.NewRecordCheckInHandler(engine, daily, profile, nil, timeutil.JST, nil),
		GiveTreat: command.NewGiveTreatHandler(treats),
		Daily:     daily,
		Treats:    treats,
		Gate:      gate,
	}

	if mutate != nil {
		mutate(&cfg, &deps)
	}

	return &serverFixture{
		server:  NewServer(cfg, deps),
		daily:   daily,
		balance: balance,
		treats:  treats,
	}
}

func (fx *serverFixture) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	fx.server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_HealthWorksWithoutChecker(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestServer_StatusReportsEngineState(t *testing.T) {
	fx := newServerFixture(t, nil)
	fx.daily.state = wellness.DailyState{
		TodayScore:         72,
		YesterdayScore:     64,
		LastCalculationDay: shared.DayOf(timeutil.Now(), timeutil.JST),
	}

	rec := fx.do(http.MethodGet, "/api/v1/status", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"today_score":72`)
	assert.Contains(t, body, `"yesterday_score":64`)
	assert.Contains(t, body, `"treat_balance":3`)
	assert.Contains(t, body, `"goal":10000`)
}

func TestServer_CheckInComputesAndPersists(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.do(http.MethodPost, "/api/v1/checkin",
		`{"mood":80,"stress":40,"stamina":50,"sleep":70,"focus":60,"safety":90}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"score":`)
	assert.Equal(t, 1, fx.daily.saved)
	assert.False(t, fx.daily.state.LastCalculationDay.IsZero())
}

func TestServer_CheckInRejectsOutOfRangeSlider(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.do(http.MethodPost, "/api/v1/checkin",
		`{"mood":150,"stress":40,"stamina":50,"sleep":70,"focus":60,"safety":90}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "slider_out_of_range")
	assert.Equal(t, 0, fx.daily.saved)
}

func TestServer_GiveTreatDebitsBalance(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.do(http.MethodPost, "/api/v1/treats/give", `{"treats":2}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"fed":true`)
	assert.Contains(t, body, `"debited":2`)
	assert.Contains(t, body, `"balance":1`)
	assert.Equal(t, shared.Treats(1), fx.balance.balance)
}

func TestServer_GiveTreatClampsAtEmptyJar(t *testing.T) {
	fx := newServerFixture(t, nil)
	// Drain the jar first.
	debited, err := fx.treats.Spend(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, shared.Treats(3), debited)
	require.Equal(t, shared.Treats(0), fx.treats.Balance())

	rec := fx.do(http.MethodPost, "/api/v1/treats/give", `{"treats":1}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"fed":false`)
	assert.Contains(t, body, `"balance":0`)
}

func TestServer_InvalidJSONRejected(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.do(http.MethodPost, "/api/v1/checkin", `{"mood":`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_body")
}

func TestServer_APIKeyGuardsCommandSurface(t *testing.T) {
	fx := newServerFixture(t, func(cfg *Config, deps *Dependencies) {
		cfg.APIKeys = []string{"sekrit"}
	})

	// Probes stay open.
	assert.Equal(t, http.StatusOK, fx.do(http.MethodGet, "/health", "", nil).Code)

	// API paths require the key.
	assert.Equal(t, http.StatusUnauthorized, fx.do(http.MethodGet, "/api/v1/status", "", nil).Code)

	withKey := map[string]string{"X-API-Key": "sekrit"}
	assert.Equal(t, http.StatusOK, fx.do(http.MethodGet, "/api/v1/status", "", withKey).Code)

	withBearer := map[string]string{"Authorization": "Bearer sekrit"}
	assert.Equal(t, http.StatusOK, fx.do(http.MethodGet, "/api/v1/status", "", withBearer).Code)
}

func TestServer_WeeklyChartHiddenWhenDisabled(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.do(http.MethodGet, "/api/v1/steps/weekly", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_UnknownPathReturns404(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.do(http.MethodGet, "/nope", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

type stubJob struct {
	name string
	runs int
}

func (j *stubJob) Name() string                  { return j.name }
func (j *stubJob) Description() string           { return "test job" }
func (j *stubJob) Run(ctx context.Context) error { j.runs++; return nil }

func newJobFixture(t *testing.T) (*serverFixture, *stubJob) {
	t.Helper()
	job := &stubJob{name: "midnight_rollover"}

	fx := newServerFixture(t, func(cfg *Config, deps *Dependencies) {
		sched := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig())
		require.NoError(t, sched.Register(job, scheduler.NewMidnightSchedule(timeutil.JST)))
		deps.Jobs = sched
	})
	return fx, job
}

func TestServer_JobListReportsRegisteredJobs(t *testing.T) {
	fx, _ := newJobFixture(t)

	rec := fx.do(http.MethodGet, "/api/v1/jobs", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"name":"midnight_rollover"`)
	assert.Contains(t, body, `"enabled":true`)
	assert.Contains(t, body, `"metrics"`)
}

func TestServer_JobRunNowExecutesJob(t *testing.T) {
	fx, job := newJobFixture(t)

	rec := fx.do(http.MethodPost, "/api/v1/jobs/midnight_rollover/run", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Equal(t, 1, job.runs)
}

func TestServer_JobDisableAndEnable(t *testing.T) {
	fx, _ := newJobFixture(t)

	rec := fx.do(http.MethodPost, "/api/v1/jobs/midnight_rollover/disable", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(http.MethodGet, "/api/v1/jobs/midnight_rollover", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":false`)

	rec = fx.do(http.MethodPost, "/api/v1/jobs/midnight_rollover/enable", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_JobEndpointsReturn404ForUnknownJob(t *testing.T) {
	fx, _ := newJobFixture(t)

	assert.Equal(t, http.StatusNotFound, fx.do(http.MethodGet, "/api/v1/jobs/ghost", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, fx.do(http.MethodPost, "/api/v1/jobs/ghost/run", "", nil).Code)
}

func TestServer_JobRoutesAbsentWithoutScheduler(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.do(http.MethodGet, "/api/v1/jobs", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RateLimitReturns429(t *testing.T) {
	fx := newServerFixture(t, func(cfg *Config, deps *Dependencies) {
		cfg.RateLimitPerMinute = 2
	})

	assert.Equal(t, http.StatusOK, fx.do(http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, fx.do(http.MethodGet, "/health", "", nil).Code)

	rec := fx.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
