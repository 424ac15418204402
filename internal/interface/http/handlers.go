package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/nekolog/wellness-hub/internal/application/command"
	"github.com/nekolog/wellness-hub/internal/domain/shared"
	"github.com/nekolog/wellness-hub/internal/domain/wellness"
	"github.com/nekolog/wellness-hub/pkg/logger"
	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & ROOT
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		if status := s.deps.HealthChecker.Check(r.Context()); !status.Ready {
			writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{
		"service": "nekolog-wellness-hub",
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS (read side)
// ══════════════════════════════════════════════════════════════════════════════

type stepStatusDTO struct {
	Today         int  `json:"today"`
	Goal          int  `json:"goal"`
	RewardedToday bool `json:"rewarded_today"`
}

type subscriptionStatusDTO struct {
	State   string `json:"state"`
	Active  bool   `json:"active"`
	Display string `json:"display"`
	EndDate string `json:"end_date,omitempty"`
}

type statusDTO struct {
	Day            string                 `json:"day"`
	TodayScore     int                    `json:"today_score"`
	YesterdayScore int                    `json:"yesterday_score"`
	TreatBalance   int                    `json:"treat_balance"`
	Steps          *stepStatusDTO         `json:"steps,omitempty"`
	Subscription   *subscriptionStatusDTO `json:"subscription,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := timeutil.Now().In(s.config.Location)
	today := shared.DayOf(now, s.config.Location)

	state := wellness.DefaultDailyState()
	if s.deps.Daily != nil {
		loaded, err := s.deps.Daily.LoadDailyState(ctx)
		if err != nil {
			s.logger.Warn("daily state read failed for status", logger.Err(err))
		} else {
			state = loaded
		}
	}

	dto := statusDTO{
		Day:            today.String(),
		TodayScore:     state.TodayScore.Int(),
		YesterdayScore: state.YesterdayScore.Int(),
	}

	if s.deps.Treats != nil {
		dto.TreatBalance = s.deps.Treats.Balance().Int()
	}

	if s.deps.Gate != nil {
		steps := &stepStatusDTO{
			Goal:          s.deps.Gate.Goal(),
			RewardedToday: s.deps.Gate.LastRewardDay().Equal(today),
		}
		if s.deps.Steps != nil {
			if count, err := s.deps.Steps.DailySteps(ctx, today); err == nil {
				steps.Today = count
			}
		}
		dto.Steps = steps
	}

	if s.deps.Subs != nil {
		status := s.deps.Subs.UpdateStatus(ctx, now)
		sub := &subscriptionStatusDTO{
			State:   s.deps.Subs.State().String(),
			Active:  status.Active,
			Display: status.Display,
		}
		if end := s.deps.Subs.EndDate(); !end.IsZero() {
			sub.EndDate = end.In(s.config.Location).Format(time.RFC3339)
		}
		dto.Subscription = sub
	}

	writeJSON(w, r, http.StatusOK, dto)
}

type weeklyStepsDTO struct {
	WeekStart string `json:"week_start"`
	Days      [7]int `json:"days"`
}

func (s *Server) handleWeeklySteps(w http.ResponseWriter, r *http.Request) {
	if s.deps.Steps == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "cache_unavailable", "Step cache is not configured")
		return
	}

	now := timeutil.Now().In(s.config.Location)
	days, err := s.deps.Steps.WeeklySteps(r.Context(), now)
	if err != nil {
		s.logger.Warn("weekly steps read failed", logger.Err(err))
		writeJSONError(w, http.StatusServiceUnavailable, "cache_unavailable", "Weekly step data is unavailable")
		return
	}

	writeJSON(w, r, http.StatusOK, weeklyStepsDTO{
		WeekStart: shared.DayOf(timeutil.StartOfWeek(now, s.config.Location), s.config.Location).String(),
		Days:      days,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-IN
// ══════════════════════════════════════════════════════════════════════════════

type checkInRequest struct {
	Mood    float64 `json:"mood"`
	Stress  float64 `json:"stress"`
	Stamina float64 `json:"stamina"`
	Sleep   float64 `json:"sleep"`
	Focus   float64 `json:"focus"`
	Safety  float64 `json:"safety"`
}

type checkInResponse struct {
	Score          int    `json:"score"`
	YesterdayScore int    `json:"yesterday_score"`
	Day            string `json:"day"`
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.CheckIn.Handle(r.Context(), command.RecordCheckInCommand{
		Sliders: wellness.SliderInputs{req.Mood, req.Stress, req.Stamina, req.Sleep, req.Focus, req.Safety},
	})
	if err != nil {
		if errors.Is(err, shared.ErrSliderOutOfRange) {
			writeJSONError(w, http.StatusBadRequest, "slider_out_of_range", "Slider values must be within 0-100")
			return
		}
		s.logger.Error("check-in failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "checkin_failed", "Could not record the check-in")
		return
	}

	writeJSON(w, r, http.StatusOK, checkInResponse{
		Score:          result.Score.Int(),
		YesterdayScore: result.YesterdayScore.Int(),
		Day:            result.Day.String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// TREATS
// ══════════════════════════════════════════════════════════════════════════════

type giveTreatRequest struct {
	Treats int `json:"treats"`
}

type giveTreatResponse struct {
	Fed     bool `json:"fed"`
	Debited int  `json:"debited"`
	Balance int  `json:"balance"`
}

func (s *Server) handleGiveTreat(w http.ResponseWriter, r *http.Request) {
	var req giveTreatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.GiveTreat.Handle(r.Context(), command.GiveTreatCommand{Treats: req.Treats})
	if err != nil {
		if errors.Is(err, shared.ErrNegativeAmount) {
			writeJSONError(w, http.StatusBadRequest, "negative_amount", "Treat count cannot be negative")
			return
		}
		s.logger.Error("give treat failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "give_treat_failed", "Could not feed the cat")
		return
	}

	writeJSON(w, r, http.StatusOK, giveTreatResponse{
		Fed:     result.Fed,
		Debited: result.Debited,
		Balance: result.Balance.Int(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STEPS (push delivery from the app)
// ══════════════════════════════════════════════════════════════════════════════

type stepsRequest struct {
	Steps int `json:"steps"`
}

type stepsResponse struct {
	Steps    int    `json:"steps"`
	Day      string `json:"day"`
	Rewarded bool   `json:"rewarded"`
}

func (s *Server) handleSteps(w http.ResponseWriter, r *http.Request) {
	var req stepsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.SyncSteps.Handle(r.Context(), command.SyncStepsCommand{Steps: req.Steps})
	if err != nil {
		if errors.Is(err, shared.ErrNegativeValue) {
			writeJSONError(w, http.StatusBadRequest, "negative_steps", "Step count cannot be negative")
			return
		}
		s.logger.Error("step delivery failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "step_sync_failed", "Could not apply the step count")
		return
	}

	writeJSON(w, r, http.StatusOK, stepsResponse{
		Steps:    result.Steps,
		Day:      result.Day.String(),
		Rewarded: result.Rewarded,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIPTION
// ══════════════════════════════════════════════════════════════════════════════

type purchaseRequest struct {
	ProductID string `json:"product_id"`
}

type purchaseResponse struct {
	Cancelled     bool   `json:"cancelled"`
	TreatsGranted int    `json:"treats_granted"`
	State         string `json:"state"`
	Active        bool   `json:"active"`
	Display       string `json:"display"`
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.Purchase.Handle(r.Context(), command.PurchasePassCommand{ProductID: req.ProductID})
	if err != nil {
		s.logger.Error("purchase failed", logger.Err(err))
		writeJSONError(w, http.StatusBadGateway, "purchase_failed", "The purchase could not be completed")
		return
	}

	writeJSON(w, r, http.StatusOK, purchaseResponse{
		Cancelled:     result.Cancelled,
		TreatsGranted: result.TreatsGranted,
		State:         result.State.String(),
		Active:        result.Status.Active,
		Display:       result.Status.Display,
	})
}

type restoreResponse struct {
	Applied       int    `json:"applied"`
	TreatsGranted int    `json:"treats_granted"`
	State         string `json:"state"`
	Active        bool   `json:"active"`
	Display       string `json:"display"`
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Restore.Handle(r.Context(), command.RestorePurchasesCommand{})
	if err != nil {
		s.logger.Error("restore failed", logger.Err(err))
		writeJSONError(w, http.StatusBadGateway, "restore_failed", "Entitlements could not be fetched")
		return
	}

	writeJSON(w, r, http.StatusOK, restoreResponse{
		Applied:       result.Applied,
		TreatsGranted: result.TreatsGranted,
		State:         result.State.String(),
		Active:        result.Status.Active,
		Display:       result.Status.Display,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ROLLOVER (foreground activation hook)
// ══════════════════════════════════════════════════════════════════════════════

type rolloverResponse struct {
	Ran   bool   `json:"ran"`
	Score int    `json:"score"`
	Day   string `json:"day"`
}

// handleRollover runs the catch-up check on demand. The app calls it on
// foreground activation so a day that ended while the device slept is
// finalized before the home screen renders.
func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Rollover.Handle(r.Context(), command.RunRolloverCommand{CatchUp: true})
	if err != nil {
		s.logger.Error("on-demand rollover failed", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "rollover_failed", "The day could not be rolled over")
		return
	}

	writeJSON(w, r, http.StatusOK, rolloverResponse{
		Ran:   result.Ran,
		Score: result.Score.Int(),
		Day:   result.Day.String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body, writing a 400 on failure.
// An empty body decodes to the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dest)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return false
	}
	return true
}
