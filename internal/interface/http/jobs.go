package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/nekolog/wellness-hub/internal/infrastructure/scheduler"
	"github.com/nekolog/wellness-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER ADMIN
// The companion app's diagnostics screen reads job state here, and a
// support operator can trigger or pause a job without restarting the
// worker.
// ══════════════════════════════════════════════════════════════════════════════

// JobAdmin exposes the scheduler's management surface. Nil when the
// scheduler is disabled; the routes are then not registered.
type JobAdmin interface {
	ListJobs() []scheduler.JobInfo
	GetJobInfo(jobName string) (*scheduler.JobInfo, error)
	RunNow(ctx context.Context, jobName string) (*scheduler.JobResult, error)
	EnableJob(jobName string) error
	DisableJob(jobName string) error
	GetHistory(limit int) []scheduler.JobResult
	GetMetrics() *scheduler.SchedulerMetrics
}

type jobInfoDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schedule    string `json:"schedule"`
	Enabled     bool   `json:"enabled"`
	LastRun     string `json:"last_run,omitempty"`
	NextRun     string `json:"next_run,omitempty"`
	RunCount    int64  `json:"run_count"`
	FailCount   int64  `json:"fail_count"`
}

type jobMetricsDTO struct {
	TotalExecutions int64   `json:"total_executions"`
	TotalSuccesses  int64   `json:"total_successes"`
	TotalFailures   int64   `json:"total_failures"`
	SuccessRate     float64 `json:"success_rate"`
	AverageDuration string  `json:"average_duration"`
}

type jobListDTO struct {
	Jobs    []jobInfoDTO   `json:"jobs"`
	Metrics *jobMetricsDTO `json:"metrics,omitempty"`
}

type jobResultDTO struct {
	Job         string `json:"job"`
	Success     bool   `json:"success"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at"`
	Duration    string `json:"duration"`
	Error       string `json:"error,omitempty"`
}

func jobInfoToDTO(info scheduler.JobInfo) jobInfoDTO {
	dto := jobInfoDTO{
		Name:        info.Name,
		Description: info.Description,
		Schedule:    info.Schedule,
		Enabled:     info.Enabled,
		RunCount:    info.RunCount,
		FailCount:   info.FailCount,
	}
	if !info.LastRun.IsZero() {
		dto.LastRun = info.LastRun.Format(time.RFC3339)
	}
	if !info.NextRun.IsZero() {
		dto.NextRun = info.NextRun.Format(time.RFC3339)
	}
	return dto
}

func jobResultToDTO(result scheduler.JobResult) jobResultDTO {
	dto := jobResultDTO{
		Job:         result.JobName,
		Success:     result.Success,
		StartedAt:   result.StartedAt.Format(time.RFC3339),
		CompletedAt: result.CompletedAt.Format(time.RFC3339),
		Duration:    result.Duration.String(),
	}
	if result.Error != nil {
		dto.Error = result.Error.Error()
	}
	return dto
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	infos := s.deps.Jobs.ListJobs()
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	dto := jobListDTO{Jobs: make([]jobInfoDTO, 0, len(infos))}
	for _, info := range infos {
		dto.Jobs = append(dto.Jobs, jobInfoToDTO(info))
	}

	if metrics := s.deps.Jobs.GetMetrics(); metrics != nil {
		snapshot := metrics.Snapshot()
		dto.Metrics = &jobMetricsDTO{
			TotalExecutions: snapshot.TotalExecutions,
			TotalSuccesses:  snapshot.TotalSuccesses,
			TotalFailures:   snapshot.TotalFailures,
			SuccessRate:     snapshot.SuccessRate,
			AverageDuration: snapshot.AverageDuration.String(),
		}
	}

	writeJSON(w, r, http.StatusOK, dto)
}

func (s *Server) handleJobInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Jobs.GetJobInfo(r.PathValue("name"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "job_not_found", "No such job")
		return
	}
	writeJSON(w, r, http.StatusOK, jobInfoToDTO(*info))
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	result, err := s.deps.Jobs.RunNow(r.Context(), name)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		writeJSONError(w, http.StatusNotFound, "job_not_found", "No such job")
		return
	}
	if result == nil {
		s.logger.Error("manual job run failed", logger.String("job", name), logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "job_run_failed", "The job could not be executed")
		return
	}
	// A job that ran but returned an error is still a completed request;
	// the result carries the failure.
	writeJSON(w, r, http.StatusOK, jobResultToDTO(*result))
}

func (s *Server) handleEnableJob(w http.ResponseWriter, r *http.Request) {
	s.setJobEnabled(w, r, true)
}

func (s *Server) handleDisableJob(w http.ResponseWriter, r *http.Request) {
	s.setJobEnabled(w, r, false)
}

func (s *Server) setJobEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	name := r.PathValue("name")

	var err error
	if enabled {
		err = s.deps.Jobs.EnableJob(name)
	} else {
		err = s.deps.Jobs.DisableJob(name)
	}
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "job_not_found", "No such job")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{"job": name, "enabled": enabled})
}

func (s *Server) handleJobHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	history := s.deps.Jobs.GetHistory(limit)
	dtos := make([]jobResultDTO, 0, len(history))
	for _, result := range history {
		dtos = append(dtos, jobResultToDTO(result))
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{"history": dtos})
}
