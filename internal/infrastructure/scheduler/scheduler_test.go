package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekolog/wellness-hub/pkg/timeutil"
)

type countingJob struct {
	name string

	mu   sync.Mutex
	runs int
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts executions" }

func (j *countingJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	return nil
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func newClockedScheduler(at time.Time) (*Scheduler, *time.Time) {
	clock := at
	cfg := DefaultSchedulerConfig()
	cfg.Timezone = at.Location()
	cfg.Now = func() time.Time { return clock }
	return NewScheduler(cfg), &clock
}

func TestSchedulerFiresMidnightJobOncePerMidnight(t *testing.T) {
	loc := timeutil.JST
	s, clock := newClockedScheduler(time.Date(2026, 3, 1, 23, 59, 0, 0, loc))

	job := &countingJob{name: "midnight_rollover"}
	require.NoError(t, s.Register(job, NewMidnightSchedule(loc)))

	const days = 5
	for i := 0; i < days; i++ {
		midnight := time.Date(2026, 3, 2+i, 0, 0, 0, 0, loc)

		*clock = midnight
		assert.Equal(t, 1, s.runDue(midnight), "midnight %d", i)

		// A second tick at the same boundary must not collect again.
		assert.Equal(t, 0, s.runDue(midnight))
		assert.Equal(t, 0, s.runDue(midnight.Add(30*time.Second)))
	}
	s.wg.Wait()

	assert.Equal(t, days, job.count())

	info, err := s.GetJobInfo(job.name)
	require.NoError(t, err)
	assert.Equal(t, int64(days), info.RunCount)
	assert.Equal(t, time.Date(2026, 3, 2+days, 0, 0, 0, 0, loc), info.NextRun)
}

func TestSchedulerSkipsDisabledJobs(t *testing.T) {
	loc := timeutil.JST
	s, _ := newClockedScheduler(time.Date(2026, 3, 1, 23, 59, 0, 0, loc))

	job := &countingJob{name: "midnight_rollover"}
	require.NoError(t, s.Register(job, NewMidnightSchedule(loc)))
	require.NoError(t, s.DisableJob(job.name))

	assert.Equal(t, 0, s.runDue(time.Date(2026, 3, 2, 0, 0, 0, 0, loc)))
	s.wg.Wait()
	assert.Equal(t, 0, job.count())
}

func TestSchedulerRejectsDuplicateStart(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.ErrorIs(t, s.Start(ctx), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestSchedulerRejectsDuplicateRegistration(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &countingJob{name: "steps_sync"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Hour)), ErrJobAlreadyExists)
}

func TestSchedulerRunNowExecutesImmediately(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := &countingJob{name: "steps_sync"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), job.name)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, job.count())

	_, err = s.RunNow(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSchedulerHistoryHonorsConfiguredLimit(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.MaxHistorySize = 3
	s := NewScheduler(cfg)

	for i := 0; i < 5; i++ {
		s.addToHistory(JobResult{JobName: "midnight_rollover", Success: true})
	}

	assert.Len(t, s.GetHistory(0), 3)
}
