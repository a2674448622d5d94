// Package scheduler admits scrape runs on one of two cadences and keeps
// the ticker directory warm in the background.
//
// Grounded in original_source/src/tasks/__init__.py's can_run_task: a
// schedule slot may run once its HH:MM is within 15 minutes of the
// current time and it hasn't already run today. The legacy worker polled
// this in a tight asyncio.sleep(600) loop; here slot mode ticks once a
// minute instead, and interval mode (the teacher's own idiom) drives the
// same sweep off a robfig/cron/v3 expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/worker"
	"catchup-feed/internal/observability/metrics"

	"github.com/robfig/cron/v3"
)

// slotAdmissionWindow is the +/- window (in minutes) within which a slot's
// scheduled time is considered due, ported from can_run_task's
// "time_diff <= 15" check.
const slotAdmissionWindow = 15 * time.Minute

// TickerDirectory is the subset of tickerdirectory.Directory the scheduler
// needs to keep the ticker snapshot warm.
type TickerDirectory interface {
	Snapshot(ctx context.Context) map[string]string
}

// Job runs one scrape pass for the given task against the current ticker
// snapshot.
type Job func(ctx context.Context, task entity.TaskName, tickers map[string]string)

// Scheduler admits scrape runs in slot or interval mode and periodically
// refreshes the ticker directory. It is not safe to call Run more than
// once.
type Scheduler struct {
	cfg     worker.WorkerConfig
	loc     *time.Location
	tickers TickerDirectory
	job     Job
	health  *worker.HealthServer
	logger  *slog.Logger
	clock   func() time.Time

	mu    sync.Mutex
	slots []entity.ScheduleSlot
}

// New builds a Scheduler. slots is the ordered slot table used in slot
// mode; it is ignored in interval mode. health may be nil.
func New(cfg worker.WorkerConfig, slots []entity.ScheduleSlot, tickers TickerDirectory, job Job, health *worker.HealthServer, logger *slog.Logger) *Scheduler {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid scheduler timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	return &Scheduler{
		cfg:     cfg,
		loc:     loc,
		tickers: tickers,
		job:     job,
		health:  health,
		logger:  logger,
		clock:   time.Now,
		slots:   append([]entity.ScheduleSlot(nil), slots...),
	}
}

// Run blocks until ctx is cancelled, driving ticker refresh and scrape
// admission in the configured mode.
func (s *Scheduler) Run(ctx context.Context) {
	s.refreshTickers(ctx)
	if s.health != nil {
		s.health.SetReady(true)
		s.logger.Info("scheduler marked worker ready")
	}

	go s.runTickerRefreshLoop(ctx)
	go s.runDailyResetLoop(ctx)

	switch s.cfg.SchedulerMode {
	case "interval":
		s.runIntervalMode(ctx)
	default:
		s.runSlotMode(ctx)
	}
}

// runSlotMode ticks once a minute, sweeping the slot table for anything
// within the admission window that hasn't run yet.
func (s *Scheduler) runSlotMode(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.sweepSlots(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			_ = now
			s.sweepSlots(ctx)
		}
	}
}

// runIntervalMode runs the slot sweep on every tick of the configured cron
// schedule instead of a tight loop+sleep.
func (s *Scheduler) runIntervalMode(ctx context.Context) {
	c := cron.New(cron.WithLocation(s.loc))
	_, err := c.AddFunc(s.cfg.CronSchedule, func() {
		s.sweepSlots(ctx)
	})
	if err != nil {
		s.logger.Error("failed to add cron schedule, falling back to slot mode", slog.Any("error", err))
		s.runSlotMode(ctx)
		return
	}
	c.Start()
	defer c.Stop()

	<-ctx.Done()
}

// sweepSlots runs every slot admitted by CanRun against the current
// time, then marks each run slot as Ran.
func (s *Scheduler) sweepSlots(ctx context.Context) {
	now := s.clock().In(s.loc)

	s.mu.Lock()
	due := make([]int, 0, len(s.slots))
	for i, slot := range s.slots {
		if !slot.Ran && CanRun(now, slot) {
			due = append(due, i)
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return
	}

	tickers := s.tickers.Snapshot(ctx)
	for _, i := range due {
		s.mu.Lock()
		slot := s.slots[i]
		s.slots[i].Ran = true
		s.mu.Unlock()

		s.logger.Info("admitting scheduled task", slog.String("task", string(slot.TaskName)), slog.String("slot_time", slot.Time))
		s.job(ctx, slot.TaskName, tickers)
	}
}

// CanRun reports whether slot is due at now: its scheduled time must be
// within slotAdmissionWindow of now-of-day and it must not have already
// run. Ported from can_run_task's "time_diff <= 15 and not task_ran".
func CanRun(now time.Time, slot entity.ScheduleSlot) bool {
	if slot.Ran {
		return false
	}
	var hour, minute int
	if _, err := fmt.Sscanf(slot.Time, "%d:%d", &hour, &minute); err != nil {
		return false
	}
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	diff := now.Sub(scheduled)
	if diff < 0 {
		diff = -diff
	}
	return diff <= slotAdmissionWindow
}

// runTickerRefreshLoop refreshes the ticker directory on
// TickerRefreshInterval cadence. Directory.Snapshot is itself
// cadence-gated, so this just needs to call it often enough.
func (s *Scheduler) runTickerRefreshLoop(ctx context.Context) {
	interval := s.cfg.TickerRefreshInterval
	if interval <= 0 {
		interval = 3 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshTickers(ctx)
		}
	}
}

func (s *Scheduler) refreshTickers(ctx context.Context) {
	snapshot := s.tickers.Snapshot(ctx)
	metrics.UpdateTickersTotal(len(snapshot))
}

// runDailyResetLoop resets every slot's Ran flag at local-midnight
// rollover, recomputing the timer for the next midnight each time it
// fires (teacher-style: a ticking time.Timer rather than a fixed
// interval, since days aren't all 24h across DST transitions).
func (s *Scheduler) runDailyResetLoop(ctx context.Context) {
	for {
		now := s.clock().In(s.loc)
		next := nextMidnight(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.resetSlots()
		}
	}
}

func (s *Scheduler) resetSlots() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.slots {
		s.slots[i].Ran = false
	}
	s.logger.Info("schedule slots reset for new day", slog.Int("slots", len(s.slots)))
}

func nextMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, 1)
}
