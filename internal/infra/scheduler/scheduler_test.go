package scheduler

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/worker"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCanRun_WithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC)
	slot := entity.ScheduleSlot{Time: "09:00", TaskName: entity.TaskScrapeYahoo}
	assert.True(t, CanRun(now, slot))
}

func TestCanRun_OutsideWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	slot := entity.ScheduleSlot{Time: "09:00", TaskName: entity.TaskScrapeYahoo}
	assert.False(t, CanRun(now, slot))
}

func TestCanRun_AlreadyRan(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 5, 0, 0, time.UTC)
	slot := entity.ScheduleSlot{Time: "09:00", TaskName: entity.TaskScrapeYahoo, Ran: true}
	assert.False(t, CanRun(now, slot))
}

func TestCanRun_HandlesHourBoundaryCrossing(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 58, 0, 0, time.UTC)
	slot := entity.ScheduleSlot{Time: "10:05", TaskName: entity.TaskScrapeYahoo}
	assert.True(t, CanRun(now, slot))
}

type stubDirectory struct {
	snapshot map[string]string
}

func (d stubDirectory) Snapshot(ctx context.Context) map[string]string { return d.snapshot }

func TestSweepSlots_AdmitsDueSlotAndMarksRan(t *testing.T) {
	slots := []entity.ScheduleSlot{
		{Time: "09:00", TaskName: entity.TaskScrapeYahoo},
		{Time: "15:00", TaskName: entity.TaskAlternateSources},
	}
	var mu sync.Mutex
	var ran []entity.TaskName

	s := New(testConfig(), slots, stubDirectory{snapshot: map[string]string{"AAPL": "Apple"}}, func(ctx context.Context, task entity.TaskName, tickers map[string]string) {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, task)
	}, nil, testLogger())
	s.clock = func() time.Time { return time.Date(2026, 1, 1, 9, 2, 0, 0, time.UTC) }

	s.sweepSlots(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []entity.TaskName{entity.TaskScrapeYahoo}, ran)
	assert.True(t, s.slots[0].Ran)
	assert.False(t, s.slots[1].Ran)
}

func TestSweepSlots_SkipsAlreadyRanSlot(t *testing.T) {
	slots := []entity.ScheduleSlot{{Time: "09:00", TaskName: entity.TaskScrapeYahoo, Ran: true}}
	called := false

	s := New(testConfig(), slots, stubDirectory{snapshot: map[string]string{}}, func(ctx context.Context, task entity.TaskName, tickers map[string]string) {
		called = true
	}, nil, testLogger())
	s.clock = func() time.Time { return time.Date(2026, 1, 1, 9, 2, 0, 0, time.UTC) }

	s.sweepSlots(context.Background())
	assert.False(t, called)
}

func TestResetSlots_ClearsRanFlags(t *testing.T) {
	slots := []entity.ScheduleSlot{
		{Time: "09:00", TaskName: entity.TaskScrapeYahoo, Ran: true},
		{Time: "15:00", TaskName: entity.TaskAlternateSources, Ran: true},
	}
	s := New(testConfig(), slots, stubDirectory{snapshot: map[string]string{}}, func(ctx context.Context, task entity.TaskName, tickers map[string]string) {}, nil, testLogger())

	s.resetSlots()

	assert.False(t, s.slots[0].Ran)
	assert.False(t, s.slots[1].Ran)
}

func TestNextMidnight_ReturnsStartOfFollowingDay(t *testing.T) {
	now := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	next := nextMidnight(now)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), next)
}

func testConfig() worker.WorkerConfig {
	cfg := worker.DefaultConfig()
	cfg.Timezone = "UTC"
	return cfg
}
