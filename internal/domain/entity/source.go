package entity

import "fmt"

// TaskName identifies which scrape task a ScheduleSlot admits.
type TaskName string

const (
	// TaskScrapeYahoo runs the primary ticker-driven Yahoo Finance scrape.
	TaskScrapeYahoo TaskName = "scrape_news_yahoo"
	// TaskAlternateSources runs the RSS/Atom alternate ingestion path.
	TaskAlternateSources TaskName = "alternate_news_sources"
)

// Ticker is one row of the most-active-tickers directory snapshot.
type Ticker struct {
	Symbol      string
	DisplayName string
}

// ScheduleSlot is one admission window in the scheduler's ordered slot
// table. Time is "HH:MM" in the scheduler's configured timezone. Ran is
// reset to false at local-midnight rollover.
type ScheduleSlot struct {
	Time     string
	TaskName TaskName
	Ran      bool
}

// Validate checks that a ScheduleSlot carries a well-formed time and a
// known task name.
func (s *ScheduleSlot) Validate() error {
	if s.Time == "" {
		return &ValidationError{Field: "time", Message: "time is required"}
	}
	var hour, minute int
	if _, err := fmt.Sscanf(s.Time, "%d:%d", &hour, &minute); err != nil {
		return &ValidationError{Field: "time", Message: "time must be HH:MM"}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return &ValidationError{Field: "time", Message: "time out of range"}
	}
	switch s.TaskName {
	case TaskScrapeYahoo, TaskAlternateSources:
	default:
		return &ValidationError{Field: "task_name", Message: "unknown task name"}
	}
	return nil
}
