package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/coopco/salesbot/internal/report"
)

var (
	ErrInvalidType = errors.New("invalid report type")
	ErrInvalidTime = errors.New("invalid time of day, expected HH:MM")
	ErrNoSuchTask  = errors.New("no scheduled report at that position")
)

var timeOfDayRe = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Task is one recurring scheduled report for a chat.
type Task struct {
	ReportType report.Type
	TimeOfDay  string // "HH:MM"
	entryID    robfigcron.EntryID
}

// FireFunc is invoked when a scheduled task fires.
type FireFunc func(channel, chatID string, reportType report.Type)

// Scheduler keeps a per-chat ordered list of recurring report tasks on top of
// a cron engine. Insertion order is display order and the basis for 1-based
// deletion positions, recomputed from the live list on every list/delete.
type Scheduler struct {
	cron   *robfigcron.Cron
	onFire FireFunc

	mu    sync.Mutex
	tasks map[string][]Task // chat key -> tasks in insertion order
}

// New creates a Scheduler; onFire is called for every firing task.
func New(onFire FireFunc) *Scheduler {
	return &Scheduler{
		cron:   robfigcron.New(),
		onFire: onFire,
		tasks:  make(map[string][]Task),
	}
}

// Start begins the cron engine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron engine.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Add appends a recurring task for the chat. Every task fires daily at the
// given time of day; the report type only selects the data window of the
// fetched report, not the firing cadence.
func (s *Scheduler) Add(key, channel, chatID string, reportType report.Type, timeOfDay string) error {
	if _, ok := report.TypeFromString(string(reportType)); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidType, reportType)
	}
	spec, err := toCronSpec(timeOfDay)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(spec, func() {
		slog.Info("scheduled report firing", "chat", key, "type", reportType, "time", timeOfDay)
		s.onFire(channel, chatID, reportType)
	})
	if err != nil {
		return fmt.Errorf("failed to register scheduled report: %w", err)
	}

	s.tasks[key] = append(s.tasks[key], Task{
		ReportType: reportType,
		TimeOfDay:  timeOfDay,
		entryID:    entryID,
	})
	slog.Info("scheduled report added", "chat", key, "type", reportType, "time", timeOfDay)
	return nil
}

// List returns the chat's tasks in display order.
func (s *Scheduler) List(key string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, len(s.tasks[key]))
	copy(out, s.tasks[key])
	return out
}

// Remove deletes the task at the 1-based display position, cancelling its
// cron entry. Later tasks shift down one position. Out-of-range positions
// leave the list unchanged.
func (s *Scheduler) Remove(key string, position int) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.tasks[key]
	if position < 1 || position > len(list) {
		return Task{}, ErrNoSuchTask
	}

	task := list[position-1]
	s.cron.Remove(task.entryID)
	s.tasks[key] = append(list[:position-1], list[position:]...)
	slog.Info("scheduled report removed", "chat", key, "position", position, "type", task.ReportType)
	return task, nil
}

// toCronSpec converts "HH:MM" to a daily cron spec.
func toCronSpec(timeOfDay string) (string, error) {
	if !timeOfDayRe.MatchString(timeOfDay) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, timeOfDay)
	}
	h, _ := strconv.Atoi(timeOfDay[:2])
	m, _ := strconv.Atoi(timeOfDay[3:])
	if h > 23 || m > 59 {
		return "", fmt.Errorf("%w: %q out of range", ErrInvalidTime, timeOfDay)
	}
	return fmt.Sprintf("%d %d * * *", m, h), nil
}
