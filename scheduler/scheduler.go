package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the harvest three times a day in the resolved local
// timezone. SkipIfStillRunning guards against a slow run overlapping the next
// slot.
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

// New builds the cron with the given IANA timezone name. An unknown zone
// falls back to UTC with a warning.
func New(timezone string) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("scheduler: unknown timezone %q, using UTC: %v", timezone, err)
		loc = time.UTC
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	return &Scheduler{cron: c, entries: make(map[string]cron.EntryID)}
}

// AddDaily registers a named job at a "HH:MM" local time.
func (s *Scheduler) AddDaily(name, hhmm string, job func()) error {
	hour, minute, err := parseHHMM(hhmm)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	id, err := s.cron.AddFunc(spec, func() {
		log.Printf("scheduler: %s triggered", name)
		job()
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries[name] = id
	log.Printf("scheduler: %s scheduled daily at %02d:%02d", name, hour, minute)
	return nil
}

// Start begins firing jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any running job.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		log.Println("scheduler: shutdown timed out waiting for running job")
	}
}

// NextRun describes one upcoming job firing.
type NextRun struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// NextRuns lists upcoming firings sorted soonest first.
func (s *Scheduler) NextRuns() []NextRun {
	runs := make([]NextRun, 0, len(s.entries))
	for name, id := range s.entries {
		entry := s.cron.Entry(id)
		if entry.ID == 0 {
			continue
		}
		runs = append(runs, NextRun{Name: name, At: entry.Next})
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].At.Equal(runs[j].At) {
			return runs[i].Name < runs[j].Name
		}
		return runs[i].At.Before(runs[j].At)
	})
	return runs
}

func parseHHMM(v string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", v)
	}
	return hour, minute, nil
}
