// Copyright 2025 Archivemind Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package scheduler drives periodic ingestion runs. Each entry fires a
// modality trigger on a fixed interval, at a fixed time of day, or
// both. The scheduler's lifecycle is bound to the process: Start spawns
// the loop, Stop halts it and waits for in-flight triggers.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/archivemind/corpora/core"
)

var (
	// ErrTriggerRequired is returned when a trigger function is not provided.
	ErrTriggerRequired = errors.New("trigger function required")

	// ErrEmptySchedule is returned for an entry with neither an
	// interval nor a time of day.
	ErrEmptySchedule = errors.New("entry has no interval and no time of day")

	// ErrInvalidTimeOfDay is returned for an At value not of the form HH:MM.
	ErrInvalidTimeOfDay = errors.New("invalid time of day, expected HH:MM")
)

// TriggerFunc requests an ingestion run for a modality. It returns
// false when a run was already active and the request was coalesced.
type TriggerFunc func(ctx context.Context, modality core.Modality) (bool, error)

// Entry schedules one modality. Interval of zero disables interval
// runs; empty At disables the daily run. At least one must be set.
type Entry struct {
	Modality core.Modality
	Interval time.Duration
	At       string // daily run time "HH:MM", local time
}

// schedule is one armed timer for an entry.
type schedule struct {
	modality core.Modality
	interval time.Duration // zero for daily schedules
	hour     int
	minute   int
	next     time.Time
}

func (s *schedule) advance(now time.Time) {
	if s.interval > 0 {
		s.next = now.Add(s.interval)
		return
	}
	s.next = nextDaily(now, s.hour, s.minute)
}

// Scheduler fires ingestion triggers according to its entries.
type Scheduler struct {
	trigger   TriggerFunc
	schedules []*schedule
	tick      time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTickInterval sets how often due schedules are checked.
// Default is one minute.
func WithTickInterval(tick time.Duration) Option {
	return func(s *Scheduler) {
		if tick > 0 {
			s.tick = tick
		}
	}
}

// New creates a scheduler over the given entries.
func New(trigger TriggerFunc, entries []Entry, opts ...Option) (*Scheduler, error) {
	if trigger == nil {
		return nil, ErrTriggerRequired
	}

	now := time.Now()
	var schedules []*schedule
	for _, entry := range entries {
		if entry.Interval <= 0 && entry.At == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptySchedule, entry.Modality)
		}
		if entry.Interval > 0 {
			schedules = append(schedules, &schedule{
				modality: entry.Modality,
				interval: entry.Interval,
				next:     now.Add(entry.Interval),
			})
		}
		if entry.At != "" {
			hour, minute, err := parseTimeOfDay(entry.At)
			if err != nil {
				return nil, err
			}
			schedules = append(schedules, &schedule{
				modality: entry.Modality,
				hour:     hour,
				minute:   minute,
				next:     nextDaily(now, hour, minute),
			})
		}
	}

	s := &Scheduler{
		trigger:   trigger,
		schedules: schedules,
		tick:      time.Minute,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scheduler")
	return s, nil
}

// Start spawns the scheduler loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)
}

// Stop halts the loop and waits for in-flight triggers to return.
// Calling Stop on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case now := <-ticker.C:
			s.fireDue(ctx, now)
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context, now time.Time) {
	for _, sched := range s.schedules {
		if sched.next.After(now) {
			continue
		}
		sched.advance(now)

		accepted, err := s.trigger(ctx, sched.modality)
		if err != nil {
			s.logger.Error("scheduled trigger failed",
				"modality", string(sched.modality), "err", err)
			continue
		}
		if !accepted {
			s.logger.Debug("scheduled run coalesced, already in progress",
				"modality", string(sched.modality))
			continue
		}
		s.logger.Info("scheduled run triggered",
			"modality", string(sched.modality), "next", sched.next)
	}
}

// parseTimeOfDay parses "HH:MM" into hour and minute.
func parseTimeOfDay(at string) (int, int, error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, at)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, at)
	}
	return hour, minute, nil
}

// nextDaily returns the next occurrence of hour:minute after now.
func nextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
