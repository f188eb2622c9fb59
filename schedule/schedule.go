// Package schedule fires events exactly once at absolute times or after
// delays. It rides on a cron runner but hides the recurrence machinery:
// every entry removes itself after its first activation.
package schedule

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Event is a callback that is fired with no arguments.
type Event func()

// MismatchError indicates a batch call whose event and time lists have
// different lengths. Nothing is scheduled.
type MismatchError struct {
	Events int
	Times  int
}

func (err MismatchError) Error() string {
	return fmt.Sprintf("got %d events for %d times", err.Events, err.Times)
}

func (err MismatchError) Is(target error) bool {
	_, ok := target.(MismatchError)
	return ok
}

// Job is an opaque handle to one scheduled event.
type Job struct {
	runner *cron.Cron
	id     cron.EntryID
	at     time.Time
}

// At reports the absolute time the job was scheduled for.
func (j *Job) At() time.Time { return j.at }

// Pending reports whether the job is still waiting to fire.
func (j *Job) Pending() bool {
	return j.runner.Entry(j.id).ID != 0
}

// Cancel drops the job. Cancelling a fired or cancelled job does nothing.
func (j *Job) Cancel() {
	j.runner.Remove(j.id)
}

// Scheduler fires events at requested times. The zero value is not usable;
// call New.
type Scheduler struct {
	runner *cron.Cron

	now func() time.Time
}

// New returns a running Scheduler.
func New() *Scheduler {
	s := &Scheduler{
		runner: cron.New(),
		now:    time.Now,
	}
	s.runner.Start()

	return s
}

// Stop shuts the scheduler down and waits for any events already firing to
// finish. Jobs still pending never fire.
func (s *Scheduler) Stop() {
	ctx := s.runner.Stop()
	<-ctx.Done()
}

// Pending reports how many jobs are still waiting to fire.
func (s *Scheduler) Pending() int {
	return len(s.runner.Entries())
}

// EventsAt schedules events[i] to fire at times[i], returning job handles in
// the same order. The lists must have the same length, or a MismatchError is
// returned and nothing is scheduled. A nil event cancels the jobs scheduled
// before it, so a batch takes effect completely or not at all. Times at or
// before now fire as soon as the runner gets to them.
func (s *Scheduler) EventsAt(events []Event, times []time.Time) ([]*Job, error) {
	if len(events) != len(times) {
		return nil, MismatchError{Events: len(events), Times: len(times)}
	}

	now := s.now()

	jobs := make([]*Job, 0, len(events))
	for i, event := range events {
		if event == nil {
			for _, job := range jobs {
				job.Cancel()
			}
			return nil, fmt.Errorf("event %d is nil", i)
		}

		jobs = append(jobs, s.add(event, times[i], now))
	}

	return jobs, nil
}

// EventAt schedules one event to fire at t.
func (s *Scheduler) EventAt(event Event, t time.Time) (*Job, error) {
	jobs, err := s.EventsAt([]Event{event}, []time.Time{t})
	if err != nil {
		return nil, err
	}

	return jobs[0], nil
}

// EventsAfter schedules events[i] to fire delays[i] from now. The whole
// batch shares one reading of the clock, so the delays between jobs hold
// exactly.
func (s *Scheduler) EventsAfter(events []Event, delays []time.Duration) ([]*Job, error) {
	if len(events) != len(delays) {
		return nil, MismatchError{Events: len(events), Times: len(delays)}
	}

	now := s.now()
	times := make([]time.Time, len(delays))
	for i, delay := range delays {
		times[i] = now.Add(delay)
	}

	return s.EventsAt(events, times)
}

// EventAfter schedules one event to fire delay from now.
func (s *Scheduler) EventAfter(event Event, delay time.Duration) (*Job, error) {
	jobs, err := s.EventsAfter([]Event{event}, []time.Duration{delay})
	if err != nil {
		return nil, err
	}

	return jobs[0], nil
}

// add registers one fire-once entry against the shared now.
func (s *Scheduler) add(event Event, at time.Time, now time.Time) *Job {
	delay := at.Sub(now)
	if delay < time.Millisecond {
		delay = time.Millisecond
	}

	// The entry id isn't known until Schedule returns, but the entry can
	// conceivably fire before that; it then re-fires one delay later, reads
	// the id, and removes itself, while the once keeps the event single-shot.
	var once sync.Once
	var id atomic.Int64
	entryID := s.runner.Schedule(delaySchedule{delay: delay}, cron.FuncJob(func() {
		once.Do(event)
		s.runner.Remove(cron.EntryID(id.Load()))
	}))
	id.Store(int64(entryID))

	return &Job{runner: s.runner, id: entryID, at: at}
}

// delaySchedule activates a fixed delay after each activation. Unlike the
// cron expression schedules it keeps sub-second precision.
type delaySchedule struct {
	delay time.Duration
}

func (d delaySchedule) Next(t time.Time) time.Time {
	return t.Add(d.delay)
}
