package server

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/pin"
	"github.com/perfuselab/pindrive/schedule"
)

// backendManager synchronizes access to the underlying gpio backend so that
// it can be swapped out at runtime. It implements gpio.GPIO itself: pins,
// motors, and pumps hold the manager rather than a backend that might be
// closed under them, and an operation in flight across a swap simply lands
// on the new backend (which may refuse it, since the new backend never saw
// the claim).
type backendManager struct {
	backend gpio.GPIO
	mu      *sync.RWMutex
}

var (
	_ gpio.GPIO        = &backendManager{}
	_ gpio.HardwarePWM = &backendManager{}
)

// Update builds a new backend from config, swaps it in, and closes the old
// one.
func (b *backendManager) Update(config gpio.Config) error {
	next, err := gpio.New(config)
	if err != nil {
		return fmt.Errorf("unable to create new gpio backend from config: %w", err)
	}

	b.mu.Lock()
	prev := b.backend
	b.backend = next
	b.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	return nil
}

func (b *backendManager) Claim(pin int) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.backend.Claim(pin)
}

func (b *backendManager) Drive(pin int, level gpio.Level) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.backend.Drive(pin, level)
}

func (b *backendManager) Release(pin int, reset gpio.Reset) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.backend.Release(pin, reset)
}

func (b *backendManager) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.backend.Close()
}

func (b *backendManager) SupportsHardwarePWM(pin int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hw, ok := b.backend.(gpio.HardwarePWM)
	return ok && hw.SupportsHardwarePWM(pin)
}

func (b *backendManager) ConfigurePWM(pin int, frequency int) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hw, ok := b.backend.(gpio.HardwarePWM)
	if !ok {
		return fmt.Errorf("backend has no PWM peripheral support")
	}

	return hw.ConfigurePWM(pin, frequency)
}

func (b *backendManager) SetDuty(pin int, duty float64) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hw, ok := b.backend.(gpio.HardwarePWM)
	if !ok {
		return fmt.Errorf("backend has no PWM peripheral support")
	}

	return hw.SetDuty(pin, duty)
}

// pinManager hands out one handle per pin number, so every request observes
// the same lifecycle state for a given line.
type pinManager struct {
	conn gpio.GPIO
	pins map[int]*pin.Pin
	mu   *sync.Mutex
}

func (p *pinManager) Get(number int) *pin.Pin {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.pins[number]; !ok {
		p.pins[number] = pin.New(p.conn, number)
	}

	return p.pins[number]
}

// Reset drops every handle. After a backend swap the old lifecycle states
// describe hardware that no longer exists.
func (p *pinManager) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pins = map[int]*pin.Pin{}
}

// scheduledJob is the listing for one pending scheduled operation.
type scheduledJob struct {
	ID  string    `json:"id"`
	Op  string    `json:"op"`
	Pin int       `json:"pin"`
	At  time.Time `json:"at"`

	job *schedule.Job
}

// jobManager tracks scheduled jobs by id so they can be listed and cancelled
// over HTTP.
type jobManager struct {
	jobs map[string]scheduledJob
	mu   *sync.Mutex
}

func newID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

func (j *jobManager) Add(op string, pin int, job *schedule.Job) scheduledJob {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := scheduledJob{ID: newID(), Op: op, Pin: pin, At: job.At(), job: job}
	j.jobs[s.ID] = s

	return s
}

// List returns the still pending jobs soonest first, dropping any that have
// already fired.
func (j *jobManager) List() []scheduledJob {
	j.mu.Lock()
	defer j.mu.Unlock()

	jobs := make([]scheduledJob, 0, len(j.jobs))
	for id, s := range j.jobs {
		if !s.job.Pending() {
			delete(j.jobs, id)
			continue
		}

		jobs = append(jobs, s)
	}

	sort.Slice(jobs, func(a, b int) bool {
		if jobs[a].At.Equal(jobs[b].At) {
			return jobs[a].ID < jobs[b].ID
		}
		return jobs[a].At.Before(jobs[b].At)
	})

	return jobs
}

// Cancel cancels the job with the given id, reporting whether it was still
// pending.
func (j *jobManager) Cancel(id string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	s, ok := j.jobs[id]
	if !ok {
		return false
	}

	delete(j.jobs, id)
	if !s.job.Pending() {
		return false
	}

	s.job.Cancel()
	return true
}
