package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/runlog"
	"github.com/perfuselab/pindrive/schedule"
	"github.com/perfuselab/pindrive/store"
	"github.com/perfuselab/pindrive/wave"
)

// Defaults for the parameters a request leaves unspecified, sized for a
// hobby servo on pin 7.
const (
	defaultPin          = 7
	defaultPulseWidthMs = 1.5
	defaultFrequency    = 50
	defaultDurationMs   = 5000
)

// waveformRequest is the JSON body of the PWM routes. Fields left zero take
// the servo defaults.
type waveformRequest struct {
	PulseWidthMs float64 `json:"pulseWidthMs"`
	Frequency    float64 `json:"frequency"`
	DurationMs   float64 `json:"durationMs"`
}

func (w waveformRequest) spec() wave.Spec {
	if w.PulseWidthMs == 0 {
		w.PulseWidthMs = defaultPulseWidthMs
	}
	if w.Frequency == 0 {
		w.Frequency = defaultFrequency
	}
	if w.DurationMs == 0 {
		w.DurationMs = defaultDurationMs
	}

	return wave.Spec{
		PulseWidth: msToDuration(w.PulseWidthMs),
		Frequency:  w.Frequency,
		Duration:   msToDuration(w.DurationMs),
	}
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// pinParam reads and validates the :pin route parameter.
func pinParam(req *http.Request) (int, error) {
	params := httprouter.ParamsFromContext(req.Context())
	raw := params.ByName("pin")

	number, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("pin %q is not a number", raw)
	}

	if _, err := gpio.BCM(number); err != nil {
		return 0, err
	}

	return number, nil
}

func floatQuery(req *http.Request, name string, fallback float64) (float64, error) {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", name, raw)
	}

	return value, nil
}

// record appends the dispatched operation to the run log. The log is
// history, not control flow: an append failure is logged and the operation
// stands.
func (s *Server) record(op string, number int, detail string, opErr error) runlog.Record {
	rec := runlog.Record{Op: op, Pin: number, Detail: detail}
	if opErr != nil {
		rec.Error = opErr.Error()
	}

	if s.Runs == nil {
		return rec
	}

	stored, err := s.Runs.Append(rec)
	if err != nil {
		s.Logger.Warnf("unable to append run record: %s", err)
		return rec
	}

	return stored
}

// dispatchWrite drives a level on a pin and records it.
func (s *Server) dispatchWrite(number int, level gpio.Level) (runlog.Record, error) {
	err := s.pinManager.Get(number).Write(level)
	return s.record("write", number, fmt.Sprintf("level %s", level), err), err
}

// dispatchHighFor starts a HighFor and records it, reporting a synchronous
// failure if the pin never went high. The delayed close's result is only
// logged; completion is not modeled in the run log.
func (s *Server) dispatchHighFor(number int, d time.Duration) (runlog.Record, error) {
	done := s.pinManager.Get(number).HighFor(d)

	select {
	case err := <-done:
		return s.record("high-for", number, d.String(), err), err
	default:
	}

	go func() {
		if err := <-done; err != nil {
			s.Logger.WithField("pin", number).Warnf("high-for close failed: %s", err)
		}
	}()

	return s.record("high-for", number, d.String(), nil), nil
}

// dispatchWaveform validates the waveform, then generates it on its own
// goroutine: a software PWM blocks for its whole actual duration.
func (s *Server) dispatchWaveform(number int, spec wave.Spec, hardware bool) (runlog.Record, error) {
	op := "soft-pwm"
	if hardware {
		op = "hardware-pwm"
	}
	detail := fmt.Sprintf("%v at %gHz for %v", spec.PulseWidth, spec.Frequency, spec.Duration)

	if _, err := wave.Compute(spec); err != nil {
		s.record(op, number, detail, err)
		return runlog.Record{}, err
	}

	if hardware && !s.backendManager.SupportsHardwarePWM(number) {
		err := notWiredError{fmt.Errorf("pin %d is not wired for hardware PWM", number)}
		s.record(op, number, detail, err)
		return runlog.Record{}, err
	}

	p := s.pinManager.Get(number)
	rec := s.record(op, number, detail, nil)

	go func() {
		var err error
		if hardware {
			err = p.PWM(spec)
		} else {
			err = p.SoftPWM(spec)
		}
		if err != nil {
			s.Logger.WithField("pin", number).Warnf("%s failed: %s", op, err)
		}
	}()

	return rec, nil
}

type pinState struct {
	Pin   int    `json:"pin"`
	State string `json:"state"`
}

func (s *Server) getPin(res http.ResponseWriter, req *http.Request) {
	number, err := pinParam(req)
	if err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	p := s.pinManager.Get(number)
	respond(res, pinState{Pin: number, State: p.State().String()}, http.StatusOK)
}

func (s *Server) putPin(res http.ResponseWriter, req *http.Request) {
	number, err := pinParam(req)
	if err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	var high bool
	if err := json.NewDecoder(req.Body).Decode(&high); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if _, err := s.dispatchWrite(number, gpio.Level(high)); err != nil {
		respond(res, err, statusFor(err))
		return
	}

	respond(res, nil, http.StatusNoContent)
}

// highPin holds a pin high and releases it after the requested wait. The
// wait is duration/perSecond seconds: with the default perSecond of 1000,
// duration is in milliseconds.
func (s *Server) highPin(res http.ResponseWriter, req *http.Request) {
	number, err := pinParam(req)
	if err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	duration, err := floatQuery(req, "duration", defaultDurationMs)
	if err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	perSecond, err := floatQuery(req, "perSecond", 1000)
	if err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}
	if perSecond <= 0 {
		respond(res, fmt.Errorf("perSecond must be positive"), http.StatusUnprocessableEntity)
		return
	}

	rec, err := s.dispatchHighFor(number, time.Duration(duration/perSecond*float64(time.Second)))
	if err != nil {
		respond(res, err, statusFor(err))
		return
	}

	respond(res, rec, http.StatusAccepted)
}

func (s *Server) pwmPin(res http.ResponseWriter, req *http.Request) {
	s.dispatchPWM(res, req, false)
}

func (s *Server) hardwarePWMPin(res http.ResponseWriter, req *http.Request) {
	s.dispatchPWM(res, req, true)
}

func (s *Server) dispatchPWM(res http.ResponseWriter, req *http.Request, hardware bool) {
	number, err := pinParam(req)
	if err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	// An empty body means all defaults.
	var waveform waveformRequest
	if err := json.NewDecoder(req.Body).Decode(&waveform); err != nil && !errors.Is(err, io.EOF) {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	rec, err := s.dispatchWaveform(number, waveform.spec(), hardware)
	if err != nil {
		respond(res, err, statusFor(err))
		return
	}

	respond(res, rec, http.StatusAccepted)
}

func (s *Server) getPresets(res http.ResponseWriter, req *http.Request) {
	names, err := s.Store.ListPresets()
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, names, http.StatusOK)
}

func (s *Server) getPreset(res http.ResponseWriter, req *http.Request) {
	params := httprouter.ParamsFromContext(req.Context())
	name := params.ByName("name")

	preset, err := s.Store.Preset(name)
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, preset, http.StatusOK)
}

func (s *Server) putPreset(res http.ResponseWriter, req *http.Request) {
	params := httprouter.ParamsFromContext(req.Context())
	name := params.ByName("name")

	var preset store.Preset
	if err := json.NewDecoder(req.Body).Decode(&preset); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if err := s.Store.PutPreset(name, preset); err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, nil, http.StatusNoContent)
}

func (s *Server) getDefaultPreset(res http.ResponseWriter, req *http.Request) {
	name, err := s.Store.DefaultPreset()
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, name, http.StatusOK)
}

func (s *Server) putDefaultPreset(res http.ResponseWriter, req *http.Request) {
	var name string
	if err := json.NewDecoder(req.Body).Decode(&name); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if err := s.Store.PutDefaultPreset(name); err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, nil, http.StatusNoContent)
}

// resolvePreset loads the named preset, or the default preset when name is
// empty.
func (s *Server) resolvePreset(name string) (store.Preset, string, error) {
	if name == "" {
		var err error
		name, err = s.Store.DefaultPreset()
		if err != nil {
			return store.Preset{}, "", err
		}
		if name == "" {
			return store.Preset{}, "", fmt.Errorf("no preset named and no default preset set")
		}
	}

	preset, err := s.Store.Preset(name)
	if err != nil {
		return store.Preset{}, "", err
	}

	return preset, name, nil
}

func (s *Server) runPreset(res http.ResponseWriter, req *http.Request) {
	preset, _, err := s.resolvePreset(req.URL.Query().Get("preset"))
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	number := preset.Pin
	if number == 0 {
		number = defaultPin
	}

	spec := waveformRequest{
		PulseWidthMs: preset.PulseWidthMs,
		Frequency:    preset.Frequency,
		DurationMs:   preset.DurationMs,
	}.spec()

	rec, err := s.dispatchWaveform(number, spec, preset.Hardware)
	if err != nil {
		respond(res, err, statusFor(err))
		return
	}

	respond(res, rec, http.StatusAccepted)
}

func (s *Server) getHardware(res http.ResponseWriter, req *http.Request) {
	config, err := s.Store.BackendConfig()
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, config, http.StatusOK)
}

func (s *Server) putHardware(res http.ResponseWriter, req *http.Request) {
	var config gpio.Config
	if err := json.NewDecoder(req.Body).Decode(&config); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if err := s.Store.PutBackendConfig(config); err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, nil, http.StatusNoContent)
}

// updateHardware rebuilds the gpio backend from the stored config and drops
// the cached pin handles, whose states describe the old backend.
func (s *Server) updateHardware(res http.ResponseWriter, req *http.Request) {
	config, err := s.Store.BackendConfig()
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	if err := s.backendManager.Update(config); err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	s.pinManager.Reset()

	respond(res, nil, http.StatusOK)
}

// scheduleRequest is one operation to fire later: at an absolute time or
// after a delay in milliseconds, exactly one of which must be set.
type scheduleRequest struct {
	Op  string `json:"op"`
	Pin int    `json:"pin"`

	// write
	Level bool `json:"level"`

	// high
	DurationMs float64 `json:"durationMs"`

	// pwm
	PulseWidthMs float64 `json:"pulseWidthMs"`
	Frequency    float64 `json:"frequency"`
	Hardware     bool    `json:"hardware"`

	// preset
	Preset string `json:"preset"`

	At    *time.Time `json:"at"`
	After *float64   `json:"after"`
}

// eventFor turns a schedule request into the event to fire plus its listing
// metadata. Presets are resolved now, not at fire time.
func (s *Server) eventFor(r scheduleRequest) (schedule.Event, string, int, error) {
	number := r.Pin
	if number == 0 {
		number = defaultPin
	}

	if _, err := gpio.BCM(number); err != nil {
		return nil, "", 0, err
	}

	switch r.Op {
	case "write":
		level := gpio.Level(r.Level)
		return func() { s.dispatchWrite(number, level) }, "write", number, nil

	case "high":
		durationMs := r.DurationMs
		if durationMs == 0 {
			durationMs = defaultDurationMs
		}
		d := msToDuration(durationMs)
		return func() { s.dispatchHighFor(number, d) }, "high-for", number, nil

	case "pwm":
		spec := waveformRequest{
			PulseWidthMs: r.PulseWidthMs,
			Frequency:    r.Frequency,
			DurationMs:   r.DurationMs,
		}.spec()
		op := "soft-pwm"
		if r.Hardware {
			op = "hardware-pwm"
		}
		hardware := r.Hardware
		return func() { s.dispatchWaveform(number, spec, hardware) }, op, number, nil

	case "preset":
		preset, name, err := s.resolvePreset(r.Preset)
		if err != nil {
			return nil, "", 0, err
		}

		number = preset.Pin
		if number == 0 {
			number = defaultPin
		}
		if _, err := gpio.BCM(number); err != nil {
			return nil, "", 0, err
		}

		spec := waveformRequest{
			PulseWidthMs: preset.PulseWidthMs,
			Frequency:    preset.Frequency,
			DurationMs:   preset.DurationMs,
		}.spec()
		hardware := preset.Hardware
		return func() { s.dispatchWaveform(number, spec, hardware) }, "preset " + name, number, nil

	default:
		return nil, "", 0, fmt.Errorf("op %q is not one of write, high, pwm, or preset", r.Op)
	}
}

func (s *Server) postSchedule(res http.ResponseWriter, req *http.Request) {
	var r scheduleRequest
	if err := json.NewDecoder(req.Body).Decode(&r); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if (r.At == nil) == (r.After == nil) {
		respond(res, fmt.Errorf("exactly one of at and after must be set"), http.StatusUnprocessableEntity)
		return
	}

	event, op, number, err := s.eventFor(r)
	if err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	var job *schedule.Job
	if r.At != nil {
		job, err = s.scheduler.EventAt(event, *r.At)
	} else {
		job, err = s.scheduler.EventAfter(event, msToDuration(*r.After))
	}
	if err != nil {
		respond(res, err, statusFor(err))
		return
	}

	respond(res, s.jobManager.Add(op, number, job), http.StatusCreated)
}

func (s *Server) getSchedule(res http.ResponseWriter, req *http.Request) {
	respond(res, s.jobManager.List(), http.StatusOK)
}

func (s *Server) deleteSchedule(res http.ResponseWriter, req *http.Request) {
	params := httprouter.ParamsFromContext(req.Context())
	id := params.ByName("id")

	if !s.jobManager.Cancel(id) {
		respond(res, fmt.Errorf("no pending job %s", id), http.StatusNotFound)
		return
	}

	respond(res, nil, http.StatusNoContent)
}

type programRequest struct {
	Steps []scheduleRequest `json:"steps"`
}

// runProgram schedules a batch of delayed steps against one shared reading
// of the clock, so the gaps between steps hold exactly. The batch takes
// effect completely or not at all.
func (s *Server) runProgram(res http.ResponseWriter, req *http.Request) {
	var program programRequest
	if err := json.NewDecoder(req.Body).Decode(&program); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if len(program.Steps) == 0 {
		respond(res, fmt.Errorf("program has no steps"), http.StatusUnprocessableEntity)
		return
	}

	events := make([]schedule.Event, 0, len(program.Steps))
	ops := make([]string, 0, len(program.Steps))
	pins := make([]int, 0, len(program.Steps))
	delays := make([]time.Duration, 0, len(program.Steps))

	for i, step := range program.Steps {
		if step.After == nil {
			respond(res, fmt.Errorf("step %d: after is required in a program", i), http.StatusUnprocessableEntity)
			return
		}
		if step.At != nil {
			respond(res, fmt.Errorf("step %d: at cannot be used in a program", i), http.StatusUnprocessableEntity)
			return
		}

		event, op, number, err := s.eventFor(step)
		if err != nil {
			respond(res, fmt.Errorf("step %d: %w", i, err), http.StatusUnprocessableEntity)
			return
		}

		events = append(events, event)
		ops = append(ops, op)
		pins = append(pins, number)
		delays = append(delays, msToDuration(*step.After))
	}

	jobs, err := s.scheduler.EventsAfter(events, delays)
	if err != nil {
		respond(res, err, statusFor(err))
		return
	}

	scheduled := make([]scheduledJob, 0, len(jobs))
	for i, job := range jobs {
		scheduled = append(scheduled, s.jobManager.Add(ops[i], pins[i], job))
	}

	respond(res, scheduled, http.StatusCreated)
}

func (s *Server) getRuns(res http.ResponseWriter, req *http.Request) {
	limit := 20
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respond(res, fmt.Errorf("limit %q is not a positive number", raw), http.StatusUnprocessableEntity)
			return
		}
		limit = parsed
	}

	if s.Runs == nil {
		respond(res, []runlog.Record{}, http.StatusOK)
		return
	}

	records, err := s.Runs.Recent(limit)
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, records, http.StatusOK)
}

type motorStatus struct {
	Name         string  `json:"name"`
	Angle        float64 `json:"angle"`
	PulseWidthMs float64 `json:"pulseWidthMs"`
}

func (s *Server) getMotors(res http.ResponseWriter, req *http.Request) {
	statuses := make([]motorStatus, 0, len(s.motorList))
	for _, m := range s.motorList {
		statuses = append(statuses, motorStatus{
			Name:         m.Name(),
			Angle:        m.Angle(),
			PulseWidthMs: float64(m.PulseWidth()) / float64(time.Millisecond),
		})
	}

	respond(res, statuses, http.StatusOK)
}

func (s *Server) putMotorAngle(res http.ResponseWriter, req *http.Request) {
	params := httprouter.ParamsFromContext(req.Context())
	name := params.ByName("name")

	m, ok := s.motors[name]
	if !ok {
		respond(res, fmt.Errorf("no motor named %q", name), http.StatusNotFound)
		return
	}

	var angle float64
	if err := json.NewDecoder(req.Body).Decode(&angle); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	if err := m.SetAngle(angle); err != nil {
		respond(res, err, http.StatusUnprocessableEntity)
		return
	}

	respond(res, nil, http.StatusNoContent)
}

type pumpStatus struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
}

func (s *Server) getPumps(res http.ResponseWriter, req *http.Request) {
	statuses := make([]pumpStatus, 0, len(s.pumpList))
	for _, p := range s.pumpList {
		statuses = append(statuses, pumpStatus{
			Name:      p.Name(),
			Direction: p.Direction().String(),
		})
	}

	respond(res, statuses, http.StatusOK)
}

func (s *Server) postPumpAction(res http.ResponseWriter, req *http.Request) {
	params := httprouter.ParamsFromContext(req.Context())
	name := params.ByName("name")
	action := params.ByName("action")

	p, ok := s.pumps[name]
	if !ok {
		respond(res, fmt.Errorf("no pump named %q", name), http.StatusNotFound)
		return
	}

	var err error
	switch action {
	case "perfuse":
		err = p.Perfuse()
	case "drain":
		err = p.Drain()
	case "stop":
		err = p.Stop()
	default:
		respond(res, fmt.Errorf("action %q is not one of perfuse, drain, or stop", action), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		respond(res, err, http.StatusInternalServerError)
		return
	}

	respond(res, nil, http.StatusNoContent)
}
