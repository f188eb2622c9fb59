package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/motor"
	"github.com/perfuselab/pindrive/pump"
	"github.com/perfuselab/pindrive/runlog"
	"github.com/perfuselab/pindrive/store"
)

func newTestServer(t *testing.T) (*Server, *gpio.Sim, http.Handler) {
	t.Helper()

	sim := gpio.NewSim(gpio.SimConfig{})

	st, err := store.OpenBBolt(filepath.Join(t.TempDir(), "pindrive.db"), 0666, nil)
	if err != nil {
		t.Fatalf("open store: %s", err)
	}
	t.Cleanup(func() { st.Close() })

	runs, err := runlog.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open run log: %s", err)
	}
	t.Cleanup(func() { runs.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := &Server{
		Backend: sim,
		Store:   st,
		Runs:    runs,
		Logger:  logger,
		MotorConfigs: []motor.Config{
			{Name: "arm", Pin: 11, Period: 20 * time.Millisecond, MinPulse: time.Millisecond, MaxPulse: 2 * time.Millisecond},
		},
		PumpConfigs: []pump.Config{
			{Name: "sample", Pins: [4]int{29, 31, 33, 35}},
		},
	}
	if err := s.init(); err != nil {
		t.Fatalf("init server: %s", err)
	}
	t.Cleanup(s.scheduler.Stop)

	return s, sim, s.routes()
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	res := httptest.NewRecorder()
	mux.ServeHTTP(res, req)

	return res
}

func waitFor(t *testing.T, what string, ok func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ok() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, into interface{}) {
	t.Helper()

	if err := json.NewDecoder(res.Body).Decode(into); err != nil {
		t.Fatalf("decode response body: %s", err)
	}
}

func TestWritePin(t *testing.T) {
	_, sim, mux := newTestServer(t)

	res := do(mux, http.MethodPut, "/pins/7", "true")
	if res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusNoContent, res.Body)
	}

	if level, claimed := sim.Level(7); level != gpio.High || claimed {
		t.Errorf("got level %s claimed %v, want the line held high and released", level, claimed)
	}

	res = do(mux, http.MethodGet, "/pins/7", "")
	if res.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", res.Code, http.StatusOK)
	}

	var state pinState
	decodeBody(t, res, &state)
	if state.State != "closed" {
		t.Errorf("got state %q, want closed after a preserved write", state.State)
	}
}

func TestWritePinRejectsBadInput(t *testing.T) {
	_, _, mux := newTestServer(t)

	if res := do(mux, http.MethodPut, "/pins/7", "not json"); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad body: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}

	// position 27 is an ID EEPROM pin, not a GPIO
	if res := do(mux, http.MethodPut, "/pins/27", "true"); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-GPIO position: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}

	if res := do(mux, http.MethodPut, "/pins/seven", "true"); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-numeric pin: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}
}

func TestHighPin(t *testing.T) {
	_, sim, mux := newTestServer(t)

	res := do(mux, http.MethodPost, "/pins/7/high?duration=60", "")
	if res.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusAccepted, res.Body)
	}

	var rec runlog.Record
	decodeBody(t, res, &rec)
	if rec.Op != "high-for" || rec.Pin != 7 {
		t.Errorf("got record %+v, want a high-for on pin 7", rec)
	}

	if level, claimed := sim.Level(7); level != gpio.High || !claimed {
		t.Errorf("got level %s claimed %v, want the line held high during the wait", level, claimed)
	}

	waitFor(t, "the pin to close", func() bool {
		var state pinState
		decodeBody(t, do(mux, http.MethodGet, "/pins/7", ""), &state)
		return state.State == "closed"
	})

	if _, claimed := sim.Level(7); claimed {
		t.Error("pin is still claimed after the wait")
	}
}

func TestHighPinPerSecond(t *testing.T) {
	_, _, mux := newTestServer(t)

	// duration 1 at 10 per second is 100ms
	res := do(mux, http.MethodPost, "/pins/7/high?duration=1&perSecond=10", "")
	if res.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusAccepted, res.Body)
	}

	var rec runlog.Record
	decodeBody(t, res, &rec)
	if rec.Detail != "100ms" {
		t.Errorf("got detail %q, want 100ms", rec.Detail)
	}

	if res := do(mux, http.MethodPost, "/pins/7/high?perSecond=0", ""); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("zero perSecond: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}
}

func TestSoftPWMPin(t *testing.T) {
	_, sim, mux := newTestServer(t)

	res := do(mux, http.MethodPost, "/pins/7/pwm", `{"pulseWidthMs":1,"frequency":50,"durationMs":40}`)
	if res.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusAccepted, res.Body)
	}

	var rec runlog.Record
	decodeBody(t, res, &rec)
	if rec.Op != "soft-pwm" || rec.Pin != 7 {
		t.Errorf("got record %+v, want a soft-pwm on pin 7", rec)
	}

	waitFor(t, "the waveform to start", func() bool {
		_, claimed := sim.Level(7)
		return claimed
	})

	waitFor(t, "the waveform to finish", func() bool {
		_, claimed := sim.Level(7)
		return !claimed
	})

	if level, _ := sim.Level(7); level != gpio.Low {
		t.Error("line is not low after a released waveform")
	}

	res = do(mux, http.MethodGet, "/runs", "")
	if res.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", res.Code, http.StatusOK)
	}

	var records []runlog.Record
	decodeBody(t, res, &records)
	if len(records) != 1 || records[0].Op != "soft-pwm" {
		t.Errorf("got records %+v, want the one soft-pwm dispatch", records)
	}
}

func TestSoftPWMPinRejectsImpossibleWaveform(t *testing.T) {
	_, sim, mux := newTestServer(t)

	// a 25ms pulse cannot fit a 20ms period
	res := do(mux, http.MethodPost, "/pins/7/pwm", `{"pulseWidthMs":25,"frequency":50,"durationMs":100}`)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusUnprocessableEntity, res.Body)
	}

	var resp errorResponse
	decodeBody(t, res, &resp)
	if !strings.Contains(resp.Error, "leaves no low time") {
		t.Errorf("got error %q, want the pulse width complaint", resp.Error)
	}

	if _, claimed := sim.Level(7); claimed {
		t.Error("pin was claimed for a waveform that can't be generated")
	}

	var records []runlog.Record
	decodeBody(t, do(mux, http.MethodGet, "/runs", ""), &records)
	if len(records) != 1 || records[0].Error == "" {
		t.Errorf("got records %+v, want one failed dispatch", records)
	}
}

func TestHardwarePWMPin(t *testing.T) {
	_, sim, mux := newTestServer(t)

	// the simulated backend only wires pin 12
	res := do(mux, http.MethodPost, "/pins/11/hardware-pwm", `{"durationMs":40}`)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unwired pin: got status %d, want %d: %s", res.Code, http.StatusUnprocessableEntity, res.Body)
	}

	res = do(mux, http.MethodPost, "/pins/12/hardware-pwm", `{"pulseWidthMs":1,"frequency":50,"durationMs":40}`)
	if res.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusAccepted, res.Body)
	}

	var rec runlog.Record
	decodeBody(t, res, &rec)
	if rec.Op != "hardware-pwm" || rec.Pin != 12 {
		t.Errorf("got record %+v, want a hardware-pwm on pin 12", rec)
	}

	// the line is left in PWM mode, so the pin reads unknown
	waitFor(t, "the pin to read unknown", func() bool {
		var state pinState
		decodeBody(t, do(mux, http.MethodGet, "/pins/12", ""), &state)
		return state.State == "unknown"
	})

	waitFor(t, "the duty cycle to settle", func() bool {
		return sim.Duty(12) == 0
	})
}

func TestPresets(t *testing.T) {
	_, sim, mux := newTestServer(t)

	// nothing to run yet
	if res := do(mux, http.MethodPost, "/rpc/run", ""); res.Code != http.StatusInternalServerError {
		t.Errorf("no default preset: got status %d, want %d", res.Code, http.StatusInternalServerError)
	}

	res := do(mux, http.MethodPut, "/presets/servo", `{"pin":7,"pulseWidthMs":1,"frequency":50,"durationMs":40}`)
	if res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusNoContent, res.Body)
	}

	var names []string
	decodeBody(t, do(mux, http.MethodGet, "/presets", ""), &names)
	if len(names) != 1 || names[0] != "servo" {
		t.Errorf("got presets %v, want [servo]", names)
	}

	var preset store.Preset
	decodeBody(t, do(mux, http.MethodGet, "/presets/servo", ""), &preset)
	if preset.Pin != 7 || preset.Frequency != 50 {
		t.Errorf("got preset %+v, want the stored one back", preset)
	}

	if res := do(mux, http.MethodGet, "/presets/ghost", ""); res.Code != http.StatusInternalServerError {
		t.Errorf("missing preset: got status %d, want %d", res.Code, http.StatusInternalServerError)
	}

	if res := do(mux, http.MethodPut, "/preset", `"servo"`); res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", res.Code, http.StatusNoContent)
	}

	var def string
	decodeBody(t, do(mux, http.MethodGet, "/preset", ""), &def)
	if def != "servo" {
		t.Errorf("got default preset %q, want servo", def)
	}

	// the default preset runs when none is named
	res = do(mux, http.MethodPost, "/rpc/run", "")
	if res.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusAccepted, res.Body)
	}

	waitFor(t, "the preset waveform to start", func() bool {
		_, claimed := sim.Level(7)
		return claimed
	})
	waitFor(t, "the preset waveform to finish", func() bool {
		_, claimed := sim.Level(7)
		return !claimed
	})

	if res := do(mux, http.MethodPost, "/rpc/run?preset=ghost", ""); res.Code != http.StatusInternalServerError {
		t.Errorf("missing preset: got status %d, want %d", res.Code, http.StatusInternalServerError)
	}
}

func TestScheduleWriteFires(t *testing.T) {
	_, sim, mux := newTestServer(t)

	res := do(mux, http.MethodPost, "/schedule", `{"op":"write","pin":7,"level":true,"after":30}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusCreated, res.Body)
	}

	var job struct {
		ID  string    `json:"id"`
		Op  string    `json:"op"`
		Pin int       `json:"pin"`
		At  time.Time `json:"at"`
	}
	decodeBody(t, res, &job)
	if job.ID == "" || job.Op != "write" || job.Pin != 7 || job.At.IsZero() {
		t.Errorf("got job %+v, want an id, op write, pin 7, and a fire time", job)
	}

	waitFor(t, "the scheduled write to fire", func() bool {
		level, claimed := sim.Level(7)
		return level == gpio.High && !claimed
	})

	waitFor(t, "the fired job to leave the listing", func() bool {
		var jobs []struct {
			ID string `json:"id"`
		}
		decodeBody(t, do(mux, http.MethodGet, "/schedule", ""), &jobs)
		return len(jobs) == 0
	})
}

func TestScheduleCancel(t *testing.T) {
	_, sim, mux := newTestServer(t)

	res := do(mux, http.MethodPost, "/schedule", `{"op":"write","pin":7,"level":true,"after":60000}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusCreated, res.Body)
	}

	var job struct {
		ID string `json:"id"`
	}
	decodeBody(t, res, &job)

	var jobs []struct {
		ID string `json:"id"`
	}
	decodeBody(t, do(mux, http.MethodGet, "/schedule", ""), &jobs)
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("got jobs %+v, want the one pending job", jobs)
	}

	if res := do(mux, http.MethodDelete, "/schedule/"+job.ID, ""); res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", res.Code, http.StatusNoContent)
	}

	decodeBody(t, do(mux, http.MethodGet, "/schedule", ""), &jobs)
	if len(jobs) != 0 {
		t.Errorf("got jobs %+v, want none after cancelling", jobs)
	}

	if res := do(mux, http.MethodDelete, "/schedule/"+job.ID, ""); res.Code != http.StatusNotFound {
		t.Errorf("second cancel: got status %d, want %d", res.Code, http.StatusNotFound)
	}

	if _, claimed := sim.Level(7); claimed {
		t.Error("cancelled job touched the hardware")
	}
}

func TestSchedulePreset(t *testing.T) {
	_, sim, mux := newTestServer(t)

	res := do(mux, http.MethodPut, "/presets/blink", `{"pin":7,"pulseWidthMs":1,"frequency":50,"durationMs":40}`)
	if res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", res.Code, http.StatusNoContent)
	}

	res = do(mux, http.MethodPost, "/schedule", `{"op":"preset","preset":"blink","after":30}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusCreated, res.Body)
	}

	var job struct {
		Op  string `json:"op"`
		Pin int    `json:"pin"`
	}
	decodeBody(t, res, &job)
	if job.Op != "preset blink" || job.Pin != 7 {
		t.Errorf("got job %+v, want preset blink on pin 7", job)
	}

	waitFor(t, "the preset waveform to start", func() bool {
		_, claimed := sim.Level(7)
		return claimed
	})

	if res := do(mux, http.MethodPost, "/schedule", `{"op":"preset","preset":"ghost","after":30}`); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing preset: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}
}

func TestScheduleValidation(t *testing.T) {
	_, _, mux := newTestServer(t)

	for name, body := range map[string]string{
		"neither at nor after": `{"op":"write","pin":7,"level":true}`,
		"both at and after":    `{"op":"write","pin":7,"level":true,"after":10,"at":"2030-01-01T00:00:00Z"}`,
		"unknown op":           `{"op":"dance","pin":7,"after":10}`,
		"non-GPIO pin":         `{"op":"write","pin":27,"level":true,"after":10}`,
		"garbage":              `{{{`,
	} {
		if res := do(mux, http.MethodPost, "/schedule", body); res.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: got status %d, want %d", name, res.Code, http.StatusUnprocessableEntity)
		}
	}
}

func TestRunProgram(t *testing.T) {
	_, sim, mux := newTestServer(t)

	res := do(mux, http.MethodPost, "/rpc/runProgram", `{"steps":[
		{"op":"write","pin":7,"level":true,"after":20},
		{"op":"write","pin":7,"level":false,"after":120}
	]}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusCreated, res.Body)
	}

	var jobs []struct {
		ID string `json:"id"`
		Op string `json:"op"`
	}
	decodeBody(t, res, &jobs)
	if len(jobs) != 2 || jobs[0].ID == jobs[1].ID {
		t.Fatalf("got jobs %+v, want two distinct scheduled steps", jobs)
	}

	waitFor(t, "the first step to fire", func() bool {
		level, claimed := sim.Level(7)
		return level == gpio.High && !claimed
	})

	waitFor(t, "the second step to fire", func() bool {
		level, claimed := sim.Level(7)
		return level == gpio.Low && !claimed
	})
}

func TestRunProgramValidation(t *testing.T) {
	_, _, mux := newTestServer(t)

	for name, body := range map[string]string{
		"no steps":      `{"steps":[]}`,
		"missing after": `{"steps":[{"op":"write","pin":7,"level":true}]}`,
		"absolute time": `{"steps":[{"op":"write","pin":7,"level":true,"after":10,"at":"2030-01-01T00:00:00Z"}]}`,
		"bad step op":   `{"steps":[{"op":"dance","pin":7,"after":10}]}`,
	} {
		if res := do(mux, http.MethodPost, "/rpc/runProgram", body); res.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: got status %d, want %d", name, res.Code, http.StatusUnprocessableEntity)
		}
	}
}

func TestUpdateHardware(t *testing.T) {
	_, sim, mux := newTestServer(t)

	// nothing stored yet
	if res := do(mux, http.MethodPost, "/rpc/updateHardware", ""); res.Code != http.StatusInternalServerError {
		t.Errorf("no stored config: got status %d, want %d", res.Code, http.StatusInternalServerError)
	}

	if res := do(mux, http.MethodPut, "/hardware", `{"sim":{}}`); res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", res.Code, http.StatusNoContent)
	}

	var config gpio.Config
	decodeBody(t, do(mux, http.MethodGet, "/hardware", ""), &config)
	if config.Kind() != "sim" {
		t.Errorf("got backend kind %q, want sim", config.Kind())
	}

	if res := do(mux, http.MethodPost, "/rpc/updateHardware", ""); res.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusOK, res.Body)
	}

	// writes land on the swapped-in backend now
	if res := do(mux, http.MethodPut, "/pins/7", "true"); res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusNoContent, res.Body)
	}

	if level, _ := sim.Level(7); level != gpio.Low {
		t.Error("write landed on the old backend")
	}
}

func TestMotors(t *testing.T) {
	_, _, mux := newTestServer(t)

	var statuses []motorStatus
	decodeBody(t, do(mux, http.MethodGet, "/motors", ""), &statuses)
	if len(statuses) != 1 || statuses[0].Name != "arm" || statuses[0].Angle != 0 || statuses[0].PulseWidthMs != 1 {
		t.Fatalf("got motors %+v, want arm at 0 degrees and 1ms", statuses)
	}

	if res := do(mux, http.MethodPut, "/motors/arm/angle", "90"); res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusNoContent, res.Body)
	}

	decodeBody(t, do(mux, http.MethodGet, "/motors", ""), &statuses)
	if statuses[0].Angle != 90 || statuses[0].PulseWidthMs != 1.5 {
		t.Errorf("got motor %+v, want 90 degrees at 1.5ms", statuses[0])
	}

	if res := do(mux, http.MethodPut, "/motors/ghost/angle", "90"); res.Code != http.StatusNotFound {
		t.Errorf("unknown motor: got status %d, want %d", res.Code, http.StatusNotFound)
	}

	if res := do(mux, http.MethodPut, "/motors/arm/angle", "270"); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("out of range angle: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}

	if res := do(mux, http.MethodPut, "/motors/arm/angle", "sideways"); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-numeric angle: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}
}

func TestPumps(t *testing.T) {
	_, sim, mux := newTestServer(t)

	var statuses []pumpStatus
	decodeBody(t, do(mux, http.MethodGet, "/pumps", ""), &statuses)
	if len(statuses) != 1 || statuses[0].Name != "sample" || statuses[0].Direction != "stopped" {
		t.Fatalf("got pumps %+v, want sample stopped", statuses)
	}

	if res := do(mux, http.MethodPost, "/pumps/sample/perfuse", ""); res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d: %s", res.Code, http.StatusNoContent, res.Body)
	}

	decodeBody(t, do(mux, http.MethodGet, "/pumps", ""), &statuses)
	if statuses[0].Direction != "forward" {
		t.Errorf("got direction %q, want forward", statuses[0].Direction)
	}

	// forward closes the top-left and bottom-right switches
	if level, _ := sim.Level(29); level != gpio.High {
		t.Error("top-left switch is not high")
	}
	if level, _ := sim.Level(35); level != gpio.High {
		t.Error("bottom-right switch is not high")
	}

	if res := do(mux, http.MethodPost, "/pumps/sample/stop", ""); res.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want %d", res.Code, http.StatusNoContent)
	}

	for _, number := range []int{29, 31, 33, 35} {
		if level, _ := sim.Level(number); level != gpio.Low {
			t.Errorf("switch on pin %d is not low after a stop", number)
		}
	}

	if res := do(mux, http.MethodPost, "/pumps/sample/rinse", ""); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown action: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}

	if res := do(mux, http.MethodPost, "/pumps/ghost/stop", ""); res.Code != http.StatusNotFound {
		t.Errorf("unknown pump: got status %d, want %d", res.Code, http.StatusNotFound)
	}
}

func TestGetRuns(t *testing.T) {
	_, _, mux := newTestServer(t)

	do(mux, http.MethodPut, "/pins/7", "true")
	do(mux, http.MethodPut, "/pins/7", "false")

	var records []runlog.Record
	decodeBody(t, do(mux, http.MethodGet, "/runs", ""), &records)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	decodeBody(t, do(mux, http.MethodGet, "/runs?limit=1", ""), &records)
	if len(records) != 1 {
		t.Fatalf("got %d records, want the limit of 1", len(records))
	}

	if res := do(mux, http.MethodGet, "/runs?limit=zero", ""); res.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad limit: got status %d, want %d", res.Code, http.StatusUnprocessableEntity)
	}
}

func TestInitRejectsDuplicateDeviceNames(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := &Server{
		Backend: gpio.NewSim(gpio.SimConfig{}),
		Logger:  logger,
		MotorConfigs: []motor.Config{
			{Name: "arm", Pin: 11, MinPulse: time.Millisecond, MaxPulse: 2 * time.Millisecond},
			{Name: "arm", Pin: 13, MinPulse: time.Millisecond, MaxPulse: 2 * time.Millisecond},
		},
	}
	if err := s.init(); err == nil {
		t.Fatal("expected an error for a duplicate motor name")
	}

	s = &Server{
		Backend: gpio.NewSim(gpio.SimConfig{}),
		Logger:  logger,
		PumpConfigs: []pump.Config{
			{Name: "sample", Pins: [4]int{29, 31, 33, 35}},
			{Name: "sample", Pins: [4]int{36, 37, 38, 40}},
		},
	}
	if err := s.init(); err == nil {
		t.Fatal("expected an error for a duplicate pump name")
	}
}
