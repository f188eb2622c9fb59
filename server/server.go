// Package server exposes pins, waveforms, presets, schedules, and the
// configured devices over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/motor"
	"github.com/perfuselab/pindrive/pin"
	"github.com/perfuselab/pindrive/pump"
	"github.com/perfuselab/pindrive/runlog"
	"github.com/perfuselab/pindrive/schedule"
	"github.com/perfuselab/pindrive/store"
)

type Server struct {
	Addr string

	// Backend drives the pins. The server takes ownership: a runtime
	// backend update closes it, and Run closes whichever backend is
	// current when it returns.
	Backend gpio.GPIO

	Store  store.Store
	Runs   *runlog.Log
	Logger *logrus.Logger

	MotorConfigs []motor.Config
	PumpConfigs  []pump.Config

	scheduler *schedule.Scheduler

	backendManager *backendManager
	pinManager     *pinManager
	jobManager     *jobManager

	motors    map[string]*motor.Motor
	motorList []*motor.Motor
	pumps     map[string]*pump.Pump
	pumpList  []*pump.Pump
}

func (s *Server) Run(ctx context.Context) error {
	if err := s.init(); err != nil {
		return fmt.Errorf("unable to initialize: %w", err)
	}

	defer func() {
		if err := s.backendManager.Close(); err != nil {
			s.Logger.Warnf("unable to close gpio backend: %s", err)
		}
	}()
	defer s.scheduler.Stop()

	httpServer := &http.Server{
		Addr:              s.Addr,
		Handler:           s.routes(),
		ReadTimeout:       time.Second * 15,
		ReadHeaderTimeout: time.Second * 15,
		IdleTimeout:       time.Second * 30,
		MaxHeaderBytes:    4096,
	}

	listenErrs := make(chan error, 1)
	go func() {
		s.Logger.WithField("addr", s.Addr).Info("serving http")
		listenErrs <- httpServer.ListenAndServe()
	}()

	motorCtx, cancelMotors := context.WithCancel(ctx)
	defer cancelMotors()

	motorErrs := make(chan error, 1)
	go func() {
		motorErrs <- s.runMotors(motorCtx)
	}()

	select {
	case err := <-listenErrs:
		return err
	case err := <-motorErrs:
		httpServer.Shutdown(ctx)
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(ctx)
	}
}

// init builds the managers around the configured backend and constructs the
// motors and pumps against them, so every device survives a backend swap.
func (s *Server) init() error {
	if s.Backend == nil {
		return fmt.Errorf("no gpio backend")
	}

	s.backendManager = &backendManager{backend: s.Backend, mu: new(sync.RWMutex)}
	s.pinManager = &pinManager{conn: s.backendManager, pins: map[int]*pin.Pin{}, mu: new(sync.Mutex)}
	s.jobManager = &jobManager{jobs: map[string]scheduledJob{}, mu: new(sync.Mutex)}

	s.motors = map[string]*motor.Motor{}
	for _, cfg := range s.MotorConfigs {
		if _, ok := s.motors[cfg.Name]; ok {
			return fmt.Errorf("motor name %q is used twice", cfg.Name)
		}

		m, err := motor.New(s.backendManager, cfg)
		if err != nil {
			return err
		}

		s.motors[cfg.Name] = m
		s.motorList = append(s.motorList, m)
	}

	s.pumps = map[string]*pump.Pump{}
	for _, cfg := range s.PumpConfigs {
		if _, ok := s.pumps[cfg.Name]; ok {
			return fmt.Errorf("pump name %q is used twice", cfg.Name)
		}

		p, err := pump.New(s.backendManager, cfg)
		if err != nil {
			return err
		}

		s.pumps[cfg.Name] = p
		s.pumpList = append(s.pumpList, p)
	}

	// Started last so a failed init never leaves a runner behind.
	s.scheduler = schedule.New()

	return nil
}

func (s *Server) routes() *httprouter.Router {
	mux := httprouter.New()

	mux.HandlerFunc(http.MethodGet, "/pins/:pin", s.getPin)
	mux.HandlerFunc(http.MethodPut, "/pins/:pin", s.putPin)
	mux.HandlerFunc(http.MethodPost, "/pins/:pin/high", s.highPin)
	mux.HandlerFunc(http.MethodPost, "/pins/:pin/pwm", s.pwmPin)
	mux.HandlerFunc(http.MethodPost, "/pins/:pin/hardware-pwm", s.hardwarePWMPin)

	mux.HandlerFunc(http.MethodGet, "/preset", s.getDefaultPreset)
	mux.HandlerFunc(http.MethodPut, "/preset", s.putDefaultPreset)
	mux.HandlerFunc(http.MethodGet, "/presets", s.getPresets)
	mux.HandlerFunc(http.MethodGet, "/presets/:name", s.getPreset)
	mux.HandlerFunc(http.MethodPut, "/presets/:name", s.putPreset)

	mux.HandlerFunc(http.MethodGet, "/hardware", s.getHardware)
	mux.HandlerFunc(http.MethodPut, "/hardware", s.putHardware)

	mux.HandlerFunc(http.MethodPost, "/schedule", s.postSchedule)
	mux.HandlerFunc(http.MethodGet, "/schedule", s.getSchedule)
	mux.HandlerFunc(http.MethodDelete, "/schedule/:id", s.deleteSchedule)

	mux.HandlerFunc(http.MethodGet, "/runs", s.getRuns)

	mux.HandlerFunc(http.MethodGet, "/motors", s.getMotors)
	mux.HandlerFunc(http.MethodPut, "/motors/:name/angle", s.putMotorAngle)
	mux.HandlerFunc(http.MethodGet, "/pumps", s.getPumps)
	mux.HandlerFunc(http.MethodPost, "/pumps/:name/:action", s.postPumpAction)

	mux.HandlerFunc(http.MethodPost, "/rpc/run", s.runPreset)
	mux.HandlerFunc(http.MethodPost, "/rpc/runProgram", s.runProgram)
	mux.HandlerFunc(http.MethodPost, "/rpc/updateHardware", s.updateHardware)

	return mux
}

// runMotors drives every configured motor's signal loop until ctx is
// cancelled, returning the first loop error.
func (s *Server) runMotors(ctx context.Context) error {
	if len(s.motorList) == 0 {
		<-ctx.Done()
		return nil
	}

	s.Logger.Infof("driving %d motors", len(s.motorList))

	errs := make(chan error, len(s.motorList))
	for _, m := range s.motorList {
		m := m
		go func() {
			errs <- m.Run(ctx)
		}()
	}

	for range s.motorList {
		if err := <-errs; err != nil {
			return err
		}
	}

	return nil
}
