package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/perfuselab/pindrive/config"
	"github.com/perfuselab/pindrive/gpio"
	"github.com/perfuselab/pindrive/runlog"
	"github.com/perfuselab/pindrive/server"
	"github.com/perfuselab/pindrive/store"
	"github.com/sirupsen/logrus"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "pindrive.yaml", "path to the yaml config file")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("unable to load config: %s", err)
	}

	backend, err := gpio.New(cfg.Backend)
	if err != nil {
		logger.Fatalf("unable to set up gpio backend: %s", err)
	}
	logger.WithField("backend", cfg.Backend.Kind()).Info("gpio backend ready")

	st, err := store.OpenBBolt(cfg.StorePath, 0666, nil)
	if err != nil {
		logger.Fatalf("unable to open store: %s", err)
	}
	defer st.Close()

	runs, err := runlog.Open(cfg.RunlogPath)
	if err != nil {
		logger.Fatalf("unable to open run log: %s", err)
	}
	defer runs.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The server owns the backend from here on. It closes whichever backend
	// is current when Run returns, which is not necessarily the one we built.
	s := server.Server{
		Addr:         cfg.ListenAddr,
		Backend:      backend,
		Store:        st,
		Runs:         runs,
		Logger:       logger,
		MotorConfigs: cfg.Motors,
		PumpConfigs:  cfg.Pumps,
	}

	if err := s.Run(ctx); err != nil {
		logger.Fatalf("server stopped: %s", err)
	}
}
