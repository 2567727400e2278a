package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"justapengu.in/trackday/internal/recorder"
	"justapengu.in/trackday/internal/recorder/store"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.DebugLevel)

	logger.Infof("Starting trackday telemetry session recorder")

	config, err := readConfig()

	if err != nil {
		logger.WithError(err).Fatalf("Could not read config at %s", configPath)
	}

	sessionStore, err := store.NewSQLite(config.StorePath, logger)

	if err != nil {
		logger.WithError(err).Fatal("Could not open session store")
	}

	rec, err := recorder.NewRecorder(context.Background(), config, sessionStore, logger)

	if err != nil {
		logger.WithError(err).Fatal("Could not initialise recorder")
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		for range c {
			if err := rec.Stop(); err != nil {
				logger.WithError(err).Error("Could not stop recorder cleanly")
			}

			if err := sessionStore.Close(); err != nil {
				logger.WithError(err).Error("Could not close session store")
			}

			os.Exit(0)
		}
	}()

	if err := rec.Run(); err != nil {
		logger.WithError(err).Fatal("Could not run recorder")
	}

	logger.Infof("Recorder stopped. Exiting")
}

func readConfig() (recorder.Config, error) {
	config := recorder.DefaultConfig()

	f, err := os.Open(configPath)

	if os.IsNotExist(err) {
		return config, nil
	} else if err != nil {
		return config, err
	}

	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&config); err != nil {
		return config, err
	}

	return config, nil
}
