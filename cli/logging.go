package main

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/downtowncxsh/xplx-access-bot/entitlement"
)

func configureLogger(cfg *entitlement.Config) {
	logrusLogger.Out = os.Stderr
	if cfg.Debug {
		logrusLogger.SetLevel(logrus.DebugLevel)
		logrusLogger.SetReportCaller(true)
	} else {
		logrusLogger.SetLevel(logrus.InfoLevel)
		logrusLogger.SetReportCaller(false)
	}
	logrusLogger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	})
}
