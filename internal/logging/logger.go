package logging

import (
	"io"
	"os"
	"strings"

	"github.com/2beens/liftlog/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerSetupParams struct {
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
	// Stderr sends console output to stderr, for binaries whose stdout carries data.
	Stderr bool

	Environment      string
	Release          string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
}

func Setup(params LoggerSetupParams) {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetLevel(GetLevel(params.LogLevel))
	logrus.SetOutput(output(params))

	if params.SentryEnabled {
		setupSentry(params)
	}
}

func output(params LoggerSetupParams) io.Writer {
	var console io.Writer = os.Stdout
	if params.Stderr {
		console = os.Stderr
	}
	if params.LogFileName == "" {
		return console
	}

	fileName := params.LogFileName
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	rotated := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    50, // megabytes
		MaxBackups: 20,
		Compress:   true,
	}
	if params.LogToStdout {
		return pkg.NewCombinedWriter(console, rotated)
	}
	return rotated
}

func setupSentry(params LoggerSetupParams) {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              params.SentryDSN,
		Environment:      params.Environment,
		Release:          params.Release,
		ServerName:       params.SentryServerName,
		TracesSampleRate: 0.2,
	}); err != nil {
		logrus.Errorf("sentry init: %s", err)
		return
	}

	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
	logrus.Debugf("sentry hook added, release [%s]", params.Release)
}

// GetLevel parses a level name; unknown names mean trace.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.TraceLevel
	}
	return parsed
}
