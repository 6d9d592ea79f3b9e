package main

import (
	"io"

	glog "github.com/goliatone/go-logger/glog"
)

// newLogger returns the JSON root logger. It also serves as the provider for
// component loggers.
func newLogger(w io.Writer, verbose bool) *glog.BaseLogger {
	level := "info"
	if verbose {
		level = "debug"
	}
	return glog.NewLogger(
		glog.WithName("go-subscriptions"),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel(level),
		glog.WithWriter(w),
	)
}
