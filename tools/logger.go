package tools

import (
	"flag"
	"fmt"

	"github.com/golang/glog"
)

var isEnabled = true

func EnableLogger() {
	isEnabled = true
}

// Suppresses the non error messages written with LogOutput
func DisableLogger() {
	isEnabled = false
}

func IsLoggerEnabled() bool {
	return isEnabled
}

func LogOutput(val ...interface{}) {
	if isEnabled {
		glog.InfoDepth(1, fmt.Sprintln(val...))
	}
}

// Routes glog to stderr, or only errors when silent
func ConfigureLogging(silent bool) {
	if silent {
		DisableLogger()
		_ = flag.Set("logtostderr", "false")
		_ = flag.Set("stderrthreshold", "ERROR")
		return
	}
	_ = flag.Set("logtostderr", "true")
}
