package logging

import (
	"os"
)

// exit is replaced in tests.
var exit = os.Exit

// Fatalf logs at Error level and exits the program with status 1. Deferred
// calls do not run.
func (log *Logger) Fatalf(format string, v ...interface{}) {
	log.Log(Error, 1, format, v...)
	exit(1)
}
