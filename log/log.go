package log

import (
	"io"
	"log"
	"os"
)

var (
	Trace   *log.Logger
	Info    *log.Logger
	Warning *log.Logger
	Error   *log.Logger
)

func init() {
	InitLog()
}

// InitLog (re)creates the package loggers. Trace output is only enabled
// when INKVISION_TRACE is set to 1 or 2, 2 adding file and line.
func InitLog() {
	var traceHandle io.Writer = io.Discard
	traceFlags := log.Ldate | log.Ltime

	switch os.Getenv("INKVISION_TRACE") {
	case "1":
		traceHandle = os.Stderr
	case "2":
		traceHandle = os.Stderr
		traceFlags |= log.Lshortfile
	}

	Trace = log.New(traceHandle, "TRACE: ", traceFlags)
	Info = log.New(os.Stdout, "", 0)
	Warning = log.New(os.Stderr, "WARNING: ", log.Ldate|log.Ltime)
	Error = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}
