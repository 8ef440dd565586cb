package logger

import (
	"log"
	"os"
)

var (
	Debug   *log.Logger
	Info    *log.Logger
	Warning *log.Logger
	Error   *log.Logger
)

// Init sets up the package level loggers. Call it once from main before
// anything else starts logging.
func Init() {
	Debug = log.New(os.Stdout, "DEBUG\t", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(os.Stdout, "INFO\t", log.Ldate|log.Ltime)
	Warning = log.New(os.Stdout, "WARNING\t", log.Ldate|log.Ltime)
	Error = log.New(os.Stderr, "ERROR\t", log.Ldate|log.Ltime|log.Lshortfile)
}

func init() {
	// Packages may log during their own initialization (or from tests that
	// never call Init), so make sure the loggers are always usable.
	Init()
}
