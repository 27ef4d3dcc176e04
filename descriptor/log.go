package descriptor

import (
	"io/ioutil"
	"log"
	"os"
)

var logger = log.New(os.Stderr, "", log.LstdFlags)

// SetLogger replaces the package logger. A nil logger discards output.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(ioutil.Discard, "", 0)
	}
	logger = l
}
