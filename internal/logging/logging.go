/*
Copyright The Smol Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// NewLogger creates a text logger writing to out. Timestamps are dropped
// and colors are only used when out is a terminal.
func NewLogger(out io.Writer, debug bool) *logrus.Logger {
	l := logrus.New()
	l.Out = out
	l.Formatter = &logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    !isTerminal(out),
	}
	l.Level = logrus.InfoLevel
	if debug {
		l.Level = logrus.DebugLevel
	}
	return l
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Discard returns a logger that drops every entry.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.Level = logrus.PanicLevel
	return l
}

// OrDiscard returns log, or a discarding logger when log is nil.
func OrDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return Discard()
	}
	return log
}

// Fanout returns a logger that forwards every entry to each sink that has
// the entry's level enabled. The returned logger writes nothing itself.
func Fanout(sinks ...*logrus.Logger) *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.Level = logrus.TraceLevel
	l.AddHook(&fanoutHook{sinks: sinks})
	return l
}

type fanoutHook struct {
	sinks []*logrus.Logger
}

func (h *fanoutHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fanoutHook) Fire(e *logrus.Entry) error {
	level := e.Level
	// Forwarding must never panic or exit on behalf of the caller.
	if level < logrus.ErrorLevel {
		level = logrus.ErrorLevel
	}
	for _, sink := range h.sinks {
		if !sink.IsLevelEnabled(level) {
			continue
		}
		sink.WithFields(e.Data).WithTime(e.Time).Log(level, e.Message)
	}
	return nil
}
