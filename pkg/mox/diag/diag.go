// Copyright 2020-2021 The Mox Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package diag is the structured event logger the muxer and demuxer
// emit lifecycle diagnostics through: a chained Level().Src().Msg()
// event builder fanning out to channel subscribers. There is no
// persistent store; MOX is a library with no supervising daemon to
// persist against.
package diag

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level is a log severity, numbered on ffmpeg's -loglevel scale.
type Level uint8

// Log levels.
const (
	LevelError Level = 16
	LevelWarn  Level = 24
	LevelInfo  Level = 32
	LevelDebug Level = 48
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "?"
	}
}

// Entry is one emitted log line.
type Entry struct {
	Level Level
	Time  time.Time
	Src   string // e.g. "muxer", "demuxer"
	Msg   string
}

type feed chan Entry

// Logger fans Entry values out to every live Subscribe call. The zero
// value is a usable logger with no subscribers, and a nil *Logger
// drops every event, so callers never need to guard their log sites.
type Logger struct {
	mu   sync.Mutex
	subs map[feed]struct{}
}

// NewLogger returns a ready-to-use Logger with no subscribers.
func NewLogger() *Logger {
	return &Logger{subs: make(map[feed]struct{})}
}

// CancelFunc stops a subscription started by Subscribe.
type CancelFunc func()

// Subscribe returns a channel fed every Entry logged from now on, and a
// CancelFunc to stop receiving.
func (l *Logger) Subscribe() (<-chan Entry, CancelFunc) {
	ch := make(feed, 16)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()
	return ch, func() {
		l.mu.Lock()
		delete(l.subs, ch)
		l.mu.Unlock()
		close(ch)
	}
}

func (l *Logger) emit(e Entry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- e:
		default: // a slow subscriber must not stall the muxer/demuxer.
		}
	}
}

// Event is a message under construction; call Msg or Msgf to send it.
type Event struct {
	level  Level
	src    string
	logger *Logger
}

// Src sets the event's source tag.
func (e *Event) Src(src string) *Event {
	e.src = src
	return e
}

// Msg sends the event with msg as its message.
func (e *Event) Msg(msg string) {
	e.logger.emit(Entry{Level: e.level, Time: time.Now(), Src: e.src, Msg: msg})
}

// Msgf sends the event with a formatted message.
func (e *Event) Msgf(format string, args ...interface{}) {
	e.Msg(fmt.Sprintf(format, args...))
}

func (l *Logger) event(level Level) *Event { return &Event{level: level, logger: l} }

// Error starts an error-level event.
func (l *Logger) Error() *Event { return l.event(LevelError) }

// Warn starts a warning-level event.
func (l *Logger) Warn() *Event { return l.event(LevelWarn) }

// Info starts an info-level event.
func (l *Logger) Info() *Event { return l.event(LevelInfo) }

// Debug starts a debug-level event.
func (l *Logger) Debug() *Event { return l.event(LevelDebug) }

// LogToStdout prints every entry logged from now on until cancel is
// called, one "[LEVEL] Src: msg" line each.
func (l *Logger) LogToStdout() CancelFunc {
	ch, cancel := l.Subscribe()
	go func() {
		for e := range ch {
			line := "[" + e.Level.String() + "] "
			if e.Src != "" {
				line += strings.Title(e.Src) + ": " //nolint:staticcheck
			}
			fmt.Println(line + e.Msg)
		}
	}()
	return cancel
}
