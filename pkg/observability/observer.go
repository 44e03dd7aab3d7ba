package observability

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields carries structured context attached to an observed event.
type Fields map[string]interface{}

// Observer receives lifecycle events from the pipeline and the session
// normalizer. Implementations must be safe for concurrent use.
type Observer interface {
	Info(scope, event string, fields Fields)
	Warn(scope, event string, fields Fields)
	Error(scope, event string, fields Fields)
}

// EventMessage renders the canonical message for a scope/event pair,
// e.g. "[novo-auth:transport:link:auth] missing-token".
func EventMessage(scope, event string) string {
	return fmt.Sprintf("[novo-auth:%s] %s", scope, event)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) Info(string, string, Fields)  {}
func (NopObserver) Warn(string, string, Fields)  {}
func (NopObserver) Error(string, string, Fields) {}

// LoggerObserver forwards events to a structured Logger.
type LoggerObserver struct {
	logger *Logger
}

// NewLoggerObserver wraps logger as an Observer.
func NewLoggerObserver(logger *Logger) *LoggerObserver {
	return &LoggerObserver{logger: logger}
}

func (o *LoggerObserver) entry(scope, event string, fields Fields) *Logger {
	return o.logger.WithFields(fields).WithField("scope", scope).WithField("event", event)
}

func (o *LoggerObserver) Info(scope, event string, fields Fields) {
	o.entry(scope, event, fields).Info(EventMessage(scope, event))
}

func (o *LoggerObserver) Warn(scope, event string, fields Fields) {
	o.entry(scope, event, fields).Warn(EventMessage(scope, event))
}

func (o *LoggerObserver) Error(scope, event string, fields Fields) {
	o.entry(scope, event, fields).Error(EventMessage(scope, event))
}

// LogrusObserver forwards events to a logrus logger.
type LogrusObserver struct {
	log *logrus.Logger
}

// NewLogrusObserver wraps log as an Observer. A nil log uses logrus.New().
func NewLogrusObserver(log *logrus.Logger) *LogrusObserver {
	if log == nil {
		log = logrus.New()
	}
	return &LogrusObserver{log: log}
}

func (o *LogrusObserver) entry(scope, event string, fields Fields) *logrus.Entry {
	return o.log.WithFields(logrus.Fields(fields)).WithField("scope", scope).WithField("event", event)
}

func (o *LogrusObserver) Info(scope, event string, fields Fields) {
	o.entry(scope, event, fields).Info(EventMessage(scope, event))
}

func (o *LogrusObserver) Warn(scope, event string, fields Fields) {
	o.entry(scope, event, fields).Warn(EventMessage(scope, event))
}

func (o *LogrusObserver) Error(scope, event string, fields Fields) {
	o.entry(scope, event, fields).Error(EventMessage(scope, event))
}

// Event is a single event captured by a Recorder.
type Event struct {
	Level  LogLevel
	Scope  string
	Event  string
	Fields Fields
}

// Recorder captures events in memory. It is intended for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) record(level LogLevel, scope, event string, fields Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Scope: scope, Event: event, Fields: fields})
}

func (r *Recorder) Info(scope, event string, fields Fields) {
	r.record(InfoLevel, scope, event, fields)
}

func (r *Recorder) Warn(scope, event string, fields Fields) {
	r.record(WarnLevel, scope, event, fields)
}

func (r *Recorder) Error(scope, event string, fields Fields) {
	r.record(ErrorLevel, scope, event, fields)
}

// Events returns a copy of every recorded event in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events match scope and event.
func (r *Recorder) Count(scope, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Scope == scope && e.Event == event {
			n++
		}
	}
	return n
}

// Find returns the events that match scope and event.
func (r *Recorder) Find(scope, event string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Scope == scope && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
