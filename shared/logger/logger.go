// Copyright 2025 CortexAI
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
)

var levelRank = map[Level]int{
	DEBUG: 0,
	INFO:  1,
	WARN:  2,
	ERROR: 3,
}

// ParseLevel converts a string into a Level, defaulting to INFO for
// unknown values.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case DEBUG:
		return DEBUG
	case WARN:
		return WARN
	case ERROR:
		return ERROR
	default:
		return INFO
	}
}

var (
	defaultMu  sync.RWMutex
	defaultMin = INFO
)

// SetLevel sets the minimum level applied to loggers created after
// the call. Existing loggers keep their level; use Logger.SetLevel to
// change one in place.
func SetLevel(min Level) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultMin = min
}

// Logger provides structured JSON logging for gateway components.
// Instances are safe for concurrent use.
type Logger struct {
	Component string
	Instance  string

	mu    sync.RWMutex
	min   Level
	sink  io.Writer
	plain *log.Logger
}

// Entry is the JSON shape of a single log line.
type Entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component"`
	Instance  string                 `json:"instance"`
	ClientID  string                 `json:"client_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// New creates a Logger for the named component. Instance identity comes
// from the INSTANCE_ID environment variable, falling back to the hostname.
func New(component string) *Logger {
	instance := os.Getenv("INSTANCE_ID")
	if instance == "" {
		if host, err := os.Hostname(); err == nil {
			instance = host
		} else {
			instance = "unknown"
		}
	}

	defaultMu.RLock()
	min := defaultMin
	defaultMu.RUnlock()

	return &Logger{
		Component: component,
		Instance:  instance,
		min:       min,
		sink:      os.Stdout,
		plain:     log.New(os.Stderr, "", log.LstdFlags),
	}
}

// SetLevel sets the minimum level emitted by this logger.
func (l *Logger) SetLevel(min Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.min = min
}

// SetOutput redirects log output, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = w
}

// Log writes a structured entry at the given level.
func (l *Logger) Log(level Level, clientID, requestID, message string, fields map[string]interface{}) {
	l.mu.RLock()
	min := l.min
	l.mu.RUnlock()

	if levelRank[level] < levelRank[min] {
		return
	}

	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Component: l.Component,
		Instance:  l.Instance,
		ClientID:  clientID,
		RequestID: requestID,
		Message:   message,
		Fields:    fields,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		// Fall back to plain text if marshaling fails.
		l.plain.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.sink.Write(append(line, '\n'))
}

// Debug logs a debug message.
func (l *Logger) Debug(clientID, requestID, message string, fields map[string]interface{}) {
	l.Log(DEBUG, clientID, requestID, message, fields)
}

// Info logs an informational message.
func (l *Logger) Info(clientID, requestID, message string, fields map[string]interface{}) {
	l.Log(INFO, clientID, requestID, message, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(clientID, requestID, message string, fields map[string]interface{}) {
	l.Log(WARN, clientID, requestID, message, fields)
}

// Error logs an error message.
func (l *Logger) Error(clientID, requestID, message string, fields map[string]interface{}) {
	l.Log(ERROR, clientID, requestID, message, fields)
}

// InfoWithDuration logs an info message carrying a duration_ms field.
func (l *Logger) InfoWithDuration(clientID, requestID, message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Info(clientID, requestID, message, fields)
}

// ErrorWithCode logs an error carrying a status code and error detail.
func (l *Logger) ErrorWithCode(clientID, requestID, message string, statusCode int, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["status_code"] = statusCode
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error(clientID, requestID, message, fields)
}
