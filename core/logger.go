package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProductionLogger writes leveled, structured logs to a single writer.
// Output is plain text for local development and JSON when running in
// Kubernetes, so log aggregation gets parseable records without extra
// configuration.
//
// Configuration priority:
//  1. Explicit options (highest)
//  2. Environment variables (TRIPWEAVER_LOG_LEVEL, TRIPWEAVER_LOG_FORMAT)
//  3. Auto-detection (K8s environment)
//  4. Defaults (lowest)
type ProductionLogger struct {
	level       int
	serviceName string
	format      string
	output      io.Writer
	mu          sync.Mutex
}

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var levelNames = map[string]int{
	"DEBUG": levelDebug,
	"INFO":  levelInfo,
	"WARN":  levelWarn,
	"ERROR": levelError,
}

// LoggerOption configures a ProductionLogger
type LoggerOption func(*ProductionLogger)

// WithLogLevel overrides the log level ("DEBUG", "INFO", "WARN", "ERROR")
func WithLogLevel(level string) LoggerOption {
	return func(l *ProductionLogger) {
		if lv, ok := levelNames[strings.ToUpper(level)]; ok {
			l.level = lv
		}
	}
}

// WithLogFormat overrides the output format ("text" or "json")
func WithLogFormat(format string) LoggerOption {
	return func(l *ProductionLogger) {
		if format == "text" || format == "json" {
			l.format = format
		}
	}
}

// WithLogOutput redirects log output (used by tests)
func WithLogOutput(w io.Writer) LoggerOption {
	return func(l *ProductionLogger) {
		l.output = w
	}
}

// NewProductionLogger creates a logger for the given service name.
func NewProductionLogger(serviceName string, opts ...LoggerOption) *ProductionLogger {
	level := levelInfo
	if env := os.Getenv("TRIPWEAVER_LOG_LEVEL"); env != "" {
		if lv, ok := levelNames[strings.ToUpper(env)]; ok {
			level = lv
		}
	}

	format := "text"
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		format = "json" // JSON in K8s for log aggregation
	}
	if env := os.Getenv("TRIPWEAVER_LOG_FORMAT"); env == "text" || env == "json" {
		format = env
	}

	l := &ProductionLogger{
		level:       level,
		serviceName: serviceName,
		format:      format,
		output:      os.Stdout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	l.log(levelDebug, "DEBUG", msg, fields)
}

func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	l.log(levelInfo, "INFO", msg, fields)
}

func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	l.log(levelWarn, "WARN", msg, fields)
}

func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	l.log(levelError, "ERROR", msg, fields)
}

func (l *ProductionLogger) log(level int, name, msg string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	if l.format == "json" {
		record := make(map[string]interface{}, len(fields)+4)
		for k, v := range fields {
			record[k] = v
		}
		record["timestamp"] = now
		record["level"] = name
		record["service"] = l.serviceName
		record["message"] = msg
		if data, err := json.Marshal(record); err == nil {
			fmt.Fprintln(l.output, string(data))
		}
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %s: %s", now, name, l.serviceName, msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(l.output, sb.String())
}
