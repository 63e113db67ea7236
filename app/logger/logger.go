// Package logger wraps a sugared zap logger with key/value redaction so
// passwords, tokens and raw logins never reach the log output.
package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// secretFragments mark keys whose values are dropped.
var secretFragments = []string{"password", "token", "authorization", "secret"}

// identityKeys are logged as a short digest so entries for one user can be
// correlated without recording who it is.
var identityKeys = map[string]bool{"login": true, "user_id": true}

// Logger is the structured logger shared by the app, the API client and the
// cache.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger writing to stderr. mode is "dev" (console encoding,
// debug level) or "prod" (JSON, warnings and errors only).
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production", "":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "dev", "development":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// NewWithCore wraps an existing core; tests pass an observer core.
func NewWithCore(core zapcore.Core) *Logger {
	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

// Debug logs msg with redacted key/value pairs.
func (l *Logger) Debug(msg string, kv ...any) {
	l.SugaredLogger.Debugw(msg, redact(kv)...)
}

// Info logs msg with redacted key/value pairs.
func (l *Logger) Info(msg string, kv ...any) {
	l.SugaredLogger.Infow(msg, redact(kv)...)
}

// Warn logs msg with redacted key/value pairs.
func (l *Logger) Warn(msg string, kv ...any) {
	l.SugaredLogger.Warnw(msg, redact(kv)...)
}

// Error logs msg with redacted key/value pairs.
func (l *Logger) Error(msg string, kv ...any) {
	l.SugaredLogger.Errorw(msg, redact(kv)...)
}

// With returns a child logger that adds kv to every entry.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(redact(kv)...)}
}

// Log lets packages that only know the interfaces.Logger surface (the
// cache) write through this logger.
func (l *Logger) Log(level, message string) {
	switch strings.ToLower(level) {
	case "debug":
		l.Debug(message)
	case "warn", "warning":
		l.Warn(message)
	case "error":
		l.Error(message)
	default:
		l.Info(message)
	}
}

// redact rewrites the values of a key/value list. A trailing key without a
// value is passed through for zap to report.
func redact(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		out[i] = key
		out[i+1] = redactValue(strings.ToLower(key), kv[i+1])
	}
	return out
}

func redactValue(key string, val any) any {
	for _, frag := range secretFragments {
		if strings.Contains(key, frag) {
			return redacted
		}
	}
	if identityKeys[key] {
		return digest(val)
	}
	if s, ok := val.(string); ok && isJWT(s) {
		return redacted
	}
	return val
}

func digest(val any) string {
	raw := fmt.Sprint(val)
	if val == nil || raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(raw))
	return "hash:" + hex.EncodeToString(sum[:6])
}

// isJWT reports whether s has the three dot-separated segments of a compact
// JWT with a plausible header and payload.
func isJWT(s string) bool {
	header, rest, ok := strings.Cut(s, ".")
	if !ok {
		return false
	}
	payload, sig, ok := strings.Cut(rest, ".")
	return ok && !strings.Contains(sig, ".") && len(header) > 10 && len(payload) > 10
}
