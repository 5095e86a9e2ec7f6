package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxBodyChars bounds how much of a content body is written to a log line.
const maxBodyChars = 256

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger for mode: "prod"/"production" emits JSON at info,
// "test"/"silent" discards everything, anything else is the development
// console logger at debug. LOG_LEVEL overrides the level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(zap.InfoLevel))
	case "test", "silent":
		return Nop(), nil
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(levelFromEnv(zap.DebugLevel))
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// Nop returns a logger that drops every entry.
func Nop() *Logger { return &Logger{SugaredLogger: zap.NewNop().Sugar()} }

func levelFromEnv(def zapcore.Level) zapcore.Level {
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return def
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		return def
	}
	return lvl
}

func (l *Logger) Sync() { _ = l.SugaredLogger.Sync() }

func (l *Logger) Debug(msg string, kv ...any) { l.SugaredLogger.Debugw(msg, scrubFields(kv)...) }
func (l *Logger) Info(msg string, kv ...any)  { l.SugaredLogger.Infow(msg, scrubFields(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.SugaredLogger.Warnw(msg, scrubFields(kv)...) }
func (l *Logger) Error(msg string, kv ...any) { l.SugaredLogger.Errorw(msg, scrubFields(kv)...) }
func (l *Logger) Fatal(msg string, kv ...any) { l.SugaredLogger.Fatalw(msg, scrubFields(kv)...) }

func (l *Logger) With(kv ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(scrubFields(kv)...)}
}

// fieldPolicy says what happens to a value before it is logged.
type fieldPolicy int

const (
	keepField fieldPolicy = iota
	redactField
	hashField
	clipField
)

var (
	secretMarkers = []string{"token", "authorization", "password", "secret", "cookie", "dsn", "email"}
	actorKeys     = map[string]bool{"user_id": true, "user_name": true, "actor": true, "owner_id": true}
	contentKeys   = map[string]bool{"structured_text": true, "markup": true, "rich_document": true, "content": true, "text": true, "body": true}
)

// policyFor picks the policy for a lowercased key. Content bodies are clipped
// even with redaction off.
func policyFor(key string, redact bool) fieldPolicy {
	if contentKeys[key] {
		return clipField
	}
	if !redact || key == "" {
		return keepField
	}
	if actorKeys[key] {
		return hashField
	}
	for _, m := range secretMarkers {
		if strings.Contains(key, m) {
			return redactField
		}
	}
	return keepField
}

func scrubFields(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	redact := redactionOn()
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, toString(kv[i]), scrub(normKey(kv[i]), kv[i+1], redact))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func scrub(key string, val any, redact bool) any {
	switch policyFor(key, redact) {
	case redactField:
		return "[REDACTED]"
	case hashField:
		return hashValue(val)
	case clipField:
		return clip(toString(val))
	}
	if !redact {
		return val
	}
	switch v := val.(type) {
	case map[string]any:
		if v == nil {
			return v
		}
		m := make(map[string]any, len(v))
		for k, inner := range v {
			m[k] = scrub(normKey(k), inner, redact)
		}
		return m
	case []any:
		if v == nil {
			return v
		}
		s := make([]any, len(v))
		for i, inner := range v {
			s[i] = scrub("", inner, redact)
		}
		return s
	}
	return val
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxBodyChars {
		return s
	}
	return fmt.Sprintf("%s...(%d chars)", string(r[:maxBodyChars]), len(r))
}

func hashValue(val any) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	_, _ = h.Write([]byte(hashSalt))
	_, _ = h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func normKey(k any) string { return strings.ToLower(toString(k)) }

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

var (
	redactOnce       sync.Once
	redactionEnabled bool
	hashSalt         string
)

// redactionOn reads LOG_REDACTION_ENABLED and LOG_HASH_SALT once. Redaction
// is on unless explicitly disabled.
func redactionOn() bool {
	redactOnce.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			redactionEnabled = false
		default:
			redactionEnabled = true
		}
		hashSalt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return redactionEnabled
}
