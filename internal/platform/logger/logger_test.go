package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestScrubFields_Policies(t *testing.T) {
	log, logs := observed(t)
	long := strings.Repeat("w", maxBodyChars+10)
	log.Info("write",
		"op", "Learning.CourseTree.UpdateContent",
		"user_id", "6a1f",
		"db_password", "hunter2",
		"structured_text", long,
		"meta", map[string]any{"api_token": "x", "title": "Intro"},
	)
	fields := logs.All()[0].ContextMap()
	if fields["op"] != "Learning.CourseTree.UpdateContent" {
		t.Fatalf("op: got=%v", fields["op"])
	}
	if got, _ := fields["user_id"].(string); !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("user_id: want hash got=%v", fields["user_id"])
	}
	if fields["db_password"] != "[REDACTED]" {
		t.Fatalf("password: got=%v", fields["db_password"])
	}
	if got, _ := fields["structured_text"].(string); !strings.HasSuffix(got, "...(266 chars)") {
		t.Fatalf("body: want clipped got=%q", got)
	}
	meta, _ := fields["meta"].(map[string]any)
	if meta["api_token"] != "[REDACTED]" || meta["title"] != "Intro" {
		t.Fatalf("nested: got=%v", meta)
	}
}

func TestScrubFields_OddTail(t *testing.T) {
	out := scrubFields([]any{"k", "v", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("odd tail: got=%v", out)
	}
}

func TestPolicyFor_RedactionOff(t *testing.T) {
	if policyFor("password", false) != keepField {
		t.Fatalf("password kept when redaction is off")
	}
	if policyFor("markup", false) != clipField {
		t.Fatalf("markup is always clipped")
	}
}

func TestWith_ScrubsBoundFields(t *testing.T) {
	log, logs := observed(t)
	log.With("authorization", "Bearer x").Debug("auth header")
	if got := logs.All()[0].ContextMap()["authorization"]; got != "[REDACTED]" {
		t.Fatalf("bound field: got=%v", got)
	}
}
