package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNew_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "linemaint-test"})

	ctx := l.WithContext(context.Background())
	ctx = SetReportID(ctx, "fr_1234abcd")
	CtxInfo(ctx, "report %s closed", "fr_1234abcd")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]string{
		"service":     "linemaint-test",
		FieldReportID: "fr_1234abcd",
		"message":     "report fr_1234abcd closed",
		"level":       "info",
	} {
		if got, _ := entry[key].(string); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp field")
	}
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("expected default logger for bare context")
	}
	if FromContext(nil) != GetDefault() {
		t.Error("expected default logger for nil context")
	}
}

func TestGetRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&Config{Output: &buf}).WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q, want req-1", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Output: &buf})
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info written at warn level: %q", buf.String())
	}
	l.Warn("shown")
	if buf.Len() == 0 {
		t.Error("warn not written at warn level")
	}
}

func TestCtxHelpers_Levels(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&Config{Level: "info", Format: "json", Output: &buf}).WithContext(context.Background())
	ctx = SetComponent(ctx, "maintctl")

	CtxDebug(ctx, "dropped")
	CtxWarn(ctx, "slow %s", "upload")
	CtxError(ctx, "broken")

	dec := json.NewDecoder(&buf)
	var got []string
	for dec.More() {
		var entry map[string]interface{}
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if entry[FieldComponent] != "maintctl" {
			t.Errorf("component = %v, want maintctl", entry[FieldComponent])
		}
		got = append(got, entry["level"].(string)+":"+entry["message"].(string))
	}
	want := []string{"warning:slow upload", "error:broken"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("logged %v, want %v", got, want)
	}
}
