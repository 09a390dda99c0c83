package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitSwitchesExistingLoggers(t *testing.T) {
	log := L("test")

	var buf bytes.Buffer
	Init("json", "debug", &buf)
	t.Cleanup(func() { Init("text", "info", nil) })

	log.Debug("hello", KeyPID, 42)
	out := buf.String()
	if !strings.Contains(out, `"component":"test"`) || !strings.Contains(out, `"pid":42`) {
		t.Fatalf("unexpected log output %q", out)
	}
}

func TestInitSwitchesFormatBackAndForth(t *testing.T) {
	log := L("switch")
	t.Cleanup(func() { Init("text", "info", nil) })

	var jsonBuf, textBuf bytes.Buffer
	Init("json", "info", &jsonBuf)
	log.Info("first")
	Init("text", "info", &textBuf)
	log.Info("second")
	Init("JSON", "info", &jsonBuf)
	log.Info("third")

	if !strings.Contains(jsonBuf.String(), `"msg":"first"`) || !strings.Contains(jsonBuf.String(), `"msg":"third"`) {
		t.Fatalf("json output %q", jsonBuf.String())
	}
	if !strings.Contains(textBuf.String(), "msg=second") || !strings.Contains(textBuf.String(), "component=switch") {
		t.Fatalf("text output %q", textBuf.String())
	}
}

func TestGroupedLoggerFollowsInit(t *testing.T) {
	log := L("grouped").WithGroup("proc").With(KeyPID, 7)
	t.Cleanup(func() { Init("text", "info", nil) })

	var buf bytes.Buffer
	Init("json", "info", &buf)
	log.Info("killed", KeyName, "editor")

	out := buf.String()
	if !strings.Contains(out, `"component":"grouped"`) {
		t.Fatalf("component attr lost: %q", out)
	}
	if !strings.Contains(out, `"proc":{"pid":7,"name":"editor"}`) {
		t.Fatalf("group not applied after switch: %q", out)
	}
}
