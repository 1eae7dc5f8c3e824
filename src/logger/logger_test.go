package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"DEBUG":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"Warning": logrus.WarnLevel,
		"ERROR":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerCarriesComponentAndFields(t *testing.T) {
	l := NewLogger("DEBUG", "risk")
	var buf bytes.Buffer
	l.entry.Logger.SetOutput(&buf)
	l.entry.Logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	l.With("symbol", "BTCUSDT").Info("opened %s", "LONG")
	out := buf.String()
	for _, want := range []string{"component=risk", "symbol=BTCUSDT", "opened LONG", "level=info"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	buf.Reset()
	l.Named("backtest").Debug("bar %d", 7)
	if !strings.Contains(buf.String(), "component=backtest") {
		t.Errorf("named child lost component: %q", buf.String())
	}
}
