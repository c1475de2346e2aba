package telemetry

import (
	"errors"
	"testing"

	"github.com/relaywf/relay-go/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.TelemetryConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	_, err := Connect(config.TelemetryConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1", // nothing listens here
		Bucket:  "relaywf",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestOutcomeLabels(t *testing.T) {
	if got := outcome(false); got != "ok" {
		t.Errorf("outcome(false) = %q, want ok", got)
	}
	if got := outcome(true); got != "panic" {
		t.Errorf("outcome(true) = %q, want panic", got)
	}
}
