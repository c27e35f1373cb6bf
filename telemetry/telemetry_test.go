package telemetry

import (
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/freekieb7/poolhttp/config"
	"github.com/freekieb7/poolhttp/test"
)

func TestSetupDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "warn"

	tel, err := Setup(context.Background(), cfg)
	test.AssertNoError(t, err)

	if tel.Logger == nil {
		t.Fatal("expected a logger")
	}
	test.AssertEqual(t, false, tel.Logger.Enabled(context.Background(), slog.LevelInfo))
	test.AssertEqual(t, true, tel.Logger.Enabled(context.Background(), slog.LevelWarn))

	fields := otel.GetTextMapPropagator().Fields()
	found := false
	for _, f := range fields {
		if f == "traceparent" {
			found = true
		}
	}
	test.AssertEqual(t, true, found)

	test.AssertNoError(t, tel.Shutdown(context.Background()))
}

func TestSetupBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"

	_, err := Setup(context.Background(), cfg)
	if err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	_, isJson := NewLogger("json", slog.LevelInfo).Handler().(*slog.JSONHandler)
	test.AssertEqual(t, true, isJson)

	_, isText := NewLogger("text", slog.LevelInfo).Handler().(*slog.TextHandler)
	test.AssertEqual(t, true, isText)
}
