package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/codes"

	"farmd/internal/logging"
)

func TestProvider_LogsFinishedSpans(t *testing.T) {
	var buf bytes.Buffer
	if err := logging.ConfigureWriter(logging.LevelDebug, &buf); err != nil {
		t.Fatalf("configure logging: %v", err)
	}

	provider, shutdown := NewProvider()
	tracer := Tracer(provider)

	_, span := tracer.Start(context.Background(), "boot.pre_auth")
	span.End()

	_, failed := tracer.Start(context.Background(), "boot.init")
	failed.RecordError(errors.New("no such interface"))
	failed.SetStatus(codes.Error, "no such interface")
	failed.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "boot.pre_auth") {
		t.Errorf("log missing finished span: %q", out)
	}
	if !strings.Contains(out, "boot.init") || !strings.Contains(out, "no such interface") {
		t.Errorf("log missing failed span: %q", out)
	}
}
