package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samber/oops"
)

func TestSetupAddsServiceAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("clinic", "1.2.3", "info", &buf)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	logger.InfoContext(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["service"] != "clinic" || entry["version"] != "1.2.3" {
		t.Fatalf("missing service fields: %v", entry)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("missing request id: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
}

func TestSetupLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("clinic", "dev", "warn", &buf)
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
}

func TestLogErrorIncludesOopsCode(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("clinic", "dev", "debug", &buf)

	err := oops.Code("DB_QUERY_FAILED").With("operation", "list rooms").Wrap(errors.New("boom"))
	LogError(context.Background(), logger, "request failed", err)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["code"] != "DB_QUERY_FAILED" {
		t.Fatalf("missing code: %v", entry)
	}
	ctxFields, ok := entry["context"].(map[string]any)
	if !ok || ctxFields["operation"] != "list rooms" {
		t.Fatalf("missing context: %v", entry)
	}
}
