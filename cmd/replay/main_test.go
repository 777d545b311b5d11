package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eventledger/eventledger/internal/logging"
	"github.com/eventledger/eventledger/internal/replay"
)

func TestReplaySampleFile(t *testing.T) {
	events, err := load(context.Background(), filepath.Join("testdata", "events.json"), "", logging.Discard())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	report, err := replay.Run(events)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}

	var out bytes.Buffer
	printReport(&out, report, false)
	text := out.String()
	if !strings.Contains(text, "balance conservation: ok") || !strings.Contains(text, "total balance: 1600") {
		t.Fatalf("unexpected report:\n%s", text)
	}
}

func TestExportRoundTrip(t *testing.T) {
	events, err := load(context.Background(), filepath.Join("testdata", "events.json"), "", logging.Discard())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	path := filepath.Join(t.TempDir(), "export.json")
	if err := writeFile(path, events); err != nil {
		t.Fatalf("export: %v", err)
	}
	again, err := load(context.Background(), path, "", logging.Discard())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(again) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(again))
	}
}
