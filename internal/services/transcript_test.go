package services

import (
	"errors"
	"strings"
	"testing"

	"walkgen-backend/internal/models"
)

var (
	errDisabled = errors.New("transcripts disabled")
	errBlocked  = errors.New("request blocked")
)

func TestFormatTranscript_Empty(t *testing.T) {
	if got := FormatTranscript(nil); got != "" {
		t.Errorf("Expected empty string for no entries, got %q", got)
	}
	if got := FormatTranscript([]models.TranscriptEntry{}); got != "" {
		t.Errorf("Expected empty string for empty slice, got %q", got)
	}
}

func TestFormatTranscript_SingleWindow(t *testing.T) {
	entries := []models.TranscriptEntry{
		{Text: "welcome back", Start: 0, Duration: 3},
		{Text: "to the walkthrough", Start: 5, Duration: 3},
		{Text: "let's get started", Start: 12, Duration: 3},
	}

	got := FormatTranscript(entries)
	want := "[0:00] welcome back to the walkthrough let's get started"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestFormatTranscript_WindowBoundaries(t *testing.T) {
	entries := []models.TranscriptEntry{
		{Text: "first window", Start: 0},
		{Text: "still first", Start: 29},
		{Text: "second window", Start: 30},
		{Text: "third window", Start: 65},
	}

	got := FormatTranscript(entries)
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 windows, got %d: %q", len(lines), got)
	}

	expected := []string{
		"[0:00] first window still first",
		"[0:30] second window",
		"[1:05] third window",
	}
	for i, want := range expected {
		if lines[i] != want {
			t.Errorf("Window %d: expected %q, got %q", i, want, lines[i])
		}
	}
}

func TestFormatTranscript_HourLabels(t *testing.T) {
	entries := []models.TranscriptEntry{
		{Text: "deep into the run", Start: 3723},
	}

	got := FormatTranscript(entries)
	if !strings.HasPrefix(got, "[1:02:03]") {
		t.Errorf("Expected hour-form timestamp prefix, got %q", got)
	}
}

func TestParseCaptionsXML(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.12" dur="2.5">hello &amp; welcome</text>
  <text start="3.0" dur="1.8">   </text>
  <text start="5.5" dur="2.0">boss fight ahead</text>
</transcript>`)

	entries, err := parseCaptionsXML(data)
	if err != nil {
		t.Fatalf("parseCaptionsXML failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries (blank one dropped), got %d", len(entries))
	}
	if entries[0].Text != "hello & welcome" {
		t.Errorf("Expected HTML entities unescaped, got %q", entries[0].Text)
	}
	if entries[0].Start != 0.12 || entries[0].Duration != 2.5 {
		t.Errorf("Expected start=0.12 dur=2.5, got start=%v dur=%v", entries[0].Start, entries[0].Duration)
	}
	if entries[1].Text != "boss fight ahead" {
		t.Errorf("Expected second entry text preserved, got %q", entries[1].Text)
	}
}

func TestParseCaptionsXML_Invalid(t *testing.T) {
	if _, err := parseCaptionsXML([]byte("not xml")); err == nil {
		t.Error("Expected error for malformed XML")
	}
	if _, err := parseCaptionsXML([]byte("<transcript></transcript>")); err == nil {
		t.Error("Expected error for empty transcript")
	}
}

func TestFallbackError(t *testing.T) {
	err := &FallbackError{Attempts: []ProviderFailure{
		{Provider: "transcript-api-en", Err: errDisabled},
		{Provider: "caption-track", Err: errBlocked},
	}}

	msg := err.Error()
	if !strings.Contains(msg, "all 2 transcript providers failed") {
		t.Errorf("Expected aggregate count in message, got %q", msg)
	}
	if !strings.Contains(msg, "transcript-api-en") || !strings.Contains(msg, "caption-track") {
		t.Errorf("Expected each provider named in message, got %q", msg)
	}

	unwrapped := err.Unwrap()
	if len(unwrapped) != 2 {
		t.Fatalf("Expected 2 wrapped errors, got %d", len(unwrapped))
	}
	if unwrapped[0] != errDisabled || unwrapped[1] != errBlocked {
		t.Error("Expected wrapped errors in attempt order")
	}
}
