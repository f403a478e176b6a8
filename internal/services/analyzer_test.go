package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"walkgen-backend/internal/models"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantGame string
		wantSegs int
	}{
		{
			"fenced json block",
			"```json\n{\"game_title\": \"Elden Ring\", \"segments\": [{\"type\": \"boss\", \"label\": \"Margit\"}], \"summary\": \"ok\"}\n```",
			"Elden Ring", 1,
		},
		{
			"fenced block without language tag",
			"```\n{\"game_title\": \"Hades\", \"segments\": [], \"summary\": \"s\"}\n```",
			"Hades", 0,
		},
		{
			"bare json",
			`{"game_title": "Hollow Knight", "segments": [{"type": "exploration", "label": "Crossroads"}], "summary": ""}`,
			"Hollow Knight", 1,
		},
		{
			"json buried in prose",
			`Here is the analysis you asked for: {"game_title": "Celeste", "segments": [], "summary": "climb"} Hope that helps!`,
			"Celeste", 0,
		},
		{
			"bare json with surrounding whitespace",
			"\n\n  {\"game_title\": \"Portal\", \"segments\": [], \"summary\": \"\"}  \n",
			"Portal", 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := extractJSON(tc.input)
			if err != nil {
				t.Fatalf("extractJSON failed: %v", err)
			}
			if raw.GameTitle != tc.wantGame {
				t.Errorf("Expected game_title %q, got %q", tc.wantGame, raw.GameTitle)
			}
			if len(raw.Segments) != tc.wantSegs {
				t.Errorf("Expected %d segments, got %d", tc.wantSegs, len(raw.Segments))
			}
		})
	}
}

func TestExtractJSON_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"I could not analyze this transcript.",
		"```json\nnot json at all\n```",
		"{broken",
	}

	for _, input := range inputs {
		if _, err := extractJSON(input); !errors.Is(err, ErrMalformedModelOutput) {
			t.Errorf("Input %q: expected ErrMalformedModelOutput, got %v", input, err)
		}
	}
}

func TestGuessGameFromTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Elden Ring - Full Walkthrough Part 1", "Elden Ring"},
		{"Hollow Knight | 100% Guide", "Hollow Knight"},
		{"Dark Souls 3 Walkthrough Episode 4", "Dark Souls 3"},
		{"Celeste Gameplay No Commentary", "Celeste"},
		{"Just A Title Without Separators", "Just A Title Without Separators"},
		{"- Starts With Separator", "- Starts With Separator"},
	}

	for _, tc := range tests {
		if got := GuessGameFromTitle(tc.title); got != tc.want {
			t.Errorf("GuessGameFromTitle(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestSplitIntoPartitions(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("[0:%02d] line %d", i, i))
	}
	content := strings.Join(lines, "\n")

	chunks := splitIntoPartitions(content, 3)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 partitions, got %d", len(chunks))
	}

	// Rejoining the partitions must reproduce the original content
	if rejoined := strings.Join(chunks, "\n"); rejoined != content {
		t.Error("Partitions do not cover the original content exactly")
	}
}

func TestSplitIntoPartitions_FewerLinesThanPartitions(t *testing.T) {
	chunks := splitIntoPartitions("single line", 3)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 partition, got %d", len(chunks))
	}
	if chunks[0] != "single line" {
		t.Errorf("Expected content preserved, got %q", chunks[0])
	}
}

// stubLLM returns canned responses keyed by the "Part N/M" marker in the
// prompt, or fails for parts listed in failParts.
type stubLLM struct {
	responses map[int]string
	failParts map[int]bool
	calls     int
}

func (s *stubLLM) Generate(_ context.Context, prompt string, _ int32) (string, error) {
	s.calls++
	for part, resp := range s.responses {
		if strings.Contains(prompt, fmt.Sprintf("Part %d/", part)) {
			if s.failParts[part] {
				return "", fmt.Errorf("simulated failure for part %d", part)
			}
			return resp, nil
		}
	}
	return "", fmt.Errorf("no canned response matched prompt")
}

func newTestAnalyzer(llm llm, chunkSize int) *AnalyzerService {
	rateChan := make(chan struct{}, 1)
	rateChan <- struct{}{}
	return &AnalyzerService{llm: llm, chunkSize: chunkSize, rateChan: rateChan}
}

func chunkResponse(game, label string, start, end int) string {
	return fmt.Sprintf(`{"game_title": %q, "segments": [{"type": "boss", "label": %q, "start_seconds": %d, "end_seconds": %d, "difficulty": "hard"}], "summary": "part summary"}`,
		game, label, start, end)
}

func TestAnalyzeChunked_SkipsFailedChunk(t *testing.T) {
	stub := &stubLLM{
		responses: map[int]string{
			1: chunkResponse("Elden Ring", "Boss: Margit", 0, 300),
			2: "",
			3: chunkResponse("", "Boss: Godrick", 600, 900),
		},
		failParts: map[int]bool{2: true},
	}

	// Small chunk size forces the chunked path
	svc := newTestAnalyzer(stub, 10)

	formatted := strings.Repeat("[0:00] filler line\n", 20)
	result, err := svc.Analyze(context.Background(), formatted, testVideo())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Proposals) != 2 {
		t.Fatalf("Expected 2 proposals from surviving chunks, got %d", len(result.Proposals))
	}
	if result.Proposals[0].Label != "Boss: Margit" || result.Proposals[1].Label != "Boss: Godrick" {
		t.Errorf("Expected merged proposals [Margit, Godrick], got [%s, %s]",
			result.Proposals[0].Label, result.Proposals[1].Label)
	}
	if result.GameTitle != "Elden Ring" {
		t.Errorf("Expected game title from first successful chunk, got %q", result.GameTitle)
	}
	if result.Summary != "part summary part summary" {
		t.Errorf("Expected concatenated chunk summaries, got %q", result.Summary)
	}
}

func TestAnalyzeChunked_AllChunksFail(t *testing.T) {
	stub := &stubLLM{
		responses: map[int]string{1: "", 2: "", 3: ""},
		failParts: map[int]bool{1: true, 2: true, 3: true},
	}
	svc := newTestAnalyzer(stub, 10)

	formatted := strings.Repeat("[0:00] filler line\n", 20)
	_, err := svc.Analyze(context.Background(), formatted, testVideo())
	if err == nil {
		t.Fatal("Expected error when every chunk fails")
	}
	if !strings.Contains(err.Error(), "all 3 chunks failed") {
		t.Errorf("Expected aggregated failure message, got %v", err)
	}
}

// slotObservingLLM records how many rate slots are free at the moment of
// each model call.
type slotObservingLLM struct {
	svc       *AnalyzerService
	freeSlots []int
	response  string
}

func (s *slotObservingLLM) Generate(_ context.Context, _ string, _ int32) (string, error) {
	s.freeSlots = append(s.freeSlots, len(s.svc.rateChan))
	return s.response, nil
}

func TestAnalyzeChunked_RateSlotBracketsEachCall(t *testing.T) {
	svc := newTestAnalyzer(nil, 10)
	stub := &slotObservingLLM{
		svc:      svc,
		response: chunkResponse("Elden Ring", "Boss: Margit", 0, 300),
	}
	svc.llm = stub

	formatted := strings.Repeat("[0:00] filler line\n", 20)
	if _, err := svc.Analyze(context.Background(), formatted, testVideo()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(stub.freeSlots) != 3 {
		t.Fatalf("Expected 3 chunk calls, got %d", len(stub.freeSlots))
	}
	// A single slot serves all three sequential calls, held only during
	// each call
	for i, free := range stub.freeSlots {
		if free != 0 {
			t.Errorf("Call %d: expected the slot held during the call, %d free", i, free)
		}
	}
	if len(svc.rateChan) != cap(svc.rateChan) {
		t.Errorf("Expected all slots returned after analysis, got %d of %d",
			len(svc.rateChan), cap(svc.rateChan))
	}
}

func TestAnalyzeChunked_RateSlotsReturnedOnFailure(t *testing.T) {
	stub := &stubLLM{
		responses: map[int]string{1: "", 2: "", 3: ""},
		failParts: map[int]bool{1: true, 2: true, 3: true},
	}
	svc := newTestAnalyzer(stub, 10)

	formatted := strings.Repeat("[0:00] filler line\n", 20)
	if _, err := svc.Analyze(context.Background(), formatted, testVideo()); err == nil {
		t.Fatal("Expected error when every chunk fails")
	}

	if len(svc.rateChan) != cap(svc.rateChan) {
		t.Errorf("Expected all slots returned after failed analysis, got %d of %d",
			len(svc.rateChan), cap(svc.rateChan))
	}
}

func TestAnalyze_FallsBackToTitleGuess(t *testing.T) {
	stub := &singleResponseLLM{
		response: `{"game_title": "", "segments": [], "summary": ""}`,
	}
	svc := newTestAnalyzer(stub, 100000)

	result, err := svc.Analyze(context.Background(), "[0:00] hello", testVideo())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.GameTitle != "Elden Ring" {
		t.Errorf("Expected game title guessed from video title, got %q", result.GameTitle)
	}
	if result.Summary != "AI-generated walkthrough analysis." {
		t.Errorf("Expected default summary, got %q", result.Summary)
	}
}

type singleResponseLLM struct {
	response string
}

func (s *singleResponseLLM) Generate(_ context.Context, _ string, _ int32) (string, error) {
	return s.response, nil
}

func testVideo() *models.VideoMetadata {
	return &models.VideoMetadata{
		VideoID:         "dQw4w9WgXcQ",
		Title:           "Elden Ring - Full Walkthrough Part 1",
		Channel:         "TestChannel",
		DurationSeconds: 3600,
	}
}
