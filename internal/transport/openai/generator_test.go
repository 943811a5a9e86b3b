package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/liveclaw/voicecore/internal/domain"
)

func chatCompletionBody(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestFastGenerator_EmitsSingleAck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody("On it, one moment."))
	}))
	defer server.Close()

	gen := NewFastGenerator(&GeneratorConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	var events []domain.GenEvent
	err := gen.Generate(context.Background(), "restart the router", func(e domain.GenEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want exactly one ack", len(events))
	}
	if events[0].Type != domain.EventAck {
		t.Errorf("event type = %s, want ack", events[0].Type)
	}
	if events[0].Text != "On it, one moment." {
		t.Errorf("ack text = %q", events[0].Text)
	}
}

func TestFastGenerator_BlankCompletionFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionBody("   "))
	}))
	defer server.Close()

	gen := NewFastGenerator(&GeneratorConfig{
		APIKey: "test-key", BaseURL: server.URL, Model: "test-model", Logger: zap.NewNop(),
	})

	err := gen.Generate(context.Background(), "hello", func(domain.GenEvent) {
		t.Error("blank completion must not emit")
	})
	if !errors.Is(err, domain.ErrGeneratorFailure) {
		t.Errorf("err = %v, want ErrGeneratorFailure", err)
	}
}

func TestFastGenerator_APIErrorWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "overloaded", "type": "server_error"},
		})
	}))
	defer server.Close()

	gen := NewFastGenerator(&GeneratorConfig{
		APIKey: "test-key", BaseURL: server.URL, Model: "test-model", Logger: zap.NewNop(),
	})

	err := gen.Generate(context.Background(), "hello", func(domain.GenEvent) {})
	if !errors.Is(err, domain.ErrGeneratorFailure) {
		t.Errorf("err = %v, want ErrGeneratorFailure", err)
	}
}

// streamChunks writes SSE chunks the way the chat streaming API does.
func streamChunks(w http.ResponseWriter, deltas []string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, d := range deltas {
		payload, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion.chunk",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index": 0,
				"delta": map[string]any{"content": d},
			}},
		})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func TestSlowGenerator_StreamsProgressThenFinal(t *testing.T) {
	long := strings.Repeat("word ", 40) // crosses the progress chunk threshold
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		streamChunks(w, []string{long, "and the answer is forty-two."})
	}))
	defer server.Close()

	gen := NewSlowGenerator(&GeneratorConfig{
		APIKey: "test-key", BaseURL: server.URL, Model: "test-model", Logger: zap.NewNop(),
	})

	var events []domain.GenEvent
	err := gen.Generate(context.Background(), "meaning of life", func(e domain.GenEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(events) < 2 {
		t.Fatalf("events = %v, want progress then final", events)
	}
	for _, e := range events[:len(events)-1] {
		if e.Type != domain.EventProgress {
			t.Errorf("intermediate event type = %s, want progress", e.Type)
		}
	}
	last := events[len(events)-1]
	if last.Type != domain.EventFinal {
		t.Fatalf("last event type = %s, want final", last.Type)
	}
	if !strings.HasSuffix(last.Text, "forty-two.") {
		t.Errorf("final text = %q, want full accumulated answer", last.Text)
	}
}

func TestSlowGenerator_ShortAnswerSkipsProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		streamChunks(w, []string{"forty-two"})
	}))
	defer server.Close()

	gen := NewSlowGenerator(&GeneratorConfig{
		APIKey: "test-key", BaseURL: server.URL, Model: "test-model", Logger: zap.NewNop(),
	})

	var events []domain.GenEvent
	if err := gen.Generate(context.Background(), "q", func(e domain.GenEvent) {
		events = append(events, e)
	}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(events) != 1 || events[0].Type != domain.EventFinal {
		t.Fatalf("events = %v, want a single final", events)
	}
}

func TestSlowGenerator_EmptyStreamFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		streamChunks(w, nil)
	}))
	defer server.Close()

	gen := NewSlowGenerator(&GeneratorConfig{
		APIKey: "test-key", BaseURL: server.URL, Model: "test-model", Logger: zap.NewNop(),
	})

	err := gen.Generate(context.Background(), "q", func(domain.GenEvent) {
		t.Error("empty stream must not emit")
	})
	if !errors.Is(err, domain.ErrGeneratorFailure) {
		t.Errorf("err = %v, want ErrGeneratorFailure", err)
	}
}

func TestProgressPreviewTrimsToWholeWord(t *testing.T) {
	got := progressPreview("the answer is being comput")
	if got != "the answer is being…" {
		t.Errorf("progressPreview = %q", got)
	}
}
