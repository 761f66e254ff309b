package motivation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/julianstephens/salahlog/internal/models"
)

func TestStaticTiers(t *testing.T) {
	tests := []struct {
		streak int
		want   string
	}{
		{0, "fresh start"},
		{1, "Yesterday"},
		{5, "Three days"},
		{7, "full week"},
		{400, "A month"},
	}
	for _, tt := range tests {
		msg, err := Static{}.Message(context.Background(), models.UserStats{Streak: tt.streak})
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if !strings.Contains(msg.Text, tt.want) || msg.Source != SourceStatic {
			t.Errorf("streak %d: got %+v, want text containing %q", tt.streak, msg, tt.want)
		}
	}
}

func TestNewWithoutKeyIsStatic(t *testing.T) {
	if _, ok := New("", "claude").(Static); !ok {
		t.Error("New without an API key should return Static")
	}
	if _, ok := New("sk-test", "claude").(*Anthropic); !ok {
		t.Error("New with an API key should return Anthropic")
	}
}

func TestAnthropicMessage(t *testing.T) {
	var gotPath, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "  Keep the chain going.  "}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 6}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropic("sk-test", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	msg, err := p.Message(context.Background(), models.UserStats{Streak: 4, OnTimeRatio: 0.8})
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if msg.Text != "Keep the chain going." || msg.Source != SourceAnthropic {
		t.Errorf("unexpected message: %+v", msg)
	}
	if gotPath != "/v1/messages" || gotKey != "sk-test" {
		t.Errorf("request went to %s with key %q", gotPath, gotKey)
	}
}

func TestAnthropicFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`, http.StatusInternalServerError)
		}},
		{"empty content", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"m","type":"message","role":"assistant","model":"x","content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewAnthropic("sk-test", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
			msg, err := p.Message(context.Background(), models.UserStats{Streak: 7})
			if err != nil {
				t.Fatalf("Message should not fail: %v", err)
			}
			if msg.Source != SourceStatic || !strings.Contains(msg.Text, "full week") {
				t.Errorf("expected static fallback, got %+v", msg)
			}
		})
	}
}
