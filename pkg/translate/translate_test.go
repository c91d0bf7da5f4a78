package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNeedsTranslation(t *testing.T) {
	c := NewClient("http://unused", "", "", time.Second)

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"ukrainian title", "Форум з відбудови громад України", true},
		{"english title", "Urban Recovery Forum in Kyiv", false},
		{"empty text", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.NeedsTranslation(tt.text); got != tt.want {
				t.Errorf("NeedsTranslation(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("server failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `"Community Recovery Forum of Ukraine"`}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "test-model", 5*time.Second)
	got, err := c.Translate(context.Background(), "Форум з відбудови громад України", "event title")
	if err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if got != "Community Recovery Forum of Ukraine" {
		t.Errorf("Translate() = %q, want unquoted translation", got)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "Форум з відбудови громад України" {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
}

func TestTranslate_EnglishPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server was contacted for English text")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", "model", time.Second)
	got, err := c.Translate(context.Background(), "Urban Recovery Forum in Kyiv", "event title")
	if err != nil {
		t.Fatalf("Translate() failed: %v", err)
	}
	if got != "Urban Recovery Forum in Kyiv" {
		t.Errorf("Translate() = %q, want original text", got)
	}
}

func TestTranslate_FailuresReturnOriginal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	original := "Форум з відбудови громад України"

	t.Run("http error", func(t *testing.T) {
		c := NewClient(srv.URL, "key", "model", time.Second)
		got, err := c.Translate(context.Background(), original, "event title")
		if err == nil {
			t.Error("Translate() with HTTP 500 returned no error")
		}
		if got != original {
			t.Errorf("Translate() = %q, want original text on failure", got)
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		c := NewClient(srv.URL, "", "model", time.Second)
		got, err := c.Translate(context.Background(), original, "event title")
		if err == nil {
			t.Error("Translate() without API key returned no error")
		}
		if got != original {
			t.Errorf("Translate() = %q, want original text", got)
		}
	})
}
