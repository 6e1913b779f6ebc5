package googletts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSynthesizeDecodesAudio(t *testing.T) {
	mp3Bytes := []byte{0xff, 0xfb, 0x90, 0x64, 0x00, 0x01, 0x02, 0x03}

	var gotPath, gotKey string
	var gotRequest synthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		payload := map[string]string{"audioContent": base64.StdEncoding.EncodeToString(mp3Bytes)}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	audio, err := client.Synthesize(context.Background(), "Welcome to this training module.")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != string(mp3Bytes) {
		t.Fatalf("audio bytes mangled: %v", audio)
	}
	if gotPath != "/text:synthesize" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("unexpected api key header %q", gotKey)
	}
	if gotRequest.Voice.Name != defaultVoice {
		t.Fatalf("unexpected voice %q", gotRequest.Voice.Name)
	}
	if gotRequest.AudioConfig.AudioEncoding != "MP3" {
		t.Fatalf("unexpected encoding %q", gotRequest.AudioConfig.AudioEncoding)
	}
	if gotRequest.AudioConfig.SpeakingRate != defaultSpeakingRate {
		t.Fatalf("unexpected speaking rate %v", gotRequest.AudioConfig.SpeakingRate)
	}
}

func TestSynthesizeReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key invalid"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad-key", BaseURL: server.URL})
	_, err := client.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 StatusError, got %v", err)
	}
}

func TestSynthesizeRejectsEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"audioContent": ""})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if _, err := client.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for missing audio content")
	}
}

func TestSynthesizeRequiresText(t *testing.T) {
	client := NewClient(Config{APIKey: "test-key", BaseURL: "http://localhost:0"})
	if _, err := client.Synthesize(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("languageCode") != defaultLanguageCode {
			t.Errorf("unexpected language code %q", r.URL.Query().Get("languageCode"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"voices": []any{}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}
