package ai

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func chatServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.MaxTokens != classifyMaxTokens {
			t.Errorf("MaxTokens = %d, want %d", req.MaxTokens, classifyMaxTokens)
		}

		resp := ChatResponse{}
		resp.Choices = []struct {
			Message ChatMessage `json:"message"`
		}{
			{Message: ChatMessage{Role: "assistant", Content: reply}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(baseURL string) *Client {
	c := NewClient()
	c.ConfigureWithBaseURL("openai", "test-key", "gpt-4.1", baseURL)
	return c
}

func testTemplate() *PromptTemplate {
	return BuildPromptTemplate("a test user", nil)
}

func TestClassifySpamVerdict(t *testing.T) {
	server := chatServer(t, "SPAM - unsolicited promotional content")
	defer server.Close()

	client := newTestClient(server.URL)
	isSpam, reason := client.Classify("50% off", "deals@example.com", "buy now", testTemplate())
	if !isSpam {
		t.Error("expected spam verdict")
	}
	if reason != "SPAM - unsolicited promotional content" {
		t.Errorf("reason = %q", reason)
	}
}

func TestClassifyNotSpamVerdict(t *testing.T) {
	server := chatServer(t, "NOT_SPAM - personal correspondence")
	defer server.Close()

	client := newTestClient(server.URL)
	isSpam, reason := client.Classify("lunch?", "friend@example.com", "see you at noon", testTemplate())
	if isSpam {
		t.Error("expected non-spam verdict")
	}
	if !strings.HasPrefix(reason, "NOT_SPAM") {
		t.Errorf("reason = %q", reason)
	}
}

func TestClassifyTransportErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	server.Close() // refuse connections entirely

	client := newTestClient(server.URL)
	isSpam, reason := client.Classify("subject", "sender", "body", testTemplate())
	if isSpam {
		t.Error("failed call must yield non-spam verdict")
	}
	if reason != ErrorReason {
		t.Errorf("reason = %q, want %q", reason, ErrorReason)
	}
}

func TestClassifyAPIErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	isSpam, reason := client.Classify("subject", "sender", "body", testTemplate())
	if isSpam || reason != ErrorReason {
		t.Errorf("got (%v, %q), want (false, %q)", isSpam, reason, ErrorReason)
	}
}

func TestClassifyUnconfigured(t *testing.T) {
	client := NewClient()
	isSpam, reason := client.Classify("subject", "sender", "body", testTemplate())
	if isSpam || reason != ErrorReason {
		t.Errorf("got (%v, %q), want (false, %q)", isSpam, reason, ErrorReason)
	}
}

func TestPromptTemplateFill(t *testing.T) {
	examples := []SpamExample{
		{Subject: "win big", Sender: "casino@example.com", Body: "jackpot waiting"},
	}
	template := BuildPromptTemplate("a 28 year old designer", examples)

	prompt := template.Fill("my subject", "me@example.com", "the body text")
	for _, want := range []string{
		"Subject: my subject",
		"From: me@example.com",
		"Body: the body text",
		"Spam Example 1:",
		"win big",
		"a 28 year old designer",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "{subject}") {
		t.Error("placeholder left unfilled")
	}
}

func TestPromptTemplateCapsExamples(t *testing.T) {
	examples := make([]SpamExample, 15)
	for i := range examples {
		examples[i] = SpamExample{Subject: "s", Sender: "f", Body: "b"}
	}
	template := BuildPromptTemplate("user", examples)

	if strings.Contains(template.Text(), "Spam Example 11:") {
		t.Error("more than MaxPromptExamples exemplars embedded")
	}
	if !strings.Contains(template.Text(), "Spam Example 10:") {
		t.Error("expected 10 exemplars embedded")
	}
}
