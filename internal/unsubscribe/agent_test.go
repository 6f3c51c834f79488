package unsubscribe

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestAttemptFormPost(t *testing.T) {
	var submitted atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/unsub", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<form method="post" action="/confirm">
				<p>Click below to unsubscribe from our list</p>
				<input type="hidden" name="token" value="abc">
				<input type="submit" name="go" value="Unsubscribe">
			</form>
		</body></html>`)
	})
	mux.HandleFunc("/confirm", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostFormValue("token"); got != "abc" {
			t.Errorf("token = %q, want abc", got)
		}
		if _, ok := r.PostForm["go"]; ok {
			t.Error("submit control must not be posted")
		}
		submitted.Store(true)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	agent := NewAgent()
	got := agent.Attempt([]string{server.URL + "/unsub"})
	if got != 1 {
		t.Errorf("Attempt() = %d, want 1", got)
	}
	if !submitted.Load() {
		t.Error("form was not submitted")
	}
}

func TestAttemptFormGetSubmit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form action="/do">
			<span>Confirm your removal</span>
			<input type="hidden" name="u" value="42">
			<select name="reason"><option value="spam" selected>spam</option></select>
		</form>`)
	})
	mux.HandleFunc("/do", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if got := r.URL.Query().Get("u"); got != "42" {
			t.Errorf("u = %q, want 42", got)
		}
		if _, ok := r.URL.Query()["reason"]; !ok {
			t.Error("select field missing from query")
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	agent := NewAgent()
	if got := agent.Attempt([]string{server.URL + "/page"}); got != 1 {
		t.Errorf("Attempt() = %d, want 1", got)
	}
}

func TestAttemptNoFormCountsGetAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>You have been unsubscribed.</p></body></html>`)
	}))
	defer server.Close()

	agent := NewAgent()
	if got := agent.Attempt([]string{server.URL}); got != 1 {
		t.Errorf("Attempt() = %d, want 1", got)
	}
}

func TestAttemptNonMatchingFormIgnored(t *testing.T) {
	var searched atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form action="/search"><input name="q"><p>Search our site</p></form>`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		searched.Store(true)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	agent := NewAgent()
	// Page is 2xx and contains no unsubscribe form, so the GET counts.
	if got := agent.Attempt([]string{server.URL}); got != 1 {
		t.Errorf("Attempt() = %d, want 1", got)
	}
	if searched.Load() {
		t.Error("non-matching form must not be submitted")
	}
}

func TestAttemptLimitsToThreeURLs(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/u/%d", server.URL, i)
	}

	agent := NewAgent()
	if got := agent.Attempt(urls); got != MaxAttempts {
		t.Errorf("Attempt() = %d, want %d", got, MaxAttempts)
	}
	if hits.Load() != MaxAttempts {
		t.Errorf("server hit %d times, want %d", hits.Load(), MaxAttempts)
	}
}

func TestAttemptIndependentFailures(t *testing.T) {
	var thirdAttempted atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "done")
	})
	mux.HandleFunc("/third", func(w http.ResponseWriter, r *http.Request) {
		thirdAttempted.Store(true)
		w.WriteHeader(http.StatusBadGateway)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	agent := NewAgent()
	got := agent.Attempt([]string{
		server.URL + "/fail",
		server.URL + "/ok",
		server.URL + "/third",
	})
	if got != 1 {
		t.Errorf("Attempt() = %d, want 1", got)
	}
	if !thirdAttempted.Load() {
		t.Error("third URL must still be attempted after earlier failure")
	}
}

func TestAttemptTruncatedBodyNotCounted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Promise a large body, deliver a fragment, then kill the
		// connection so the client's read fails mid-stream.
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "<html><body>")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		panic(http.ErrAbortHandler)
	}))
	defer server.Close()

	agent := NewAgent()
	if got := agent.Attempt([]string{server.URL}); got != 0 {
		t.Errorf("Attempt() = %d, want 0 for a body that dies mid-read", got)
	}
}

func TestAttemptFailedSubmitNotCounted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form method="post" action="/gone">
			<p>unsubscribe</p><input type="hidden" name="t" value="1">
		</form>`)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	agent := NewAgent()
	if got := agent.Attempt([]string{server.URL + "/page"}); got != 0 {
		t.Errorf("Attempt() = %d, want 0", got)
	}
}

func TestAttemptCookiesCarryToSubmit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "xyz", Path: "/"})
		fmt.Fprint(w, `<form method="post" action="/confirm"><p>unsubscribe</p></form>`)
	})
	mux.HandleFunc("/confirm", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session")
		if err != nil || cookie.Value != "xyz" {
			t.Error("session cookie from GET missing on submit")
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	agent := NewAgent()
	if got := agent.Attempt([]string{server.URL + "/page"}); got != 1 {
		t.Errorf("Attempt() = %d, want 1", got)
	}
}
