package pagetitle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articleHTML = `<!DOCTYPE html>
<html><head><title>Test Article</title></head>
<body>
<article>
<h1>Test Article</h1>
<p>This is the main content of the article. It has enough text to be considered readable content by the readability algorithm. The quick brown fox jumps over the lazy dog.</p>
<p>Second paragraph with more meaningful content that helps the readability parser understand this is a real article and not just navigation or boilerplate.</p>
</article>
</body></html>`

func TestFetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	title, err := Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Test Article" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestFetch_SkipsNonHTTP(t *testing.T) {
	for _, u := range []string{"about:newtab", "moz-extension://abc/page", "file:///tmp/x.html", "chrome://settings", "data:text/html,hi"} {
		if _, err := Fetch(context.Background(), u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()
	if _, err := Fetch(context.Background(), srv.URL); err == nil || !strings.Contains(err.Error(), "HTTP 410") {
		t.Errorf("err = %v", err)
	}
}

func TestTitleOrURL_FallsBack(t *testing.T) {
	if got := TitleOrURL(context.Background(), "about:blank"); got != "about:blank" {
		t.Errorf("got %q", got)
	}
}
