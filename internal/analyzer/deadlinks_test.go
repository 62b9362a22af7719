package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lotas/tabsammlung/internal/types"
)

func TestCheckDeadLinks(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer okServer.Close()

	notFoundServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer notFoundServer.Close()

	goneServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(410)
	}))
	defer goneServer.Close()

	items := []types.Item{
		{ID: "ok", URL: okServer.URL + "/page"},
		{ID: "404", URL: notFoundServer.URL + "/missing"},
		{ID: "410", URL: goneServer.URL + "/gone"},
		{ID: "about", URL: "about:newtab"},
		{ID: "ext", URL: "moz-extension://abc/page"},
	}

	dead := CheckDeadLinks(context.Background(), items)
	if len(dead) != 2 {
		t.Fatalf("got %d dead links, want 2: %+v", len(dead), dead)
	}
	if dead[0].Item.ID != "404" || dead[0].Reason != "404" {
		t.Errorf("dead[0] = %+v", dead[0])
	}
	if dead[1].Item.ID != "410" || dead[1].Reason != "410" {
		t.Errorf("dead[1] = %+v", dead[1])
	}
}

func TestCheckDeadLinks_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	dead := CheckDeadLinks(context.Background(), []types.Item{{ID: "x", URL: url}})
	if len(dead) != 1 || dead[0].Reason != "unreachable" {
		t.Errorf("got %+v", dead)
	}
}
