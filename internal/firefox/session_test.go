package firefox

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestMozLz4RoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"json":   []byte(`{"windows":[{"tabs":[]}]}`),
		"repeat": bytes.Repeat([]byte("tabsammlung "), 400),
		"empty":  {},
		"short":  []byte("x"),
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			enc, err := CompressMozLz4(in)
			if err != nil {
				t.Fatalf("CompressMozLz4: %v", err)
			}
			if !IsMozLz4(enc) {
				t.Fatal("missing magic")
			}
			out, err := DecompressMozLz4(enc)
			if err != nil {
				t.Fatalf("DecompressMozLz4: %v", err)
			}
			if !bytes.Equal(out, in) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(out), len(in))
			}
		})
	}
}

func TestDecompressMozLz4Errors(t *testing.T) {
	if _, err := DecompressMozLz4([]byte("BADMAGIC\x00\x00\x00\x00some data here")); err == nil {
		t.Error("expected error for invalid header")
	}
	if _, err := DecompressMozLz4([]byte("mozLz40")); err == nil {
		t.Error("expected error for too-short data")
	}
}

const sessionJSON = `{
	"selectedWindow": 2,
	"windows": [
		{
			"selected": 1,
			"tabs": [
				{"entries": [{"url": "https://a.example", "title": "A"}], "index": 1}
			]
		},
		{
			"selected": 2,
			"tabs": [
				{"entries": [{"url": "https://old.example", "title": "Old"}, {"url": "https://cur.example", "title": "Cur"}], "index": 2, "image": "https://cur.example/f.ico", "pinned": true},
				{"entries": [{"url": "https://b.example", "title": "B"}], "index": 9},
				{"entries": []}
			]
		}
	]
}`

func TestParseSession(t *testing.T) {
	snap, err := ParseSession([]byte(sessionJSON))
	if err != nil {
		t.Fatalf("ParseSession: %v", err)
	}
	if snap.CurrentWindow != 2 {
		t.Errorf("CurrentWindow = %d, want 2", snap.CurrentWindow)
	}
	if len(snap.Tabs) != 3 {
		t.Fatalf("got %d tabs, want 3", len(snap.Tabs))
	}

	win := snap.WindowTabs(2)
	if len(win) != 2 {
		t.Fatalf("window 2 has %d tabs", len(win))
	}
	cur := win[0]
	if cur.URL != "https://cur.example" || cur.Title != "Cur" {
		t.Errorf("current entry not used: %+v", cur)
	}
	if !cur.Pinned || cur.Favicon != "https://cur.example/f.ico" || cur.Active {
		t.Errorf("tab flags = %+v", cur)
	}
	if !win[1].Active || win[1].URL != "https://b.example" {
		t.Errorf("selected tab = %+v", win[1])
	}

	seen := map[int]bool{}
	for _, tab := range snap.Tabs {
		if seen[tab.ID] {
			t.Errorf("duplicate tab id %d", tab.ID)
		}
		seen[tab.ID] = true
	}
}

func TestParseSession_DefaultsFirstWindow(t *testing.T) {
	snap, err := ParseSession([]byte(`{"windows":[{"tabs":[]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if snap.CurrentWindow != 1 {
		t.Errorf("CurrentWindow = %d, want 1", snap.CurrentWindow)
	}
}

func TestReadSessionFile(t *testing.T) {
	profile := t.TempDir()
	backups := filepath.Join(profile, "sessionstore-backups")
	os.MkdirAll(backups, 0755)

	var compact bytes.Buffer
	json.Compact(&compact, []byte(sessionJSON))
	enc, err := CompressMozLz4(compact.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(backups, "previous.jsonlz4"), enc, 0644)

	snap, err := ReadSessionFile(profile)
	if err != nil {
		t.Fatalf("ReadSessionFile: %v", err)
	}
	if len(snap.Tabs) != 3 {
		t.Errorf("got %d tabs", len(snap.Tabs))
	}

	if _, err := ReadSessionFile(t.TempDir()); err == nil {
		t.Error("expected error for profile without session file")
	}
}
