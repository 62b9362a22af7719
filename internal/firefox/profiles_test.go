package firefox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lotas/tabsammlung/internal/types"
)

func writeSessionStub(t *testing.T, profileDir string) {
	t.Helper()
	backups := filepath.Join(profileDir, "sessionstore-backups")
	if err := os.MkdirAll(backups, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(backups, "recovery.jsonlz4"), []byte("dummy"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestParseProfilesINI(t *testing.T) {
	dir := t.TempDir()
	absProfileDir := t.TempDir()
	iniContent := `[General]
StartWithLastProfile=1
Version=2

[Profile0]
Name=default-release
IsRelative=1
Path=abc123.default-release
Default=1

[Profile1]
Name=dev-edition
IsRelative=0
Path=` + absProfileDir + `
Default=0

[Profile2]
Name=empty
IsRelative=1
Path=nosession

[Install308046B0AF4A39CB]
Default=abc123.default-release
Locked=1
`
	iniPath := filepath.Join(dir, "profiles.ini")
	os.WriteFile(iniPath, []byte(iniContent), 0644)
	writeSessionStub(t, filepath.Join(dir, "abc123.default-release"))
	writeSessionStub(t, absProfileDir)

	profiles, err := ParseProfilesINI(iniPath, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].Name != "default-release" || !profiles[0].IsDefault {
		t.Errorf("profile 0 = %+v", profiles[0])
	}
	if profiles[0].Path != filepath.Join(dir, "abc123.default-release") {
		t.Errorf("expected resolved path, got %q", profiles[0].Path)
	}
	if profiles[1].Path != absProfileDir || profiles[1].IsDefault {
		t.Errorf("profile 1 = %+v", profiles[1])
	}
}

func TestPickProfile(t *testing.T) {
	profiles := []types.Profile{
		{Name: "work"},
		{Name: "home", IsDefault: true},
	}
	if p, _ := PickProfile(profiles, ""); p.Name != "home" {
		t.Errorf("default pick = %q", p.Name)
	}
	if p, _ := PickProfile(profiles, "work"); p.Name != "work" {
		t.Errorf("named pick = %q", p.Name)
	}
	if _, err := PickProfile(profiles, "nope"); err == nil {
		t.Error("expected error for unknown profile")
	}
	if _, err := PickProfile(nil, ""); err == nil {
		t.Error("expected error for no profiles")
	}
	if p, _ := PickProfile([]types.Profile{{Name: "only"}}, ""); p.Name != "only" {
		t.Errorf("fallback pick = %q", p.Name)
	}
}

func TestFindFirefoxDir(t *testing.T) {
	dir := FindFirefoxDir()
	if dir == "" {
		t.Skip("no Firefox directory found on this system")
	}
	t.Logf("found Firefox dir: %s", dir)
}
