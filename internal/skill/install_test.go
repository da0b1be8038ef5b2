package skill

import (
	"os"
	"path/filepath"
	"testing"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func makeSkillDir(t *testing.T, home, name string) string {
	t.Helper()
	dir := filepath.Join(home, "skills-out", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestInstallCreatesLink(t *testing.T) {
	home := setupHome(t)
	dir := makeSkillDir(t, home, "skill-github")

	res, err := Install(dir, "skill-github")
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	resolved, err := filepath.EvalSymlinks(res.Link)
	if err != nil {
		t.Fatalf("resolving link: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if resolved != want {
		t.Errorf("link resolves to %s, want %s", resolved, want)
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	home := setupHome(t)
	dir := makeSkillDir(t, home, "skill-github")

	if _, err := Install(dir, "skill-github"); err != nil {
		t.Fatalf("first install: %v", err)
	}
	if _, err := Install(dir, "skill-github"); err != nil {
		t.Fatalf("second install: %v", err)
	}
}

func TestInstallReplacesStaleLink(t *testing.T) {
	home := setupHome(t)
	oldDir := makeSkillDir(t, home, "old")
	newDir := makeSkillDir(t, home, "new")

	if _, err := Install(oldDir, "skill-x"); err != nil {
		t.Fatalf("install old: %v", err)
	}
	res, err := Install(newDir, "skill-x")
	if err != nil {
		t.Fatalf("install new: %v", err)
	}

	resolved, _ := filepath.EvalSymlinks(res.Link)
	want, _ := filepath.EvalSymlinks(newDir)
	if resolved != want {
		t.Errorf("link resolves to %s, want %s", resolved, want)
	}
}

func TestInstallRefusesNonSymlink(t *testing.T) {
	home := setupHome(t)
	dir := makeSkillDir(t, home, "skill-github")

	occupied := filepath.Join(home, ".claude", "skills", "skill-github")
	if err := os.MkdirAll(occupied, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := Install(dir, "skill-github"); err == nil {
		t.Fatal("expected error when link path is a real directory")
	}
}

func TestInstallMissingSkillDir(t *testing.T) {
	home := setupHome(t)
	if _, err := Install(filepath.Join(home, "nope"), "skill-nope"); err == nil {
		t.Fatal("expected error for missing skill dir")
	}
}

func TestUninstall(t *testing.T) {
	home := setupHome(t)
	dir := makeSkillDir(t, home, "skill-github")

	res, err := Install(dir, "skill-github")
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if err := Uninstall("skill-github"); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, err := os.Lstat(res.Link); !os.IsNotExist(err) {
		t.Error("link should be removed")
	}

	// Removing again is fine.
	if err := Uninstall("skill-github"); err != nil {
		t.Fatalf("second Uninstall: %v", err)
	}
}
