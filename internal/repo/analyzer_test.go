package repo_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/internal/repo"
	"github.com/ragmark/ragmark/pkg/types"
)

func newTestAnalyzer(t *testing.T) *repo.Analyzer {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return repo.NewAnalyzer(zerolog.Nop(), cfg)
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("touch %s: %v", name, err)
		}
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		name    string
		files   []string
		want    config.Language
		wantErr bool
	}{
		{"python", []string{"requirements.txt"}, config.LanguagePython, false},
		{"nodejs", []string{"package.json"}, config.LanguageNodeJS, false},
		{"golang", []string{"go.mod"}, config.LanguageGo, false},
		{"dart", []string{"pubspec.yaml"}, config.LanguageDart, false},
		// nodejs wins the tie-break over python
		{"multiple manifests", []string{"package.json", "requirements.txt"}, config.LanguageNodeJS, false},
		{"no manifest", []string{"README.md"}, "", true},
	}

	a := newTestAnalyzer(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tc.files...)

			profile, err := a.DetectLanguage(dir)
			if tc.wantErr {
				if err == nil {
					t.Fatal("DetectLanguage succeeded, want error")
				}
				var ge *types.GradingError
				if !errors.As(err, &ge) || ge.Type != "DETECTION_ERROR" {
					t.Errorf("error = %v, want DETECTION_ERROR", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectLanguage: %v", err)
			}
			if profile.Language != tc.want {
				t.Errorf("Language = %s, want %s", profile.Language, tc.want)
			}
		})
	}
}

func TestFindMainFile(t *testing.T) {
	a := newTestAnalyzer(t)
	python := config.Profiles()[1]

	t.Run("first candidate wins", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "app.py", "main.py")
		got, err := a.FindMainFile(dir, python)
		if err != nil {
			t.Fatalf("FindMainFile: %v", err)
		}
		if got != "main.py" {
			t.Errorf("FindMainFile = %q, want main.py", got)
		}
	})

	t.Run("fallback candidate", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "server.py")
		got, err := a.FindMainFile(dir, python)
		if err != nil {
			t.Fatalf("FindMainFile: %v", err)
		}
		if got != "server.py" {
			t.Errorf("FindMainFile = %q, want server.py", got)
		}
	})

	t.Run("subdirectories not searched", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "src")
		if err := os.Mkdir(sub, 0o755); err != nil {
			t.Fatal(err)
		}
		touch(t, sub, "main.py")
		if _, err := a.FindMainFile(dir, python); err == nil {
			t.Error("FindMainFile found an entry file in a subdirectory")
		}
	})
}

func TestFindEnvTemplate(t *testing.T) {
	a := newTestAnalyzer(t)

	dir := t.TempDir()
	if _, found := a.FindEnvTemplate(dir); found {
		t.Error("FindEnvTemplate found a template in an empty repo")
	}

	touch(t, dir, ".env.template")
	path, found := a.FindEnvTemplate(dir)
	if !found {
		t.Fatal("FindEnvTemplate missed .env.template")
	}
	if filepath.Base(path) != ".env.template" {
		t.Errorf("template path = %q", path)
	}

	// .env.example takes priority when both exist.
	touch(t, dir, ".env.example")
	path, _ = a.FindEnvTemplate(dir)
	if filepath.Base(path) != ".env.example" {
		t.Errorf("template priority = %q, want .env.example", filepath.Base(path))
	}
}

func TestHasReadme(t *testing.T) {
	a := newTestAnalyzer(t)

	dir := t.TempDir()
	if a.HasReadme(dir) {
		t.Error("HasReadme = true for empty repo")
	}
	touch(t, dir, "README.md")
	if !a.HasReadme(dir) {
		t.Error("HasReadme = false with README.md present")
	}
}

func TestCloneInvalidURL(t *testing.T) {
	a := newTestAnalyzer(t)
	dest := filepath.Join(t.TempDir(), "repo")

	_, err := a.Clone(context.Background(), "file:///nonexistent/repo.git", dest)
	if err == nil {
		t.Fatal("Clone of a nonexistent repo succeeded")
	}
	var ge *types.GradingError
	if !errors.As(err, &ge) || ge.Type != "CLONE_ERROR" {
		t.Errorf("error = %v, want CLONE_ERROR", err)
	}
}

func TestCloneLocalRepo(t *testing.T) {
	// Build a source repo with one commit, then clone it.
	src := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = src
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("git unavailable: %v (%s)", err, out)
		}
	}
	run("git", "init")
	run("git", "config", "user.email", "grader@test")
	run("git", "config", "user.name", "grader")
	touch(t, src, "README.md")
	run("git", "add", ".")
	run("git", "commit", "-m", "init")

	a := newTestAnalyzer(t)
	dest := filepath.Join(t.TempDir(), "clone")
	got, err := a.Clone(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if got != dest {
		t.Errorf("Clone returned %q, want %q", got, dest)
	}
	if _, err := os.Stat(filepath.Join(dest, "README.md")); err != nil {
		t.Error("cloned repo missing README.md")
	}
}
