package config_test

import (
	"testing"

	"github.com/ragmark/ragmark/internal/config"
)

func TestProfilesDetectionOrder(t *testing.T) {
	want := []config.Language{
		config.LanguageNodeJS,
		config.LanguagePython,
		config.LanguageGo,
		config.LanguageDart,
	}

	profiles := config.Profiles()
	if len(profiles) != len(want) {
		t.Fatalf("got %d profiles, want %d", len(profiles), len(want))
	}
	for i, lang := range want {
		if profiles[i].Language != lang {
			t.Errorf("profile[%d] = %s, want %s", i, profiles[i].Language, lang)
		}
	}
}

func TestRunArgs(t *testing.T) {
	byLang := map[config.Language]config.LanguageProfile{}
	for _, p := range config.Profiles() {
		byLang[p.Language] = p
	}

	cases := []struct {
		lang     config.Language
		mainFile string
		want     []string
	}{
		{config.LanguageNodeJS, "server.js", []string{"node", "server.js"}},
		{config.LanguagePython, "main.py", []string{"uvicorn", "main:app", "--host", "0.0.0.0", "--port", "8998"}},
		{config.LanguageGo, "main.go", []string{"go", "run", "main.go"}},
		{config.LanguageDart, "main.dart", []string{"dart", "run", "main.dart"}},
	}

	for _, tc := range cases {
		got := byLang[tc.lang].RunArgs(tc.mainFile, 8998)
		if len(got) != len(tc.want) {
			t.Errorf("%s RunArgs = %v, want %v", tc.lang, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s RunArgs[%d] = %q, want %q", tc.lang, i, got[i], tc.want[i])
			}
		}
	}
}

func TestRunArgsDoesNotMutateProfile(t *testing.T) {
	p := config.Profiles()[1]
	before := len(p.RunCommand)
	p.RunArgs("main.py", 9000)
	p.RunArgs("main.py", 9001)
	if len(p.RunCommand) != before {
		t.Errorf("RunArgs mutated RunCommand, len %d -> %d", before, len(p.RunCommand))
	}
}
