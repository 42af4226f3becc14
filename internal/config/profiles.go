package config

import "strconv"

// Language identifies a supported runtime ecosystem.
type Language string

const (
	LanguageNodeJS Language = "nodejs"
	LanguagePython Language = "python"
	LanguageGo     Language = "golang"
	LanguageDart   Language = "dart"
)

// LanguageProfile is the static per-runtime configuration: candidate entry
// files, the dependency manifest used for detection and install skipping,
// and the install/run command templates.
//
// MissingManifestPattern is the tool-output fragment that downgrades a
// failed install to a success ("manifest not found" surfacing as a
// command-level error). Empty means no tolerated pattern for that runtime.
type LanguageProfile struct {
	Language               Language
	MainFiles              []string
	DependencyFile         string
	InstallCommand         []string
	RunCommand             []string
	UseVenv                bool
	MissingManifestPattern string
}

// Profiles returns the supported language profiles in detection priority
// order. Detection returns the first profile whose manifest exists at the
// repository root, so this order is the documented tie-break for
// repositories carrying more than one manifest.
func Profiles() []LanguageProfile {
	return []LanguageProfile{
		{
			Language:       LanguageNodeJS,
			MainFiles:      []string{"main.js", "index.js", "app.js", "server.js"},
			DependencyFile: "package.json",
			InstallCommand: []string{"npm", "install"},
			RunCommand:     []string{"node"},
		},
		{
			Language:               LanguagePython,
			MainFiles:              []string{"main.py", "app.py", "server.py"},
			DependencyFile:         "requirements.txt",
			InstallCommand:         []string{"pip", "install", "-r", "requirements.txt"},
			RunCommand:             []string{"uvicorn", "main:app", "--host", "0.0.0.0"},
			UseVenv:                true,
			MissingManifestPattern: "Could not open requirements file",
		},
		{
			Language:       LanguageGo,
			MainFiles:      []string{"main.go"},
			DependencyFile: "go.mod",
			InstallCommand: []string{"go", "mod", "download"},
			RunCommand:     []string{"go", "run"},
		},
		{
			Language:       LanguageDart,
			MainFiles:      []string{"main.dart"},
			DependencyFile: "pubspec.yaml",
			InstallCommand: []string{"dart", "pub", "get"},
			RunCommand:     []string{"dart", "run"},
		},
	}
}

// RunArgs builds the full run command for the given entry file and port.
// Python services are launched through uvicorn and take the port as a flag;
// the other runtimes take the entry file as the final argument and read the
// port from the generated .env.
func (p LanguageProfile) RunArgs(mainFile string, port int) []string {
	cmd := append([]string(nil), p.RunCommand...)
	switch p.Language {
	case LanguagePython:
		cmd = append(cmd, "--port", strconv.Itoa(port))
	default:
		cmd = append(cmd, mainFile)
	}
	return cmd
}
