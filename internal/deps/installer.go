// Package deps installs a graded repository's dependencies with the
// language-appropriate command and isolation.
package deps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/pkg/types"
)

// venvDirName is the isolated package environment created for Python repos.
const venvDirName = "venv"

// Installer runs dependency installation for one repository.
type Installer struct {
	logger zerolog.Logger
	cfg    *config.Config
}

// NewInstaller creates an Installer bound to a session logger and config.
func NewInstaller(logger zerolog.Logger, cfg *config.Config) *Installer {
	return &Installer{logger: logger, cfg: cfg}
}

// Install runs the profile's install command inside repoPath. An absent or
// empty manifest is a success with no subprocess invoked. A non-zero exit
// is downgraded to success only when the tool output matches the profile's
// tolerated missing-manifest pattern; timeouts, a missing package manager,
// and any other failure return an InstallError.
func (i *Installer) Install(ctx context.Context, repoPath string, profile config.LanguageProfile) error {
	i.logger.Info().Str("language", string(profile.Language)).Msg("installing dependencies")

	manifest := filepath.Join(repoPath, profile.DependencyFile)
	info, err := os.Stat(manifest)
	if os.IsNotExist(err) {
		i.logger.Info().Str("manifest", profile.DependencyFile).Msg("no manifest found, skipping installation")
		return nil
	}
	if err == nil && info.Size() == 0 {
		i.logger.Info().Str("manifest", profile.DependencyFile).Msg("empty manifest, skipping installation")
		return nil
	}

	installCtx, cancel := context.WithTimeout(ctx, i.cfg.InstallTimeout)
	defer cancel()

	installCmd, err := i.installCommand(installCtx, repoPath, profile)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(installCtx, installCmd[0], installCmd[1:]...)
	cmd.Dir = repoPath
	output, runErr := cmd.CombinedOutput()
	i.logger.Debug().Str("output", string(output)).Msg("install command finished")

	if runErr == nil {
		i.logger.Info().Msg("dependencies installed successfully")
		return nil
	}

	if errors.Is(installCtx.Err(), context.DeadlineExceeded) {
		return types.NewInstallError("dependency installation timeout", runErr)
	}
	var execErr *exec.Error
	if errors.As(runErr, &execErr) {
		return types.NewInstallError(fmt.Sprintf("package manager not found for %s", profile.Language), runErr)
	}
	if toleratedInstallFailure(profile, string(output)) {
		i.logger.Info().Str("manifest", profile.DependencyFile).
			Msg("manifest missing at install time, treating as nothing to install")
		return nil
	}

	msg := strings.TrimSpace(string(output))
	i.logger.Error().Str("output", msg).Msg("dependency installation failed")
	return types.NewInstallError("install command failed: "+msg, runErr)
}

// toleratedInstallFailure is the single place the lenient missing-manifest
// heuristic lives: a failed install whose tool output matches the profile's
// known "manifest not found" fragment counts as success.
func toleratedInstallFailure(profile config.LanguageProfile, output string) bool {
	if profile.MissingManifestPattern == "" {
		return false
	}
	return strings.Contains(output, profile.MissingManifestPattern)
}

// installCommand resolves the profile's install command, provisioning the
// isolated package environment first for profiles that require it.
func (i *Installer) installCommand(ctx context.Context, repoPath string, profile config.LanguageProfile) ([]string, error) {
	cmd := append([]string(nil), profile.InstallCommand...)
	if !profile.UseVenv {
		return cmd, nil
	}

	venvPython, err := i.ensureVenv(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	// Rewrite "pip ..." to run inside the isolated environment.
	if cmd[0] == "pip" {
		cmd = append([]string{venvPython, "-m", "pip"}, cmd[1:]...)
	}
	return cmd, nil
}

// ensureVenv creates the virtual environment if absent (idempotent) and
// returns the path of its python executable.
func (i *Installer) ensureVenv(ctx context.Context, repoPath string) (string, error) {
	venvDir := filepath.Join(repoPath, venvDirName)

	if _, err := os.Stat(venvDir); os.IsNotExist(err) {
		i.logger.Info().Msg("creating Python virtual environment")
		create := exec.CommandContext(ctx, "python3", "-m", "venv", venvDir)
		create.Dir = repoPath
		if output, err := create.CombinedOutput(); err != nil {
			return "", types.NewInstallError("create virtual environment: "+strings.TrimSpace(string(output)), err)
		}
	}

	venvPython := filepath.Join(venvDir, "bin", "python")
	if runtime.GOOS == "windows" {
		venvPython = filepath.Join(venvDir, "Scripts", "python.exe")
	}

	// Best-effort pip upgrade; failure does not abort the install.
	upgrade := exec.CommandContext(ctx, venvPython, "-m", "pip", "install", "--upgrade", "pip")
	upgrade.Dir = repoPath
	if output, err := upgrade.CombinedOutput(); err != nil {
		i.logger.Warn().Str("output", strings.TrimSpace(string(output))).Msg("pip upgrade failed")
	}

	return venvPython, nil
}

// verificationPaths maps each language to the install artifact whose
// existence suggests the install took effect.
var verificationPaths = map[config.Language]string{
	config.LanguageNodeJS: "node_modules",
	config.LanguagePython: venvDirName,
	config.LanguageGo:     "go.sum",
	config.LanguageDart:   ".dart_tool",
}

// VerifyInstallation is a best-effort existence check of the language's
// install artifact. Absence is logged as a warning, never a failure: this
// check cannot fail the pipeline.
func (i *Installer) VerifyInstallation(repoPath string, profile config.LanguageProfile) bool {
	artifact, ok := verificationPaths[profile.Language]
	if !ok {
		return true
	}
	if _, err := os.Stat(filepath.Join(repoPath, artifact)); err != nil {
		i.logger.Warn().Str("artifact", artifact).Msg("could not verify dependency installation")
		return true
	}
	i.logger.Info().Msg("dependency installation verified")
	return true
}
