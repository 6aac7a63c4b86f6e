package platform

import (
	"os"
	"path/filepath"

	"github.com/alanmeadows/lit-critic/internal/errs"
)

// MarkerFilename is the sentinel file that must exist directly inside a
// project directory for it to be accepted as a review target.
const MarkerFilename = ".lit-critic-project"

// ValidateRepoPath runs the repo-path preflight check: the path must be
// non-empty, resolve to an existing directory, and contain MarkerFilename.
// On success it returns the cleaned absolute path.
func ValidateRepoPath(raw string) (string, error) {
	if trimmed := filepathTrimSpace(raw); trimmed == "" {
		return "", errs.NewRepoPreflightError(errs.PreflightEmpty, raw, "repository path must not be empty")
	}

	expanded, err := expandUser(raw)
	if err != nil {
		return "", errs.NewRepoPreflightError(errs.PreflightUnknown, raw, err.Error())
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errs.NewRepoPreflightError(errs.PreflightUnknown, raw, err.Error())
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errs.NewRepoPreflightError(errs.PreflightNotFound, abs, "path does not exist")
		}
		return "", errs.NewRepoPreflightError(errs.PreflightUnknown, abs, err.Error())
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errs.NewRepoPreflightError(errs.PreflightNotFound, resolved, "path does not exist")
		}
		return "", errs.NewRepoPreflightError(errs.PreflightUnknown, resolved, err.Error())
	}
	if !info.IsDir() {
		return "", errs.NewRepoPreflightError(errs.PreflightNotDirectory, resolved, "path is not a directory")
	}

	if _, err := os.Stat(filepath.Join(resolved, MarkerFilename)); err != nil {
		if os.IsNotExist(err) {
			return "", errs.NewRepoPreflightError(errs.PreflightMissingMarker, resolved, "directory is missing "+MarkerFilename)
		}
		return "", errs.NewRepoPreflightError(errs.PreflightUnknown, resolved, err.Error())
	}

	return resolved, nil
}

func filepathTrimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func expandUser(path string) (string, error) {
	if path == "~" || len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
