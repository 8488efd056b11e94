// Package util collects small filesystem and version-check helpers shared
// across the sentinel binary's subcommands.
package util

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver"
	"github.com/google/go-github/github"
	"github.com/spf13/afero"
)

var (
	ErrInvalidPath = errors.New("path cannot be empty string")

	ErrFileDoesNotExist = errors.New("file does not exist")
	ErrFileIsEmtpy      = errors.New("file is empty")
	ErrPathIsDir        = errors.New("given path is a directory, not a file")

	ErrDirDoesNotExist = errors.New("directory does not exist")
	ErrDirIsEmpty      = errors.New("directory is empty")
	ErrPathIsNotDir    = errors.New("given path is not a directory")
)

// ParseRelativePath resolves "~/"-prefixed paths against the home
// directory and any path starting with "." (such as "./" or "../")
// against the current working directory; any other path is returned
// unchanged.
func ParseRelativePath(dir string) (string, error) {
	if dir == "" {
		return "", ErrInvalidPath
	}

	switch {
	case strings.HasPrefix(dir, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, dir[2:]), nil
	case strings.HasPrefix(dir, "."):
		currentDir, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Join(currentDir, dir), nil
	default:
		return dir, nil
	}
}

// ValidateFile returns an error unless path exists, is not a directory, and
// is not empty.
func ValidateFile(afs afero.Fs, file string) error {
	exists, isDir, isEmpty, err := validatePath(afs, file)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s", ErrFileDoesNotExist, file)
	}
	if isDir {
		return fmt.Errorf("%w: %s", ErrPathIsDir, file)
	}
	if isEmpty {
		return fmt.Errorf("%w: %s", ErrFileIsEmtpy, file)
	}

	return nil
}

// ValidateDirectory returns an error unless dir exists, is a directory, and
// is not empty.
func ValidateDirectory(afs afero.Fs, dir string) error {
	exists, isDir, isEmpty, err := validatePath(afs, dir)
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("%w: %s", ErrDirDoesNotExist, dir)
	}
	if !isDir {
		return fmt.Errorf("%w: %s", ErrPathIsNotDir, dir)
	}
	if isEmpty {
		return fmt.Errorf("%w: %s", ErrDirIsEmpty, dir)
	}

	return nil
}

func validatePath(afs afero.Fs, path string) (bool, bool, bool, error) {
	var exists, isDir, isEmpty bool

	if afs == nil {
		return exists, isDir, isEmpty, fmt.Errorf("filesystem is nil")
	}
	if path == "" {
		return exists, isDir, isEmpty, ErrInvalidPath
	}

	exists, err := afero.Exists(afs, path)
	if err != nil {
		return exists, isDir, isEmpty, err
	}

	if exists {
		isDir, err = afero.IsDir(afs, path)
		if err != nil {
			return exists, isDir, isEmpty, err
		}
		isEmpty, err = afero.IsEmpty(afs, path)
		if err != nil {
			return exists, isDir, isEmpty, err
		}
	}

	return exists, isDir, isEmpty, nil
}

// CheckForNewerVersion compares currentVersion against the latest GitHub
// release tag of the sentinel repository.
func CheckForNewerVersion(client *github.Client, currentVersion string) (bool, string, error) {
	latestVersion, err := GetLatestReleaseVersion(client, "pulsegrid", "sentinel")
	if err != nil {
		return false, "", err
	}

	currentSemver, err := semver.ParseTolerant(currentVersion)
	if err != nil {
		return false, "", fmt.Errorf("error parsing current version: %w", err)
	}

	latestSemver, err := semver.ParseTolerant(latestVersion)
	if err != nil {
		return false, "", fmt.Errorf("error parsing latest version: %w", err)
	}

	if latestSemver.GT(currentSemver) {
		return true, latestVersion, nil
	}

	return false, latestVersion, nil
}

// GetLatestReleaseVersion fetches the latest release tag for owner/repo.
func GetLatestReleaseVersion(client *github.Client, owner, repo string) (string, error) {
	latestRelease, _, err := client.Repositories.GetLatestRelease(context.Background(), owner, repo)
	if err != nil {
		return "", fmt.Errorf("error fetching latest release: %w", err)
	}

	return latestRelease.GetTagName(), nil
}
