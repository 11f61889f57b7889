// =============================================================================
// Ledger SQL Migration - File Manager Utility
// =============================================================================
//
// This module manages where artifacts are written:
//   - Staging directory creation next to the output directory
//   - Promotion of staged files into the output directory
//   - Purging a staging directory after a failed verification
//
// STAGING STRATEGY:
//   - Artifacts are written to "<output_dir>.staging-<random>", a sibling of
//     the output directory, so promotion renames stay on one filesystem
//   - Promotion swaps the staging directory in for the output directory with
//     two renames and undoes the first if the second fails
//   - Files from the previous output directory that match StalePattern are
//     dropped; other files are carried over unless a staged file replaces them
//   - A staging directory that failed to promote is left for inspection
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager stages and promotes the artifacts of one run.
type FileManager struct {
	// OutputDir is the directory promoted files end up in.
	OutputDir string

	// StagingDir is the directory artifacts are written to before promotion.
	// Empty until Stage is called.
	StagingDir string

	// StalePattern globs files in OutputDir that a promotion replaces, e.g.
	// line artifacts left by an earlier run with more batches.
	StalePattern string
}

// NewFileManager creates a FileManager for outputDir.
func NewFileManager(outputDir, stalePattern string) *FileManager {
	return &FileManager{
		OutputDir:    filepath.Clean(outputDir),
		StalePattern: stalePattern,
	}
}

// =============================================================================
// STAGING
// =============================================================================

// Stage creates a fresh staging directory and returns its path.
//
// RETURNS:
//   - The staging directory path.
//   - An IOFailureError if the parent directory or the staging directory
//     cannot be created.
func (fm *FileManager) Stage() (string, error) {
	parent := filepath.Dir(fm.OutputDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return "", types.NewIOFailure("create directory", parent, err)
	}

	dir, err := os.MkdirTemp(parent, filepath.Base(fm.OutputDir)+".staging-")
	if err != nil {
		return "", types.NewIOFailure("create staging directory", parent, err)
	}

	fm.StagingDir = dir
	return dir, nil
}

// rename is os.Rename. Tests replace it to simulate a failing filesystem.
var rename = os.Rename

// Promote swaps the staging directory in as the output directory and removes
// the previous output directory.
//
// The swap takes two renames: the existing output directory is moved aside to
// "<output_dir>.old-<uuid>", then the staging directory takes its name. If the
// second rename fails the first is undone, so the output directory holds
// either the previous artifact set or the new one, never a mix. Entries of the
// previous directory that were not replaced and do not match StalePattern are
// carried into the new one.
//
// RETURNS:
//   - The promoted file names, sorted.
//   - An IOFailureError naming the path that could not be moved. The staging
//     directory is left in place if the swap did not happen.
func (fm *FileManager) Promote() ([]string, error) {
	if fm.StagingDir == "" {
		return nil, fmt.Errorf("failed to promote: nothing staged")
	}

	names, err := stagedFiles(fm.StagingDir)
	if err != nil {
		return nil, err
	}

	mode := os.FileMode(0755)
	previous := ""
	info, err := os.Stat(fm.OutputDir)
	switch {
	case err == nil && !info.IsDir():
		return nil, types.NewIOFailure("promote", fm.OutputDir, fmt.Errorf("not a directory"))
	case err == nil:
		mode = info.Mode().Perm()
		previous = fm.OutputDir + ".old-" + uuid.NewString()
	case !os.IsNotExist(err):
		return nil, types.NewIOFailure("stat", fm.OutputDir, err)
	}

	// MkdirTemp creates the staging directory as 0700.
	if err := os.Chmod(fm.StagingDir, mode); err != nil {
		return nil, types.NewIOFailure("chmod", fm.StagingDir, err)
	}

	if previous != "" {
		if err := rename(fm.OutputDir, previous); err != nil {
			return nil, types.NewIOFailure("move aside", fm.OutputDir, err)
		}
	}
	if err := rename(fm.StagingDir, fm.OutputDir); err != nil {
		if previous != "" {
			if restoreErr := rename(previous, fm.OutputDir); restoreErr != nil {
				return nil, types.NewIOFailure("restore", previous,
					fmt.Errorf("%w (promote failed: %v)", restoreErr, err))
			}
		}
		return nil, types.NewIOFailure("promote", fm.StagingDir, err)
	}
	fm.StagingDir = ""

	if previous == "" {
		return names, nil
	}
	if err := fm.carryOver(previous, names); err != nil {
		return names, err
	}
	if err := os.RemoveAll(previous); err != nil {
		return names, types.NewIOFailure("remove", previous, err)
	}
	return names, nil
}

// stagedFiles lists the regular files in dir, sorted.
func stagedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, types.NewIOFailure("read", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// carryOver moves entries of the previous output directory that the promoted
// set neither replaced nor made stale into the new output directory. On
// failure the previous directory is kept for inspection.
func (fm *FileManager) carryOver(previous string, promoted []string) error {
	entries, err := os.ReadDir(previous)
	if err != nil {
		return types.NewIOFailure("read", previous, err)
	}

	replaced := make(map[string]bool, len(promoted))
	for _, name := range promoted {
		replaced[name] = true
	}

	for _, entry := range entries {
		name := entry.Name()
		if replaced[name] {
			continue
		}
		if fm.StalePattern != "" {
			if stale, _ := filepath.Match(fm.StalePattern, name); stale {
				continue
			}
		}
		src := filepath.Join(previous, name)
		if err := rename(src, filepath.Join(fm.OutputDir, name)); err != nil {
			return types.NewIOFailure("carry over", src, err)
		}
	}
	return nil
}

// Purge deletes the staging directory and everything in it.
func (fm *FileManager) Purge() error {
	if fm.StagingDir == "" {
		return nil
	}
	if err := os.RemoveAll(fm.StagingDir); err != nil {
		return types.NewIOFailure("remove", fm.StagingDir, err)
	}
	fm.StagingDir = ""
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// WriteFile writes data to dir/name, creating dir.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", types.NewIOFailure("create directory", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", types.NewIOFailure("write", path, err)
	}
	return path, nil
}
