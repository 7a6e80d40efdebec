package flintoexport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BundleExt is the extension of an export bundle folder.
const BundleExt = ".flinto"

// BundlePath appends BundleExt to path unless its name already contains it.
func BundlePath(path string) string {
	if strings.Contains(filepath.Base(path), BundleExt) {
		return path
	}
	return path + BundleExt
}

// documentName is the bundle name up to its first dot.
func documentName(bundleDir string) string {
	name, _, _ := strings.Cut(filepath.Base(bundleDir), ".")
	return name
}

// prepareFolder creates dir, or clears it once the overwrite is allowed.
// Folders created here are not removed if the export fails later.
func prepareFolder(dir string, overwrite bool, confirm func(string) bool) error {
	_, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export folder %q: %w", dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect export folder %q: %w", dir, err)
	}

	if !overwrite && (confirm == nil || !confirm(dir)) {
		return ErrCanceled
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear export folder %q: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export folder %q: %w", dir, err)
	}
	return nil
}
