package fileutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/flytam/filenamify"
	log "github.com/sirupsen/logrus"
)

// FileExists returns true if a file or directory with the given path exists.
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}

// IsFile returns true if a regular file with the given path exists.
func IsFile(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && info.Mode().IsRegular()
}

// IsDir returns true if a directory with the given path exists.
func IsDir(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && info.IsDir()
}

// MkdirP creates a directory along with any missing parents. An existing
// directory is not an error; an existing non-directory or any other failure
// is.
func MkdirP(dir string) error {
	if IsDir(dir) {
		return nil
	}

	log.Debugf("creating directory: %s", dir)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// SafeName converts a server-provided name into a single path element. Path
// separators and characters that are invalid in filenames are replaced with
// underscores. It never returns the empty string.
func SafeName(name string) string {
	safe, err := filenamify.Filenamify(strings.TrimSpace(name), filenamify.Options{
		Replacement: "_",
	})
	if err != nil || safe == "" {
		log.Debugf("unusable name, substituting placeholder: name=%q", name)
		return "_"
	}
	if safe != name {
		log.Debugf("sanitized name: %q --> %q", name, safe)
	}
	return safe
}
