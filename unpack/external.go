package unpack

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SevenZipExtensions are the extensions handed to 7-zip when it is installed.
var SevenZipExtensions = []string{
	".zipx", ".gz", ".z", ".cab",
	".rar", ".lzh", ".7z", ".xz",
}

// UnrarExtensions are the extensions handed to unrar when 7-zip is missing.
var UnrarExtensions = []string{".rar"}

// DetectTool reports whether the named executable is installed by running it
// without arguments. Only a missing executable yields false. A non-zero exit
// status still proves the tool exists. Any other failure to start it is
// returned as an error.
func DetectTool(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, name)
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return true, nil

	case errors.As(err, &exitErr):
		log.Debugf("tool exited non-zero, treating as installed: tool=%s err=%v", name, err)
		return true, nil

	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		log.Debugf("tool not found: %s", name)
		return false, nil

	default:
		return false, fmt.Errorf("failed to run %s: %w", name, err)
	}
}

// SevenZipArgs builds the 7-zip command line extracting src into dst,
// overwriting existing files.
func SevenZipArgs(src string, dst string) []string {
	return []string{"x", "-y", "-o" + dst, src}
}

// UnrarArgs builds the unrar command line extracting src into dst. unrar only
// treats dst as a directory if it ends with a path separator, so one is
// appended if missing.
func UnrarArgs(src string, dst string) []string {
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(dst, sep) {
		dst += sep
	}
	return []string{"-inul", "-f", "x", src, dst}
}

// SevenZipFormat returns a format that extracts via the given 7-zip
// executable. The tool's standard output is discarded.
func SevenZipFormat(command string) Format {
	return Format{
		Name:       "7zip",
		Extensions: SevenZipExtensions,
		Unpack: func(ctx context.Context, src string, dst string) error {
			return runTool(ctx, command, SevenZipArgs(src, dst), false)
		},
	}
}

// UnrarFormat returns a format that extracts via the given unrar executable.
func UnrarFormat(command string) Format {
	return Format{
		Name:       "unrar",
		Extensions: UnrarExtensions,
		Unpack: func(ctx context.Context, src string, dst string) error {
			return runTool(ctx, command, UnrarArgs(src, dst), true)
		},
	}
}

// runTool executes an external unpack tool. A non-zero exit status is an
// error.
func runTool(ctx context.Context, command string, args []string, showStdout bool) error {
	log.Debugf("exec: %s %s", command, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, command, args...)
	if showStdout {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("%s failed: %w", command, err)
	}

	return nil
}
