package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ccollins476ad/studipdl/fileutil"
	"github.com/ccollins476ad/studipdl/session"
	"github.com/ccollins476ad/studipdl/unpack"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

// ChunkSize is the default number of bytes read from the network per write.
const ChunkSize = 200

// Getter issues GET requests against an API host.
type Getter interface {
	Get(ctx context.Context, path string) (*session.Response, error)
}

// Unpacker extracts an archive into a directory.
type Unpacker interface {
	Unpack(ctx context.Context, src string, dst string) error
}

// Downloader saves documents to disk and unpacks recognized archives.
type Downloader struct {
	s        Getter
	unpacker Unpacker
	exts     unpack.Extensions // Snapshot; never updated.

	chunkSize int
	progress  io.Writer // Progress bar destination; nil disables.
}

// Option configures a Downloader.
type Option func(d *Downloader)

// WithChunkSize overrides the read size used when streaming to disk.
func WithChunkSize(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithProgress renders a progress bar for each download to w.
func WithProgress(w io.Writer) Option {
	return func(d *Downloader) {
		d.progress = w
	}
}

// New returns a downloader that fetches through s and hands files whose
// extension is in exts to u. exts is typically the registry's snapshot taken
// once at startup.
func New(s Getter, u Unpacker, exts unpack.Extensions, opts ...Option) *Downloader {
	d := &Downloader{
		s:         s,
		unpacker:  u,
		exts:      exts,
		chunkSize: ChunkSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download retrieves the raw file at the api path u and writes it to
// dir/filename. If the file's extension is a recognized archive format, it is
// then unpacked into dir/<displayName without extension>. A failed write
// leaves the partial file in place.
func (d *Downloader) Download(ctx context.Context, u string, filename string, displayName string, dir string) error {
	rsp, err := d.s.Get(ctx, u)
	if err != nil {
		return err
	}
	if rsp == nil {
		return fmt.Errorf("no response for download: url=%s", u)
	}
	if rsp.IsJSON() {
		return fmt.Errorf("expected file content, got json: url=%s status=%s", u, rsp.Status)
	}
	defer rsp.Body.Close()

	if !rsp.OK() {
		return fmt.Errorf("error status: url=%s status=%s", u, rsp.Status)
	}

	destPath := filepath.Join(dir, filename)
	n, err := d.save(destPath, rsp)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", destPath, err)
	}
	log.Infof("saved %s (%s)", destPath, humanize.Bytes(uint64(n)))

	ext := strings.ToLower(filepath.Ext(filename))
	if !d.exts.Contains(ext) {
		return nil
	}

	unpackDir := filepath.Join(dir, UnpackDirName(displayName, filename))
	log.Infof("unpacking %s --> %s", destPath, unpackDir)
	return d.unpacker.Unpack(ctx, destPath, unpackDir)
}

// save streams the response body into a newly created file at path.
func (d *Downloader) save(path string, rsp *session.Response) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var w io.Writer = f
	if d.progress != nil {
		bar := newProgressBar(d.progress, rsp.ContentLength, filepath.Base(path))
		defer bar.Close()
		w = io.MultiWriter(f, bar)
	}

	n, err := CopyChunked(w, rsp.Body, d.chunkSize)
	if err != nil {
		return n, err
	}

	return n, f.Close()
}

// UnpackDirName returns the directory name an archive is unpacked into: the
// display name without its extension. It falls back to the stored filename
// if the display name is empty.
func UnpackDirName(displayName string, filename string) string {
	name := displayName
	if strings.TrimSpace(name) == "" {
		name = filename
	}
	return fileutil.SafeName(stripExt(name))
}

// stripExt removes the final extension from name. Leading dots do not start
// an extension, so ".hidden" is returned as is.
func stripExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || strings.TrimLeft(name, ".") == strings.TrimLeft(ext, ".") {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
