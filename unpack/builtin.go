package unpack

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

// Builtins returns the formats that are always available, in lookup order.
func Builtins() []Format {
	return []Format{
		{Name: "tar", Extensions: []string{".tar"}, Unpack: tarUnpacker(nil)},
		{Name: "zip", Extensions: []string{".zip"}, Unpack: unpackZip},
		{Name: "gztar", Extensions: []string{".tar.gz", ".tgz"}, Unpack: tarUnpacker(gunzip)},
		{Name: "bztar", Extensions: []string{".tar.bz2", ".tbz2"}, Unpack: tarUnpacker(bunzip2)},
		{Name: "xztar", Extensions: []string{".tar.xz", ".txz"}, Unpack: tarUnpacker(unxz)},
		{Name: "zstdtar", Extensions: []string{".tar.zst", ".tzst"}, Unpack: tarUnpacker(unzstd)},
	}
}

// decompressor wraps a compressed stream.
type decompressor func(r io.Reader) (io.ReadCloser, error)

func gunzip(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func bunzip2(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(bzip2.NewReader(r)), nil
}

func unxz(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

func unzstd(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}

var errUnsafePath = errors.New("archive entry escapes destination")

// entryPath resolves an archive entry name against dst, rejecting names that
// would land outside of it.
func entryPath(dst string, name string) (string, error) {
	target := filepath.Join(dst, filepath.FromSlash(name))
	root := filepath.Clean(dst)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", errUnsafePath, name)
	}
	return target, nil
}

// writeEntry copies an archive member to path, creating parent directories.
func writeEntry(path string, r io.Reader, mode os.FileMode) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}

	if mode.Perm() == 0 {
		mode = 0644
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, r)
	if err != nil {
		return err
	}

	return f.Close()
}

func unpackZip(ctx context.Context, src string, dst string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		path, err := entryPath(dst, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			err := os.MkdirAll(path, 0755)
			if err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(path, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// tarUnpacker returns a Func extracting a tar archive, optionally wrapped in
// the given compression.
func tarUnpacker(decompress decompressor) Func {
	return func(ctx context.Context, src string, dst string) error {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()

		var r io.Reader = in
		if decompress != nil {
			dr, err := decompress(in)
			if err != nil {
				return err
			}
			defer dr.Close()
			r = dr
		}

		tr := tar.NewReader(r)
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			hdr, err := tr.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			path, err := entryPath(dst, hdr.Name)
			if err != nil {
				return err
			}

			switch hdr.Typeflag {
			case tar.TypeDir:
				err := os.MkdirAll(path, 0755)
				if err != nil {
					return err
				}

			case tar.TypeReg:
				err := writeEntry(path, tr, hdr.FileInfo().Mode())
				if err != nil {
					return err
				}

			default:
				log.Debugf("skipping tar entry: name=%s type=%c", hdr.Name, hdr.Typeflag)
			}
		}
	}
}
