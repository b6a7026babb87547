package unpack

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

var builtinExtensions = []string{
	".tar", ".tar.bz2", ".tar.gz", ".tar.xz", ".tar.zst",
	".tbz2", ".tgz", ".txz", ".tzst", ".zip",
}

// writeStub creates an executable shell script in dir that appends its
// arguments to $UNPACK_ARGS_LOG and exits with the given status.
func writeStub(t *testing.T, dir string, name string, status int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" +
		"[ -n \"$UNPACK_ARGS_LOG\" ] && echo \"" + name + " $*\" >> \"$UNPACK_ARGS_LOG\"\n" +
		"exit " + string(rune('0'+status)) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func onlyPath(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("PATH", dir)
}

func TestDetectTool(t *testing.T) {
	bin := t.TempDir()
	onlyPath(t, bin)

	writeStub(t, bin, "ok", 0)
	writeStub(t, bin, "fails", 2)
	notExec := filepath.Join(bin, "notexec")
	require.NoError(t, os.WriteFile(notExec, []byte("#!/bin/sh\n"), 0644))

	ctx := context.Background()

	found, err := DetectTool(ctx, "ok")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = DetectTool(ctx, "fails")
	require.NoError(t, err)
	assert.True(t, found, "non-zero exit still means installed")

	found, err = DetectTool(ctx, "clearly-not-present-binary")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = DetectTool(ctx, filepath.Join(bin, "missing"))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = DetectTool(ctx, notExec)
	assert.Error(t, err, "a present but unusable tool must not be reported as absent")
}

func TestInit_NoTools(t *testing.T) {
	onlyPath(t, t.TempDir())

	reg, err := Init(context.Background(), DefaultTools)
	require.NoError(t, err)

	exts := reg.Extensions()
	assert.Equal(t, builtinExtensions, exts.Sorted())
	assert.False(t, exts.Contains(".rar"))
	assert.False(t, exts.Contains(".7z"))
}

func TestInit_PrefersSevenZip(t *testing.T) {
	bin := t.TempDir()
	onlyPath(t, bin)
	writeStub(t, bin, "7z", 0)
	writeStub(t, bin, "unrar", 0)

	reg, err := Init(context.Background(), DefaultTools)
	require.NoError(t, err)

	formats := reg.Formats()
	last := formats[len(formats)-1]
	assert.Equal(t, "7zip", last.Name)
	for _, f := range formats {
		assert.NotEqual(t, "unrar", f.Name)
	}

	exts := reg.Extensions()
	for _, ext := range SevenZipExtensions {
		assert.True(t, exts.Contains(ext), ext)
	}
	assert.Len(t, exts, len(builtinExtensions)+len(SevenZipExtensions))
}

func TestInit_UnrarFallback(t *testing.T) {
	bin := t.TempDir()
	onlyPath(t, bin)
	writeStub(t, bin, "unrar", 0)

	reg, err := Init(context.Background(), DefaultTools)
	require.NoError(t, err)

	exts := reg.Extensions()
	assert.True(t, exts.Contains(".rar"))
	assert.False(t, exts.Contains(".7z"))
	assert.Len(t, exts, len(builtinExtensions)+1)
}

func TestInit_DetectFailurePropagates(t *testing.T) {
	bin := t.TempDir()
	notExec := filepath.Join(bin, "7z")
	require.NoError(t, os.WriteFile(notExec, []byte("#!/bin/sh\n"), 0644))

	_, err := Init(context.Background(), Tools{SevenZip: notExec})
	assert.Error(t, err)
}

func TestExtensions_Snapshot(t *testing.T) {
	reg := NewRegistry(Builtins()...)
	snap := reg.Extensions()

	reg.Register(Format{Name: "later", Extensions: []string{".LATER"}})

	assert.False(t, snap.Contains(".later"))
	assert.True(t, reg.Extensions().Contains(".later"))
}

func TestExtensions_CaseInsensitive(t *testing.T) {
	exts := NewRegistry(Builtins()...).Extensions()
	assert.True(t, exts.Contains(".ZIP"))
	assert.True(t, exts.Contains(strings.ToLower(filepath.Ext("NOTES.ZIP"))))
}

func TestLookup_Order(t *testing.T) {
	reg := NewRegistry(Builtins()...)
	reg.Register(SevenZipFormat("7z"))

	tests := []struct {
		filename string
		want     string
		found    bool
	}{
		{"a.tar.gz", "gztar", true},
		{"A.TGZ", "gztar", true},
		{"a.gz", "7zip", true},
		{"a.zip", "zip", true},
		{"a.zipx", "7zip", true},
		{"a.rar", "7zip", true},
		{"a.pdf", "", false},
	}

	for _, test := range tests {
		f, ok := reg.Lookup(test.filename)
		assert.Equal(t, test.found, ok, test.filename)
		assert.Equal(t, test.want, f.Name, test.filename)
	}
}

func TestArgs(t *testing.T) {
	assert.Equal(t, []string{"x", "-y", "-o/out/dir", "/in/a.7z"}, SevenZipArgs("/in/a.7z", "/out/dir"))
	assert.Equal(t, []string{"-inul", "-f", "x", "/in/a.rar", "/out/dir/"}, UnrarArgs("/in/a.rar", "/out/dir"))
	assert.Equal(t, []string{"-inul", "-f", "x", "/in/a.rar", "/out/dir/"}, UnrarArgs("/in/a.rar", "/out/dir/"))
}

func TestSevenZipFormat_Runs(t *testing.T) {
	bin := t.TempDir()
	stub := writeStub(t, bin, "7z", 0)
	logPath := filepath.Join(t.TempDir(), "args.log")
	t.Setenv("UNPACK_ARGS_LOG", logPath)

	reg := NewRegistry(SevenZipFormat(stub))
	require.NoError(t, reg.Unpack(context.Background(), "/in/Archive.7Z", "/out/Archive"))

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "7z x -y -o/out/Archive /in/Archive.7Z\n", string(b))
}

func TestUnrarFormat_Runs(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "unrar", 0)
	logPath := filepath.Join(t.TempDir(), "args.log")
	t.Setenv("UNPACK_ARGS_LOG", logPath)

	reg := NewRegistry(UnrarFormat(stub))
	require.NoError(t, reg.Unpack(context.Background(), "/in/a.rar", "/out/a"))
	require.NoError(t, reg.Unpack(context.Background(), "/in/B.RAR", "/out/B/"))

	b, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "unrar -inul -f x /in/a.rar /out/a/\n"+
		"unrar -inul -f x /in/B.RAR /out/B/\n", string(b))
}

func TestUnrarFormat_FailureIsError(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "unrar", 3)

	reg := NewRegistry(UnrarFormat(stub))
	assert.Error(t, reg.Unpack(context.Background(), "/in/a.rar", "/out/a"))
}

func TestSevenZipFormat_FailureIsError(t *testing.T) {
	stub := writeStub(t, t.TempDir(), "7z", 2)

	reg := NewRegistry(SevenZipFormat(stub))
	assert.Error(t, reg.Unpack(context.Background(), "/in/a.7z", "/out/a"))
}

func TestUnpack_UnknownFormat(t *testing.T) {
	reg := NewRegistry(Builtins()...)
	assert.Error(t, reg.Unpack(context.Background(), "/in/a.pdf", "/out/a"))
}

func TestUnpack_Zip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "B.ZIP")

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for name, body := range map[string]string{
		"slides/01.pdf": "first",
		"readme.txt":    "hello",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0644))

	dst := filepath.Join(dir, "Lecture")
	require.NoError(t, NewRegistry(Builtins()...).Unpack(context.Background(), src, dst))

	b, err := os.ReadFile(filepath.Join(dst, "slides", "01.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(b))

	b, err = os.ReadFile(filepath.Join(dst, "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

// writeTar writes a tar archive of files to path, compressed by the writer
// that wrap returns.
func writeTar(t *testing.T, path string, wrap func(w io.Writer) (io.WriteCloser, error), files map[string]string) {
	t.Helper()

	buf := &bytes.Buffer{}
	cw, err := wrap(buf)
	require.NoError(t, err)
	tw := tar.NewWriter(cw)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, cw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func gzipWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func xzWriter(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func zstdWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	writeTar(t, path, gzipWriter, files)
}

func TestUnpack_TarGz(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "code.tgz")
	writeTarGz(t, src, map[string]string{"src/main.c": "int main;"})

	dst := filepath.Join(dir, "code")
	require.NoError(t, NewRegistry(Builtins()...).Unpack(context.Background(), src, dst))

	b, err := os.ReadFile(filepath.Join(dst, "src", "main.c"))
	require.NoError(t, err)
	assert.Equal(t, "int main;", string(b))
}

func TestUnpack_RejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, src, map[string]string{"../escaped.txt": "gotcha"})

	err := NewRegistry(Builtins()...).Unpack(context.Background(), src, filepath.Join(dir, "out"))
	require.ErrorIs(t, err, errUnsafePath)
	assert.NoFileExists(t, filepath.Join(dir, "escaped.txt"))
}

func TestUnpack_CompressedTars(t *testing.T) {
	tests := []struct {
		name string
		wrap func(w io.Writer) (io.WriteCloser, error)
	}{
		{"notes.tar.gz", gzipWriter},
		{"notes.tar.xz", xzWriter},
		{"notes.TXZ", xzWriter},
		{"notes.tar.zst", zstdWriter},
		{"notes.tzst", zstdWriter},
	}

	reg := NewRegistry(Builtins()...)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, test.name)
			writeTar(t, src, test.wrap, map[string]string{"notes/week1.txt": test.name})

			dst := filepath.Join(dir, "out")
			require.NoError(t, reg.Unpack(context.Background(), src, dst))

			b, err := os.ReadFile(filepath.Join(dst, "notes", "week1.txt"))
			require.NoError(t, err)
			assert.Equal(t, test.name, string(b))
		})
	}
}

// The standard library only decompresses bzip2, so the archive is a fixture.
func TestUnpack_TarBz2(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"notes.tar.bz2", "notes.tbz2"} {
		src := filepath.Join(dir, name)
		b, err := os.ReadFile(filepath.Join("testdata", "notes.tar.bz2"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(src, b, 0644))

		dst := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name)))
		require.NoError(t, NewRegistry(Builtins()...).Unpack(context.Background(), src, dst))

		b, err = os.ReadFile(filepath.Join(dst, "notes", "week1.txt"))
		require.NoError(t, err)
		assert.Equal(t, "bzip2", string(b), name)
	}
}
