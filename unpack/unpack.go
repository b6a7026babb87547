package unpack

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Func extracts the archive at src into the directory dst.
type Func func(ctx context.Context, src string, dst string) error

// Format associates a set of filename extensions with an unpack function.
type Format struct {
	Name       string
	Extensions []string // Lowercase, including the leading dot.
	Unpack     Func
}

// Extensions is a set of lowercase filename extensions.
type Extensions map[string]struct{}

// Contains reports whether ext is in the set, ignoring case.
func (e Extensions) Contains(ext string) bool {
	_, ok := e[strings.ToLower(ext)]
	return ok
}

// Sorted returns the extensions in lexical order.
func (e Extensions) Sorted() []string {
	exts := make([]string, 0, len(e))
	for ext := range e {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Registry is an ordered list of unpack formats. When several formats claim
// a filename, the one registered first wins.
type Registry struct {
	formats []Format
}

// NewRegistry returns a registry containing the given formats, in order.
func NewRegistry(formats ...Format) *Registry {
	r := &Registry{}
	for _, f := range formats {
		r.Register(f)
	}
	return r
}

// Register appends a format to the registry.
func (r *Registry) Register(f Format) {
	exts := make([]string, len(f.Extensions))
	for i, ext := range f.Extensions {
		exts[i] = strings.ToLower(ext)
	}
	f.Extensions = exts

	log.Debugf("registering unpack format: name=%s extensions=%v", f.Name, exts)
	r.formats = append(r.formats, f)
}

// Formats returns the registered formats in registration order.
func (r *Registry) Formats() []Format {
	return append([]Format(nil), r.formats...)
}

// Extensions returns a snapshot of every registered extension. Formats
// registered after the call are not reflected in the returned set.
func (r *Registry) Extensions() Extensions {
	exts := Extensions{}
	for _, f := range r.formats {
		for _, ext := range f.Extensions {
			exts[ext] = struct{}{}
		}
	}
	return exts
}

// Lookup returns the first format with an extension that is a suffix of the
// given filename, ignoring case.
func (r *Registry) Lookup(filename string) (Format, bool) {
	lower := strings.ToLower(filename)
	for _, f := range r.formats {
		for _, ext := range f.Extensions {
			if strings.HasSuffix(lower, ext) {
				return f, true
			}
		}
	}
	return Format{}, false
}

// Unpack extracts src into dst using the format matching src's name.
func (r *Registry) Unpack(ctx context.Context, src string, dst string) error {
	f, ok := r.Lookup(filepath.Base(src))
	if !ok {
		return fmt.Errorf("unknown archive format: %s", src)
	}

	log.Debugf("unpacking: format=%s src=%s dst=%s", f.Name, src, dst)
	err := f.Unpack(ctx, src, dst)
	if err != nil {
		return fmt.Errorf("failed to unpack %s (%s): %w", src, f.Name, err)
	}

	return nil
}

// Tools names the optional external unpack executables. An empty name
// disables the corresponding tool.
type Tools struct {
	SevenZip string
	Unrar    string
}

// DefaultTools looks up the usual executable names in PATH.
var DefaultTools = Tools{
	SevenZip: "7z",
	Unrar:    "unrar",
}

// Init builds a registry of the built-in formats, extended by at most one
// external tool: 7-zip if it is installed, otherwise unrar if that is
// installed. Absence of both is not an error.
func Init(ctx context.Context, tools Tools) (*Registry, error) {
	reg := NewRegistry(Builtins()...)

	var has7z, hasUnrar bool

	g, gctx := errgroup.WithContext(ctx)
	detect := func(name string, found *bool) {
		if name == "" {
			return
		}
		g.Go(func() error {
			ok, err := DetectTool(gctx, name)
			*found = ok
			return err
		})
	}
	detect(tools.SevenZip, &has7z)
	detect(tools.Unrar, &hasUnrar)

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	switch {
	case has7z:
		reg.Register(SevenZipFormat(tools.SevenZip))

	case hasUnrar:
		reg.Register(UnrarFormat(tools.Unrar))

	default:
		log.Debugf("no external unpack tool found: 7zip=%s unrar=%s", tools.SevenZip, tools.Unrar)
	}

	return reg, nil
}
