package fetch

import (
	"context"
	"path/filepath"

	"github.com/ccollins476ad/studipdl/fileutil"
	"github.com/ccollins476ad/studipdl/studip"
	log "github.com/sirupsen/logrus"
)

// Lister lists the content of a course folder.
type Lister interface {
	Folder(ctx context.Context, courseID string, folderID string) (*studip.Listing, error)
}

// DocumentDownloader saves a single document to disk. It matches
// download.Downloader#Download.
type DocumentDownloader interface {
	Download(ctx context.Context, u string, filename string, displayName string, dir string) error
}

// Fetcher mirrors a course's folder tree to the local filesystem.
type Fetcher struct {
	l  Lister
	dl DocumentDownloader
}

func New(l Lister, dl DocumentDownloader) *Fetcher {
	return &Fetcher{
		l:  l,
		dl: dl,
	}
}

// frame is a folder waiting to be fetched.
type frame struct {
	folderID string
	dir      string
}

// Stats summarizes a fetch.
type Stats struct {
	Folders    int
	Downloaded int
	Skipped    int
}

// Fetch downloads every document of the given course folder into dir, then
// descends into each subfolder, using the subfolder's name as the new
// directory. An empty folderID denotes the course's root folder. Documents
// that already exist on disk are skipped unless force is true.
//
// Folders are processed sequentially, depth-first, in listing order. The
// folder hierarchy is assumed to be acyclic; there is no protection against a
// server that lists a folder as its own descendant.
func (f *Fetcher) Fetch(ctx context.Context, courseID string, folderID string, dir string, force bool) (Stats, error) {
	var stats Stats

	stack := []frame{{folderID: folderID, dir: dir}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		listing, err := f.l.Folder(ctx, courseID, cur.folderID)
		if err != nil {
			return stats, err
		}

		err = fileutil.MkdirP(cur.dir)
		if err != nil {
			return stats, err
		}
		stats.Folders++
		log.Infof("%s%c", cur.dir, filepath.Separator)

		for _, doc := range listing.Documents {
			filename := fileutil.SafeName(doc.Filename)
			if !force && fileutil.IsFile(filepath.Join(cur.dir, filename)) {
				log.Debugf("skipping existing file: %s", filepath.Join(cur.dir, filename))
				stats.Skipped++
				continue
			}

			log.Infof("%s", filename)
			err := f.dl.Download(ctx, studip.DownloadPath(doc.ID), filename, doc.Name, cur.dir)
			if err != nil {
				return stats, err
			}
			stats.Downloaded++
		}

		// Push in reverse so the first listed subfolder is popped first.
		for i := len(listing.Folders) - 1; i >= 0; i-- {
			sub := listing.Folders[i]
			stack = append(stack, frame{
				folderID: sub.ID,
				dir:      filepath.Join(cur.dir, fileutil.SafeName(sub.Name)),
			})
		}
	}

	return stats, nil
}
