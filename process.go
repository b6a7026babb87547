package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ccollins476ad/studipdl/download"
	"github.com/ccollins476ad/studipdl/fetch"
	"github.com/ccollins476ad/studipdl/fileutil"
	"github.com/ccollins476ad/studipdl/session"
	"github.com/ccollins476ad/studipdl/studip"
	"github.com/ccollins476ad/studipdl/unpack"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// env holds the collaborators of a run that tests replace.
type env struct {
	tools    unpack.Tools
	progress bool // Show download progress bars on stderr.
}

func defaultEnv() env {
	fd := os.Stderr.Fd()
	return env{
		tools:    unpack.DefaultTools,
		progress: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

// run authenticates, lets the user pick a course and downloads all of its
// files.
func run(ctx context.Context, cfg *Config, p *prompter) error {
	return runWith(ctx, cfg, p, defaultEnv())
}

func runWith(ctx context.Context, cfg *Config, p *prompter, e env) error {
	reg, err := unpack.Init(ctx, e.tools)
	if err != nil {
		return err
	}
	exts := reg.Extensions()
	log.Debugf("unpack extensions: %v", exts.Sorted())

	username, password, err := credentials(cfg, p)
	if err != nil {
		return err
	}

	s := session.New(cfg.Host)
	s.SetHeaders(session.BasicAuth(username, password))
	_, err = s.Get(ctx, "")
	if err != nil {
		return err
	}
	client := studip.NewClient(s)

	course, err := selectCourse(ctx, client, p, cfg.CourseID)
	if err != nil {
		return err
	}
	log.Debugf("selected course: id=%s title=%q", course.ID, course.Title)

	force, err := overwrite(cfg, p)
	if err != nil {
		return err
	}

	dir := cfg.DestDir
	if dir == "" {
		dir = courseDir(course)
	}

	var opts []download.Option
	if e.progress && !cfg.Verbose {
		opts = append(opts, download.WithProgress(os.Stderr))
	}
	dl := download.New(s, reg, exts, opts...)

	stats, err := fetch.New(client, dl).Fetch(ctx, course.ID, "", dir, force)
	if err != nil {
		return err
	}

	log.Infof("done: dir=%s folders=%d downloaded=%d skipped=%d",
		dir, stats.Folders, stats.Downloaded, stats.Skipped)
	return nil
}

// credentials returns the configured username and password, prompting for
// whatever is missing.
func credentials(cfg *Config, p *prompter) (string, string, error) {
	username := cfg.Username
	if username == "" {
		u, err := p.ask("Username: ")
		if err != nil {
			return "", "", err
		}
		username = u
	}

	password := cfg.Password
	if password == "" {
		pw, err := p.askPassword("Password: ")
		if err != nil {
			return "", "", err
		}
		password = pw
	}

	return username, password, nil
}

// selectCourse resolves the course to download: directly by id (or course
// url) if one is configured or entered, otherwise by letting the user pick a
// semester and then one of its courses.
func selectCourse(ctx context.Context, c *studip.Client, p *prompter, input string) (studip.Course, error) {
	if input == "" {
		answer, err := p.ask("Course id or url? Otherwise just press enter. --> ")
		if err != nil {
			return studip.Course{}, err
		}
		input = answer
	}

	if courseID := studip.CourseIDFromInput(input); courseID != "" {
		return c.Course(ctx, courseID)
	}

	semesters, err := c.Semesters(ctx)
	if err != nil {
		return studip.Course{}, err
	}
	if len(semesters) == 0 {
		return studip.Course{}, fmt.Errorf("no semesters available")
	}

	var titles []string
	for _, sem := range semesters {
		titles = append(titles, sem.Title)
	}
	fmt.Fprintln(p.out, renderChoices("Semester", titles))

	idx, err := p.askIndex("semester index: ", len(semesters))
	if err != nil {
		return studip.Course{}, err
	}

	courses, err := c.SemesterCourses(ctx, semesters[idx].ID)
	if err != nil {
		return studip.Course{}, err
	}
	if len(courses) == 0 {
		return studip.Course{}, fmt.Errorf("no courses in semester %q", semesters[idx].Title)
	}

	titles = titles[:0]
	for _, course := range courses {
		titles = append(titles, course.Title)
	}
	fmt.Fprintln(p.out, renderChoices("Course", titles))

	idx, err = p.askIndex("course index: ", len(courses))
	if err != nil {
		return studip.Course{}, err
	}

	return courses[idx], nil
}

// overwrite decides whether existing files are replaced, asking unless the
// configuration already says.
func overwrite(cfg *Config, p *prompter) (bool, error) {
	if cfg.Force {
		return true, nil
	}
	if cfg.Keep {
		return false, nil
	}

	answer, err := p.ask("Overwrite existing files (if any)? [y], [n] ")
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

// courseDir names the default download directory after the course.
func courseDir(course studip.Course) string {
	if course.Title == "" {
		return fileutil.SafeName(course.ID)
	}
	return fileutil.SafeName(course.Title)
}
