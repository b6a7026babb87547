package studip

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ccollins476ad/studipdl/session"
	"github.com/ccollins476ad/studipdl/web"
	log "github.com/sirupsen/logrus"
)

// ErrNotJSON indicates that the API answered a metadata request with
// something other than JSON, typically an html login or error page.
var ErrNotJSON = errors.New("api response is not json")

// maxErrorPage bounds how much of an unexpected html reply is parsed.
const maxErrorPage = 1 << 20

// Client queries Stud.IP metadata endpoints through a session.
type Client struct {
	s *session.Session
}

func NewClient(s *session.Session) *Client {
	return &Client{
		s: s,
	}
}

// GetMessage requests the given api path and returns the decoded JSON object.
// It returns an error wrapping ErrNotJSON if the server sent anything other
// than JSON, and an error if the server reported a non-2xx status.
func (c *Client) GetMessage(ctx context.Context, path string) (Message, error) {
	rsp, err := c.s.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	if !rsp.IsJSON() {
		defer rsp.Body.Close()
		return nil, describeNonJSON(path, rsp)
	}

	if !rsp.OK() {
		return nil, fmt.Errorf("api error: path=%s status=%s body=%v", path, rsp.Status, rsp.JSON)
	}

	return AsMessage(rsp.JSON)
}

func describeNonJSON(path string, rsp *session.Response) error {
	var title string
	if rsp.MediaType == "text/html" {
		t, err := web.Title(io.LimitReader(rsp.Body, maxErrorPage))
		if err != nil {
			log.WithError(err).Debugf("failed to parse html reply: path=%s", path)
		}
		title = t
	}

	if title != "" {
		return fmt.Errorf("%w: path=%s status=%s content_type=%s title=%q",
			ErrNotJSON, path, rsp.Status, rsp.MediaType, title)
	}
	return fmt.Errorf("%w: path=%s status=%s content_type=%s",
		ErrNotJSON, path, rsp.Status, rsp.MediaType)
}

// Course looks up a single course by id.
func (c *Client) Course(ctx context.Context, courseID string) (Course, error) {
	m, err := c.GetMessage(ctx, CoursePath(courseID))
	if err != nil {
		return Course{}, err
	}

	cm, err := m.GetMessage("course")
	if err != nil {
		return Course{}, err
	}

	return parseCourse(cm)
}

// Semesters lists all semesters known to the installation.
func (c *Client) Semesters(ctx context.Context) ([]Semester, error) {
	m, err := c.GetMessage(ctx, SemestersPath())
	if err != nil {
		return nil, err
	}
	return parseSlice(m, "semesters", parseSemester)
}

// SemesterCourses lists the user's courses in the given semester.
func (c *Client) SemesterCourses(ctx context.Context, semesterID string) ([]Course, error) {
	m, err := c.GetMessage(ctx, SemesterCoursesPath(semesterID))
	if err != nil {
		return nil, err
	}
	return parseSlice(m, "courses", parseCourse)
}

// Folder lists the documents and subfolders of a course folder. An empty
// folderID denotes the course's root folder.
func (c *Client) Folder(ctx context.Context, courseID string, folderID string) (*Listing, error) {
	m, err := c.GetMessage(ctx, FolderPath(courseID, folderID))
	if err != nil {
		return nil, err
	}
	return ParseListing(m)
}
