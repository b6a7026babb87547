package studip

import (
	"fmt"
)

// Course identifies a downloadable unit.
type Course struct {
	ID    string
	Title string
}

// Semester is used to filter the course listing.
type Semester struct {
	ID    string
	Title string
}

// Document is a single downloadable file. Filename is the name the raw file is
// stored under; Name is the human display name.
type Document struct {
	ID       string
	Filename string
	Name     string
}

// Folder is a container of documents and subfolders within a course.
type Folder struct {
	ID   string
	Name string
}

// Listing is the content of a single course folder.
type Listing struct {
	Documents []Document
	Folders   []Folder
}

func parseCourse(m Message) (Course, error) {
	id, err := m.RequireString("course_id")
	if err != nil {
		return Course{}, err
	}
	return Course{ID: id, Title: m.GetString("title")}, nil
}

func parseSemester(m Message) (Semester, error) {
	id, err := m.RequireString("semester_id")
	if err != nil {
		return Semester{}, err
	}
	return Semester{ID: id, Title: m.GetString("title")}, nil
}

func parseDocument(m Message) (Document, error) {
	id, err := m.RequireString("document_id")
	if err != nil {
		return Document{}, err
	}
	filename, err := m.RequireString("filename")
	if err != nil {
		return Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	return Document{ID: id, Filename: filename, Name: m.GetString("name")}, nil
}

func parseFolder(m Message) (Folder, error) {
	id, err := m.RequireString("folder_id")
	if err != nil {
		return Folder{}, err
	}
	return Folder{ID: id, Name: m.GetString("name")}, nil
}

// parseSlice applies fn to each element of the message slice stored under key.
func parseSlice[T any](m Message, key string, fn func(Message) (T, error)) ([]T, error) {
	ms, err := m.GetSliceOfMessages(key)
	if err != nil {
		return nil, err
	}

	var out []T
	for i, sub := range ms {
		v, err := fn(sub)
		if err != nil {
			return nil, fmt.Errorf("key=%s,idx=%d: %w", key, i, err)
		}
		out = append(out, v)
	}

	return out, nil
}

// ParseListing converts a folder listing response into a Listing.
func ParseListing(m Message) (*Listing, error) {
	docs, err := parseSlice(m, "documents", parseDocument)
	if err != nil {
		return nil, err
	}

	folders, err := parseSlice(m, "folders", parseFolder)
	if err != nil {
		return nil, err
	}

	return &Listing{
		Documents: docs,
		Folders:   folders,
	}, nil
}
