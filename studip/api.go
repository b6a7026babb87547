package studip

import (
	"fmt"
)

const (
	// DefaultBaseURL is the Stud.IP installation queried when no host is
	// configured.
	DefaultBaseURL = "https://studip.uos.de"

	// APIPath is the path template of every restipplugin endpoint.
	APIPath = "/plugins.php/restipplugin/api/%s"
)

func apiPath(endpoint string) string {
	return fmt.Sprintf(APIPath, endpoint)
}

// FolderPath returns the request path listing a course folder. An empty
// folderID denotes the course's root folder.
func FolderPath(courseID string, folderID string) string {
	endpoint := "documents/" + courseID + "/folder"
	if folderID != "" {
		endpoint += "/" + folderID
	}
	return apiPath(endpoint)
}

// DownloadPath returns the request path of a document's raw content.
func DownloadPath(documentID string) string {
	return apiPath("documents/" + documentID + "/download")
}

// CoursePath returns the request path of a single course.
func CoursePath(courseID string) string {
	return apiPath("courses/" + courseID)
}

// SemestersPath returns the request path listing all semesters.
func SemestersPath() string {
	return apiPath("courses/semester")
}

// SemesterCoursesPath returns the request path listing the user's courses in
// the given semester.
func SemesterCoursesPath(semesterID string) string {
	return apiPath("courses/semester/" + semesterID)
}
