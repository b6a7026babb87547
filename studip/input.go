package studip

import (
	"net/url"
	"strings"

	"mvdan.cc/xurls/v2"
)

// CourseIDFromInput interprets user input as a course id. Besides a bare id,
// it accepts any text containing a Stud.IP course url, in which case the id is
// taken from the url's "cid" query parameter. It returns the empty string for
// blank input.
func CourseIDFromInput(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	rx := xurls.Strict()
	for _, link := range rx.FindAllString(input, -1) {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		if cid := u.Query().Get("cid"); cid != "" {
			return cid
		}
	}

	return input
}
