// Package qpipe implements the event normalization and hierarchy
// reconstruction pipeline: raw tracking events are classified into typed
// event variants, repaired against per-user location state, and folded into
// resource/problem hierarchies and the MOOCdb row tables.
package qpipe

import (
	"regexp"
	"strings"
)

// DefaultDomain is prepended to relative course URLs.
const DefaultDomain = "https://www.edx.org"

var (
	isURL = regexp.MustCompile(`^(/|http)`)

	// Cleanup patterns, applied in order during sanitization.
	doubleSlash      = regexp.MustCompile(`(^|[^:])//.*$`)
	urlParameters    = regexp.MustCompile(`((undefined)?\?.*$)`)
	urlAnchor        = regexp.MustCompile(`(#|\+|;|\$|\[).*$`)
	trailingModule   = regexp.MustCompile(`((answer|solution)[^/]*$)`)
	coursewareParser = regexp.MustCompile(`courseware/(?P<unit>[^/]+)?/?(?P<subunit>[^/]+)?/?(?P<seq>\d{1,2})?`)
	bookParser       = regexp.MustCompile(`book/(?P<booknum>\d{1,2})/(?P<page>\d{1,4})?`)
)

// CourseURL is the canonical form of a course page URL, exposing the
// unit/sub-unit/sequence components of courseware pages and the
// book-number/page components of textbook pages. The structured fields and
// the embedded URL string are kept consistent through every mutation.
type CourseURL struct {
	Domain  string
	Unit    string
	SubUnit string
	Seq     string
	BookNum string
	Page    string

	url string
}

// NewCourseURL sanitizes raw and parses its path components. A string that
// does not look like a URL yields a CourseURL with every field empty;
// callers treat that as "no URL".
func NewCourseURL(raw string) *CourseURL {
	u := &CourseURL{}
	u.url = sanitizeURL(raw)
	if u.url == "" {
		return u
	}

	// At most one of the two forms applies.
	if strings.Contains(u.url, "courseware") {
		u.parseCourseware()
	} else if strings.Contains(u.url, "book") {
		u.parseBook()
	}

	u.SetDomain("")
	return u
}

func sanitizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !isURL.MatchString(raw) {
		return ""
	}

	// Order matters: a stray non-scheme double slash truncates first, then
	// query parameters and anchors, then a trailing answer/solution segment.
	raw = doubleSlash.ReplaceAllString(raw, "$1")
	raw = urlParameters.ReplaceAllString(raw, "")
	raw = urlAnchor.ReplaceAllString(raw, "")
	raw = trailingModule.ReplaceAllString(raw, "")
	if raw != "" && !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw
}

func (u *CourseURL) parseCourseware() {
	match := coursewareParser.FindStringSubmatch(u.url)
	if match == nil {
		return
	}
	u.Unit = match[1]
	u.SubUnit = match[2]
	u.Seq = match[3]
}

func (u *CourseURL) parseBook() {
	match := bookParser.FindStringSubmatch(u.url)
	if match == nil {
		return
	}
	u.BookNum = match[1]
	u.Page = match[2]
}

// SetDomain prepends domain (DefaultDomain when empty) to relative URLs.
// A relative sub-unit URL with no sequence number lands on sequence 1.
func (u *CourseURL) SetDomain(domain string) {
	if u.url == "" || u.url[0] != '/' {
		return
	}
	if domain == "" {
		domain = DefaultDomain
	}
	u.url = domain + u.url
	u.Domain = domain
	if u.SubUnit != "" && u.Seq == "" {
		u.SetSeq("1")
	}
}

// SetSeq replaces the URL's sequence number, rewriting both the structured
// field and the embedded token. No-op when the URL has no sub-unit, since a
// sequence number only makes sense at sub-unit granularity.
func (u *CourseURL) SetSeq(seq string) {
	if u.SubUnit == "" {
		return
	}
	if u.Seq != "" {
		u.url = strings.ReplaceAll(u.url, "/"+u.Seq+"/", "/"+seq+"/")
	} else {
		u.url = strings.ReplaceAll(u.url, "/"+u.SubUnit+"/", "/"+u.SubUnit+"/"+seq+"/")
	}
	u.Seq = seq
}

// SetPage replaces the book page number in the same manner as SetSeq.
// No-op when the URL has no book number or page is empty.
func (u *CourseURL) SetPage(page string) {
	if u.BookNum == "" || page == "" {
		return
	}
	if u.Page != "" {
		u.url = strings.ReplaceAll(u.url, "/"+u.BookNum+"/"+u.Page+"/", "/"+u.BookNum+"/"+page+"/")
	} else {
		u.url = strings.ReplaceAll(u.url, "/"+u.BookNum+"/", "/"+u.BookNum+"/"+page+"/")
	}
	u.Page = page
}

// URL returns the canonical URL string without the unknown-sequence sentinel.
func (u *CourseURL) URL() string {
	return u.url
}

// String renders the canonical URL. At sub-unit granularity a missing
// sequence number is rendered as a trailing "_/" sentinel so downstream
// consumers can tell "unknown sequence" from "no sequence".
func (u *CourseURL) String() string {
	if u.SubUnit != "" && u.Seq == "" {
		return u.url + "_/"
	}
	return u.url
}

// BaseURL strips the sequence number from the canonical URL, leaving the
// sub-unit level prefix.
func (u *CourseURL) BaseURL() string {
	if u.SubUnit == "" || u.Seq == "" {
		return u.url
	}
	return strings.ReplaceAll(u.url, "/"+u.Seq+"/", "/")
}

// Copy returns an independent copy. Location history must never alias an
// event's own URL, since the event may mutate it afterwards.
func (u *CourseURL) Copy() *CourseURL {
	c := *u
	return &c
}
