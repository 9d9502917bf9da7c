package qpipe

import (
	"regexp"
	"strings"
)

// Module identifiers appear in two shapes:
//
//  1. URI-like, embedded in an event type:
//     /courses/MITx/6.002x/2013_Spring/modx/i4x://MITx/6.002x/problem/H9P3_Designing_a_Shock_Absorber/problem_check
//     URI root: i4x://MITx/6.002x/ category: problem
//     module id: H9P3_Designing_a_Shock_Absorber action: problem_check
//
//  2. Dash-separated legacy id:
//     i4x-MITx-6_002x-problem-H10P2_New_Impedances_10_1
//     becomes i4x://MITx/6.002x/problem/H10P2_New_Impedances/10/1/
var (
	uriParser = regexp.MustCompile(`(?P<root>i4x:/{1,2}[^/]*/[^/]*/)(?P<category>[^/]+)/(?P<id>[^/]+)/?(?P<action>[a-z_]+)?$`)
	idParser  = regexp.MustCompile(`(?P<root>i4x-[^-]*-[^-]*-)(?P<category>[^-]*)-(?P<id>.*)$`)
	idTail    = regexp.MustCompile(`(_[0-9]{1,2})+$`)

	hexHash      = regexp.MustCompile(`[a-f0-9]{32}`)
	rescueAnswer = regexp.MustCompile(`(choice_\d{1,2}) *$`)

	idTrailingUnderscore = regexp.MustCompile(`_$`)
	idEqualsSuffix       = regexp.MustCompile(`=.*$`)
	idDynamathSuffix     = regexp.MustCompile(`_dynamath`)
	idPercentSuffix      = regexp.MustCompile(`%.*`)
)

// ModuleURI is the parsed, immutable reference to a course content module.
// Construct one per raw identifier with NewModuleURI; a nil result means
// neither grammar matched and the event has no module context.
type ModuleURI struct {
	uri           string
	root          string
	moduleID      string
	category      string
	action        string
	numbers       string
	rescuedAnswer string
}

// NewModuleURI parses id into a ModuleURI. The URI grammar is tried when the
// string carries the URI marker, the legacy dash grammar otherwise. Returns
// nil when the identifier matches neither; this is expected for malformed
// input and is not an error.
func NewModuleURI(id string) *ModuleURI {
	m := &ModuleURI{}
	if strings.Contains(id, "i4x:") {
		if !m.parseURI(id) {
			return nil
		}
	} else if !m.parseID(id) {
		return nil
	}
	return m
}

func (m *ModuleURI) parseURI(id string) bool {
	match := uriParser.FindStringSubmatch(id)
	if match == nil {
		return false
	}
	m.root = match[1]
	m.category = match[2]
	m.moduleID = match[3]
	m.action = match[4]
	m.uri = m.root + m.category + "/" + m.moduleID + "/"
	return true
}

func (m *ModuleURI) parseID(id string) bool {
	match := idParser.FindStringSubmatch(id)
	if match == nil || match[1] == "" || match[2] == "" || match[3] == "" {
		return false
	}

	// 'i4x-MITx-6_002x-' becomes 'i4x://MITx/6.002x/'. Underscores are
	// rewritten to dots only within the generated root; actual course
	// identifiers are unlikely to contain underscores.
	root := strings.Replace(match[1], "-", "://", 1)
	root = strings.ReplaceAll(root, "-", "/")
	m.root = strings.ReplaceAll(root, "_", ".")

	m.category = match[2]
	m.moduleID = m.sanitize(match[3])

	// Video ids keep their full id; everything else has trailing question
	// numbers split off.
	if m.category == "video" {
		m.uri = m.root + m.category + "/" + m.moduleID + "/"
	} else {
		m.setQuestionNumbers()
		m.uri = m.root + m.category + "/" + m.moduleID + m.numbers + "/"
	}
	return true
}

// sanitize rescues a trailing choice_<n> answer token concatenated onto the
// module id, then strips the remaining trailing oddities.
func (m *ModuleURI) sanitize(s string) string {
	if match := rescueAnswer.FindStringSubmatch(s); match != nil {
		m.rescuedAnswer = match[1]
		s = strings.Replace(s, match[1], "", 1)
	}

	s = idTrailingUnderscore.ReplaceAllString(s, "")
	s = idEqualsSuffix.ReplaceAllString(s, "")
	s = idDynamathSuffix.ReplaceAllString(s, "")
	s = idPercentSuffix.ReplaceAllString(s, "")
	return s
}

// setQuestionNumbers moves a trailing run of _<digits> groups out of the
// module id into the ordering-number suffix, rendered with '/' separators.
func (m *ModuleURI) setQuestionNumbers() {
	tail := idTail.FindString(m.moduleID)
	if tail == "" {
		return
	}
	m.moduleID = m.moduleID[:len(m.moduleID)-len(tail)]
	m.numbers = strings.ReplaceAll(tail, "_", "/")
}

// URI returns the normalized module URI, e.g. i4x://MITx/6.002x/problem/Op_Amps/.
func (m *ModuleURI) URI() string { return m.uri }

// Root returns the scheme+org+course prefix of the URI.
func (m *ModuleURI) Root() string { return m.root }

// Category returns the module category (problem, video, ...). Never empty
// for a successfully parsed reference.
func (m *ModuleURI) Category() string { return m.category }

// ModuleID returns the sanitized module id, without the numeric suffix.
func (m *ModuleURI) ModuleID() string { return m.moduleID }

// Action returns the module action (problem_check, ...) when the URI grammar
// carried one.
func (m *ModuleURI) Action() string { return m.action }

// Numbers returns the '/'-joined trailing ordering numbers, e.g. "/10/1".
func (m *ModuleURI) Numbers() string { return m.numbers }

// RescuedAnswer returns an answer token rescued from the raw id, if any.
func (m *ModuleURI) RescuedAnswer() string { return m.rescuedAnswer }

// RelativeURI returns the URI with the root prefix removed.
func (m *ModuleURI) RelativeURI() string {
	return m.uri[len(m.root):]
}

// TopLevelURI returns the sequence-stripped URI used as the merge key in the
// problem hierarchy.
func (m *ModuleURI) TopLevelURI() string {
	return m.root + m.category + "/" + m.moduleID + "/"
}

// Name derives a display name from the module id by replacing underscores
// with spaces. Returns "" for opaque 32-hex hash ids, which carry no
// readable name.
func (m *ModuleURI) Name() string {
	if hexHash.MatchString(m.moduleID) {
		return ""
	}
	return strings.ReplaceAll(m.moduleID, "_", " ")
}

func (m *ModuleURI) String() string { return m.uri }
