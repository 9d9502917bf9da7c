// Package agent classifies raw HTTP user-agent strings into an (OS, agent)
// pair for the os and agent dictionary tables.
package agent

import (
	"strings"

	"github.com/mileusna/useragent"
)

// Classifier turns a raw user-agent header into an operating system name and
// an agent description. Implementations must tolerate arbitrary garbage input.
type Classifier interface {
	Detect(rawAgent string) (os string, agent string)
}

// Unknown is reported when a component of the user-agent string cannot be
// identified.
const Unknown = "Unknown"

// UAClassifier is the default Classifier, built on user-agent parsing from
// github.com/mileusna/useragent.
type UAClassifier struct{}

// NewClassifier returns the default user-agent classifier.
func NewClassifier() UAClassifier {
	return UAClassifier{}
}

// Detect parses rawAgent and returns ("<OS> <version>", "<browser> <version>")
// with Unknown substituted for unidentifiable components.
func (UAClassifier) Detect(rawAgent string) (string, string) {
	ua := useragent.Parse(rawAgent)

	osName := joinNonEmpty(ua.OS, ua.OSVersion)
	if osName == "" {
		osName = Unknown
	}
	agentName := joinNonEmpty(ua.Name, ua.Version)
	// The parser echoes an unrecognized token back as the name. A name with
	// no version, no OS and no bot marker is such an echo, not a browser.
	if agentName == "" || (ua.OS == "" && ua.Version == "" && !ua.Bot) {
		agentName = Unknown
	}
	return osName, agentName
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
