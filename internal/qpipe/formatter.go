package qpipe

import (
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/agent"
	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

// Rule lists are ordered (pattern, handler) slices with first-match-wins
// semantics. The ordering is a load-bearing tie-break and must not be
// converted to a map.
type formatRule struct {
	pattern *regexp.Regexp
	apply   func(*RawEvent)
}

type updateRule struct {
	pattern *regexp.Regexp
	apply   func(*RawEvent) *CourseURL
}

type eventRule struct {
	pattern  *regexp.Regexp
	newEvent func(*RawEvent) Event
}

// EventFormatter cleans up a raw event and instantiates the matching Event
// variant. One instance per course run; it owns the per-user location state
// and the urls/os/agent dictionary tables.
type EventFormatter struct {
	engaged    *EngagedUsers
	urls       *moocdb.DictionaryTable
	agents     *moocdb.DictionaryTable
	osTable    *moocdb.DictionaryTable
	classifier agent.Classifier

	timeLayouts   []string
	badTimestamps int
	log           *zap.SugaredLogger

	passFilter  []*regexp.Regexp
	generic     []func(*RawEvent)
	specific    []formatRule
	inherit     []formatRule
	update      []updateRule
	instantiate []eventRule
}

// NewEventFormatter wires the formatter against db's dictionary tables.
// timeLayouts is the ordered list of accepted timestamp layouts.
func NewEventFormatter(db *moocdb.MOOCdb, classifier agent.Classifier, timeLayouts []string, log *zap.SugaredLogger) *EventFormatter {
	f := &EventFormatter{
		engaged:     NewEngagedUsers(),
		urls:        moocdb.NewDictionaryTable(db, "urls"),
		agents:      moocdb.NewDictionaryTable(db, "agent"),
		osTable:     moocdb.NewDictionaryTable(db, "os"),
		classifier:  classifier,
		timeLayouts: timeLayouts,
		log:         log,
	}

	// Event types handled elsewhere or carrying no usable information.
	f.passFilter = []*regexp.Regexp{
		regexp.MustCompile(`sequential`),
		regexp.MustCompile(`page_close`),
	}

	f.generic = []func(*RawEvent){
		f.setAgentOS,
		formatURL,
		f.parseTimestamp,
		parseProblemID,
		parseVideoID,
		parseQuestionLocation,
	}

	f.specific = []formatRule{
		{regexp.MustCompile(`seq_`), formatSeq},
		{regexp.MustCompile(`i4x:/`), formatI4x},
		{regexp.MustCompile(`^/[^:]+`), formatURLChange},
	}

	f.inherit = []formatRule{
		{regexp.MustCompile(`^$`), inheritURL},
		{regexp.MustCompile(`courseware/[^/]+/[^/]+`), inheritSeqNum},
	}

	f.update = []updateRule{
		{regexp.MustCompile(`page_close`), closePreviousPage},
		{regexp.MustCompile(`seq_`), updateSeq},
		{regexp.MustCompile(`.*`), simpleUpdate},
	}

	f.instantiate = []eventRule{
		{regexp.MustCompile(`problem|showanswer`), func(r *RawEvent) Event { return NewProblemInteraction(r) }},
		{regexp.MustCompile(`video|transcript|fullscreen`), func(r *RawEvent) Event { return NewVideoInteraction(r) }},
		{regexp.MustCompile(`book`), func(r *RawEvent) Event { return NewPdfInteraction(r) }},
		{regexp.MustCompile(`oe_|combinedopenended|rubric_select|grading`), func(r *RawEvent) Event { return NewOpenResponseAssessment(r) }},
		{regexp.MustCompile(`seq_`), func(r *RawEvent) Event { return NewNavigational(r) }},
		{regexp.MustCompile(`.*`), func(r *RawEvent) Event { return NewBaseEvent(r) }},
	}

	return f
}

// PassFilter reports whether the event should be processed further. Event
// types matching the denylist are dropped before any formatting.
func (f *EventFormatter) PassFilter(raw *RawEvent) bool {
	for _, re := range f.passFilter {
		if re.MatchString(raw.EventType()) {
			return false
		}
	}
	return true
}

// Polish applies every formatting stage in fixed order and instantiates the
// matching event variant. Any stage may find fields missing; the policy
// throughout is to degrade gracefully and keep going.
func (f *EventFormatter) Polish(raw *RawEvent) Event {
	f.doGenericFormatting(raw)
	f.doSpecificFormatting(raw)
	f.inheritLocation(raw)
	f.updateLocation(raw)
	f.recordEventMetadata(raw)
	return f.instantiateEvent(raw)
}

func (f *EventFormatter) doGenericFormatting(raw *RawEvent) {
	for _, apply := range f.generic {
		apply(raw)
	}
}

func (f *EventFormatter) doSpecificFormatting(raw *RawEvent) {
	for _, rule := range f.specific {
		if rule.pattern.MatchString(raw.EventType()) {
			rule.apply(raw)
			return
		}
	}
}

// inheritLocation repairs missing location data from the user's tracked
// location, when one exists and is less than an hour old.
func (f *EventFormatter) inheritLocation(raw *RawEvent) {
	location := f.engaged.Location(raw.Get("anon_screen_name"))
	if location == nil || location.URL == nil || location.URL.String() == "" {
		return
	}
	if !raw.TimeOK {
		return
	}

	gap := raw.Time.Sub(location.Time)
	if gap < 0 || gap >= locationStaleness {
		return
	}

	raw.CurrentLocation = location
	for _, rule := range f.inherit {
		if rule.pattern.MatchString(raw.PageString()) {
			rule.apply(raw)
			return
		}
	}
}

// updateLocation resolves the user's new location from the event. An
// unresolvable location removes the user from the engaged-users map.
func (f *EventFormatter) updateLocation(raw *RawEvent) {
	var newLocation *CourseURL
	for _, rule := range f.update {
		if rule.pattern.MatchString(raw.EventType()) {
			newLocation = rule.apply(raw)
			break
		}
	}

	user := raw.Get("anon_screen_name")
	if newLocation != nil {
		f.engaged.Update(user, newLocation.Copy(), raw.Time)
	} else {
		f.engaged.Remove(user)
	}
}

// recordEventMetadata resolves the page URL, OS, and agent strings to their
// dictionary-table ids, replacing the field values in place.
func (f *EventFormatter) recordEventMetadata(raw *RawEvent) {
	raw.Set("url_id", strconv.Itoa(f.urls.Insert(raw.Get("page"))))
	raw.Set("os", strconv.Itoa(f.osTable.Insert(raw.Get("os"))))
	raw.Set("agent", strconv.Itoa(f.agents.Insert(raw.Get("agent"))))
}

// instantiateEvent constructs the event variant selected by the first
// matching event-type pattern. The catch-all rule guarantees a match, so
// classification never fails outright; a data-poor base event is the
// fallback.
func (f *EventFormatter) instantiateEvent(raw *RawEvent) Event {
	for _, rule := range f.instantiate {
		if rule.pattern.MatchString(raw.EventType()) {
			return rule.newEvent(raw)
		}
	}
	return NewBaseEvent(raw)
}

// Engaged exposes the location tracker, mainly for tests.
func (f *EventFormatter) Engaged() *EngagedUsers { return f.engaged }

// BadTimestamps returns the number of events whose timestamp matched none of
// the accepted layouts.
func (f *EventFormatter) BadTimestamps() int { return f.badTimestamps }

// Serialize writes out the urls, os, and agent dictionary tables.
func (f *EventFormatter) Serialize() error {
	if err := f.urls.Serialize(); err != nil {
		return err
	}
	if err := f.osTable.Serialize(); err != nil {
		return err
	}
	return f.agents.Serialize()
}
