package qpipe

import (
	"time"
)

// timeLayout is how parsed timestamps are rendered back into output rows.
const timeLayout = "2006-01-02 15:04:05.999999"

// Location is one entry of the per-user location history: the last known
// course URL and the timestamp of the event that established it.
type Location struct {
	URL  *CourseURL
	Time time.Time
}

// RawEvent is one tracking event in flight through the formatter stages.
// Plain string fields live in the field map and are mutated in place during
// a single event's classification lifecycle; the structured page, module,
// timestamp and inherited-location values are carried as typed fields.
type RawEvent struct {
	// Page is the normalized page URL, set by generic formatting.
	Page *CourseURL
	// Module is the parsed module reference, when any identifier field
	// yielded one.
	Module *ModuleURI
	// Time is the parsed event timestamp; TimeOK reports whether any of the
	// accepted formats matched.
	Time   time.Time
	TimeOK bool
	// CurrentLocation is the user's tracked location, attached during the
	// location-inheritance stage when fresh enough to consult.
	CurrentLocation *Location
	// Inherited records which location component was inherited, if any
	// ("url" or "seqnum").
	Inherited string

	fields map[string]string
}

// NewRawEvent wraps the given field map. The event takes ownership of the map.
func NewRawEvent(fields map[string]string) *RawEvent {
	if fields == nil {
		fields = make(map[string]string)
	}
	return &RawEvent{fields: fields}
}

// Get returns the named field's string rendering. The page and time fields
// resolve through their structured values once those are set.
func (e *RawEvent) Get(key string) string {
	switch key {
	case "page":
		if e.Page != nil {
			return e.Page.String()
		}
	case "time":
		if e.TimeOK {
			return e.Time.Format(timeLayout)
		}
	}
	return e.fields[key]
}

// Set overwrites the named field.
func (e *RawEvent) Set(key, value string) {
	e.fields[key] = value
}

// SetIfValue sets the named field only when value is non-empty, matching the
// fill-only-when-meaningful contract used throughout the pipeline.
func (e *RawEvent) SetIfValue(key, value string) {
	if value == "" {
		return
	}
	e.fields[key] = value
}

// PageString renders the page field for pattern matching: the structured
// URL's string form (with the unknown-sequence sentinel) once normalized,
// the raw field before that.
func (e *RawEvent) PageString() string {
	return e.Get("page")
}

// EventType returns the raw event type string.
func (e *RawEvent) EventType() string {
	return e.fields["event_type"]
}
