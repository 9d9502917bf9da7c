package qpipe

import (
	"fmt"
	"strconv"
	"time"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

// Duration bounds, in minutes. A gap above the maximum is assumed to be a
// session gap rather than genuine dwell time and collapses to the default.
const (
	MaxDurationMinutes     = 60
	DefaultDurationMinutes = 2
)

// Event is a classified tracking event, ready for row projection. Exactly
// one variant is chosen at classification time and never changed afterward.
type Event interface {
	Raw() *RawEvent
	Get(key string) string
	URI() string
	ResourceDisplayName() string
	Duration() int
	SetDuration(end time.Time)
	Validity() int
	ObservedEventRow() moocdb.Row
}

// Submission is the projection contract for the event variants that feed the
// submission and assessment tables. Only ProblemInteraction and
// OpenResponseAssessment implement it; the submission manager gates on this
// assertion.
type Submission interface {
	Event
	// SubmissionStatus maps the event type to a submission status code:
	// 0 saved, 1 submitted, 2 failed, 3 reset, -1 not a submission.
	SubmissionStatus() int
	// Grade returns the three-way grade (incorrect 0, correct 1,
	// incomplete -1) and whether a recognized correctness value was present.
	Grade() (int, bool)
	SubmissionRow() moocdb.Row
	AssessmentRow() moocdb.Row
}

// BaseEvent carries the attributes common to every variant.
type BaseEvent struct {
	raw      *RawEvent
	duration int
	validity int
}

// NewBaseEvent wraps a polished raw event. Events start valid.
func NewBaseEvent(raw *RawEvent) *BaseEvent {
	return &BaseEvent{raw: raw, validity: 1}
}

// Raw exposes the underlying raw event.
func (e *BaseEvent) Raw() *RawEvent { return e.raw }

// Get returns the named raw field's string rendering.
func (e *BaseEvent) Get(key string) string { return e.raw.Get(key) }

// Duration returns the computed duration in minutes (0 until staged out).
func (e *BaseEvent) Duration() int { return e.duration }

// Validity returns the validity flag (1 trusted, 0 not).
func (e *BaseEvent) Validity() int { return e.validity }

// SetDuration computes the event's duration in whole minutes against the
// follow-up event's timestamp. An implausibly long gap collapses to the
// default; the default itself is never re-clamped.
func (e *BaseEvent) SetDuration(end time.Time) {
	if !e.raw.TimeOK {
		return
	}
	minutes := int(end.Sub(e.raw.Time).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	if minutes > MaxDurationMinutes {
		minutes = DefaultDurationMinutes
	}
	e.duration = minutes
}

// URI reconstructs the URI that triggered the event. With missing event data
// a proper reconstruction is impossible and an obvious placeholder prefix is
// used instead.
func (e *BaseEvent) URI() string {
	url := e.Get("page")
	if url == "" {
		url = "https://unknown/"
	}
	if e.raw.Module != nil {
		return url + e.raw.Module.RelativeURI()
	}
	return url
}

// ResourceDisplayName returns the display name for the event's resource,
// falling back to a name derived from the module id.
func (e *BaseEvent) ResourceDisplayName() string {
	if name := e.Get("resource_display_name"); name != "" {
		return name
	}
	if e.raw.Module != nil {
		return e.raw.Module.Name()
	}
	return ""
}

// ObservedEventRow projects the event onto the observed_events table.
// observed_event_id is not unique: one interaction may yield several rows.
func (e *BaseEvent) ObservedEventRow() moocdb.Row {
	return moocdb.Row{
		"observed_event_id":        e.Get("_id"),
		"user_id":                  e.Get("anon_screen_name"),
		"url_id":                   e.Get("resource_id"),
		"observed_event_timestamp": e.Get("time"),
		"observed_event_duration":  strconv.Itoa(e.duration),
		"observed_event_ip":        e.Get("ip"),
		"observed_event_os":        e.Get("os"),
		"observed_event_agent":     e.Get("agent"),
		"observed_event_type":      e.Get("event_type"),
		"validity":                 strconv.Itoa(e.validity),
	}
}

// submissionStatuses maps raw event types to submission status codes.
var submissionStatuses = map[string]int{
	"problem_check":             1,
	"problem_check_fail":        2,
	"problem_graded":            1,
	"i4x_problem_problem_check": 1,
	"save_problem_check":        1,
	"save_problem_success":      0,
	"problem_save":              0,
	"i4x_problem_problem_save":  0,
	"save_problem_check_fail":   2,
	"reset_problem":             3,
	"reset_problem_fail":        2,
	"problem_reset":             3,
	"save_problem_fail":         2,
}

// grades maps correctness values to grades. incomplete is undocumented in
// the tracking log reference but appears in real files; it is kept distinct
// from incorrect.
var grades = map[string]int{
	"incorrect":  0,
	"correct":    1,
	"incomplete": -1,
}

// ProblemInteraction covers problem interaction events (problem_check,
// problem_save, showanswer, reset_problem, ...) and generates the rows of
// the submission-mode tables.
type ProblemInteraction struct {
	*BaseEvent
}

// NewProblemInteraction builds a ProblemInteraction from a polished event.
func NewProblemInteraction(raw *RawEvent) *ProblemInteraction {
	return &ProblemInteraction{BaseEvent: NewBaseEvent(raw)}
}

// SubmissionStatus deduces from the event type whether an answer is being
// submitted, saved, reset, or failed.
func (e *ProblemInteraction) SubmissionStatus() int {
	status, ok := submissionStatuses[e.Get("event_type")]
	if !ok {
		return -1
	}
	return status
}

// Grade resolves the correctness field through the fixed grade table. An
// absent or unrecognized correctness yields no grade.
func (e *ProblemInteraction) Grade() (int, bool) {
	correctness := e.Get("correctness")
	if correctness == "" {
		return 0, false
	}
	grade, ok := grades[correctness]
	if !ok {
		return 0, false
	}
	return grade, true
}

// SubmissionRow projects the event onto the submissions table. The row is
// marked invalid when the attempt count does not parse as a non-negative
// integer or the status is not "submitted"; the row is still emitted, and
// downstream curation filters invalid rows.
func (e *ProblemInteraction) SubmissionRow() moocdb.Row {
	attempts, err := strconv.Atoi(e.Get("attempts"))
	if err != nil {
		attempts = -1
	}
	isSubmitted := e.SubmissionStatus()
	if attempts < 0 || isSubmitted < 1 {
		e.validity = 0
	}

	return moocdb.Row{
		"submission_id":             e.Get("_id"),
		"user_id":                   e.Get("anon_screen_name"),
		"problem_id":                e.Get("problem_id"),
		"submission_timestamp":      e.Get("time"),
		"submission_attempt_number": e.Get("attempts"),
		"submission_ip":             e.Get("ip"),
		"submission_os":             e.Get("os"),
		"submission_agent":          e.Get("agent"),
		"submission_answer":         e.Get("answer"),
		"submission_is_submitted":   strconv.Itoa(isSubmitted),
		"validity":                  strconv.Itoa(e.validity),
	}
}

// AssessmentRow projects the event onto the assessments table. Each event
// records an answer to one question, so the grade is the three-way value
// from the correctness table. Callers only invoke this when Grade reports a
// recognized correctness.
func (e *ProblemInteraction) AssessmentRow() moocdb.Row {
	grade, _ := e.Grade()
	return moocdb.Row{
		"assessment_id":        e.Get("_id"),
		"submission_id":        e.Get("_id"),
		"assessment_grade":     strconv.Itoa(grade),
		"assessment_grader_id": "automatic",
		"assessment_timestamp": e.Get("time"),
	}
}

// OpenResponseAssessment covers open-response events (oe_*,
// combinedopenended, rubric_select, grading variants). Open response
// submissions are not supported: the status is permanently "not a
// submission" and no grade is ever reported. This is a scope limitation,
// not a bug.
type OpenResponseAssessment struct {
	*BaseEvent
}

// NewOpenResponseAssessment builds an OpenResponseAssessment from a polished
// event.
func NewOpenResponseAssessment(raw *RawEvent) *OpenResponseAssessment {
	return &OpenResponseAssessment{BaseEvent: NewBaseEvent(raw)}
}

// SubmissionStatus always reports "not a submission".
func (e *OpenResponseAssessment) SubmissionStatus() int { return -1 }

// Grade never reports a grade.
func (e *OpenResponseAssessment) Grade() (int, bool) { return 0, false }

// SubmissionRow is never reached: the status gate filters these events out
// before row projection.
func (e *OpenResponseAssessment) SubmissionRow() moocdb.Row { return nil }

// AssessmentRow is never reached: the grade gate filters these events out
// before row projection.
func (e *OpenResponseAssessment) AssessmentRow() moocdb.Row { return nil }

// VideoInteraction covers video interaction events (play_video, pause_video,
// seek_video, speed_change_video, transcript and fullscreen toggles).
type VideoInteraction struct {
	*BaseEvent
}

// NewVideoInteraction builds a VideoInteraction from a polished event.
func NewVideoInteraction(raw *RawEvent) *VideoInteraction {
	return &VideoInteraction{BaseEvent: NewBaseEvent(raw)}
}

// VideoCode returns the video code, falling back to the transcript code.
func (e *VideoInteraction) VideoCode() string {
	if code := e.Get("video_code"); code != "" {
		return code
	}
	return e.Get("transcript_code")
}

// VideoID resolves the video identifier according to the platform spec:
// MITx derives it from the module URI, HKUSTx uses the raw video_id field.
func (e *VideoInteraction) VideoID(spec string) (string, error) {
	switch spec {
	case "MITx":
		if e.raw.Module == nil {
			return "", fmt.Errorf("no module reference to derive video id from")
		}
		return e.raw.Module.URI(), nil
	case "HKUSTx":
		return e.Get("video_id"), nil
	default:
		return "", fmt.Errorf("unknown video id spec %q", spec)
	}
}

// URI reconstructs the URI pointing to the video that triggered the event.
// Without a video code the URI cannot be reconstructed and "" is returned.
func (e *VideoInteraction) URI() string {
	code := e.VideoCode()
	if code == "" {
		return ""
	}
	return e.BaseEvent.URI() + "_" + code
}

// PdfInteraction covers textbook events (event type book). The page number
// tracking is delegated to the event's CourseURL.
type PdfInteraction struct {
	*BaseEvent
}

// NewPdfInteraction builds a PdfInteraction, recording the goto destination
// as the URL's page number.
func NewPdfInteraction(raw *RawEvent) *PdfInteraction {
	e := &PdfInteraction{BaseEvent: NewBaseEvent(raw)}
	if raw.Page != nil {
		raw.Page.SetPage(raw.Get("goto_dest"))
	}
	return e
}

// PageNumber returns the book page tracked on the event's URL.
func (e *PdfInteraction) PageNumber() string {
	if e.raw.Page == nil {
		return ""
	}
	return e.raw.Page.Page
}

// Navigational covers sequence navigation events (seq_goto, seq_prev,
// seq_next).
type Navigational struct {
	*BaseEvent

	SequenceID string
	GotoFrom   string
	GotoDest   string
}

// NewNavigational builds a Navigational event, capturing the sequence
// navigation fields.
func NewNavigational(raw *RawEvent) *Navigational {
	return &Navigational{
		BaseEvent:  NewBaseEvent(raw),
		SequenceID: raw.Get("sequence_id"),
		GotoFrom:   raw.Get("goto_from"),
		GotoDest:   raw.Get("goto_dest"),
	}
}

// URI returns the page URL only: the module relative path must not be
// appended for navigational events.
func (e *Navigational) URI() string {
	return e.Get("page")
}
