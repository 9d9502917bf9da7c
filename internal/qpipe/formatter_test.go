package qpipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

// stubClassifier keeps user-agent parsing out of formatter tests.
type stubClassifier struct{}

func (stubClassifier) Detect(string) (string, string) { return "TestOS", "TestAgent" }

var testTimeLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

func newTestFormatter(t *testing.T) *EventFormatter {
	t.Helper()
	db, err := moocdb.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewEventFormatter(db, stubClassifier{}, testTimeLayouts, zap.NewNop().Sugar())
}

func TestPassFilter(t *testing.T) {
	t.Parallel()
	f := newTestFormatter(t)

	tests := []struct {
		eventType string
		want      bool
	}{
		{"page_close", false},
		{"sequential", false},
		{"problem_check", true},
		{"seq_goto", true},
		{"play_video", true},
	}
	for _, tt := range tests {
		raw := NewRawEvent(map[string]string{"event_type": tt.eventType})
		assert.Equal(t, tt.want, f.PassFilter(raw), "event_type: %s", tt.eventType)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	f := newTestFormatter(t)

	raw := NewRawEvent(map[string]string{"time": "2013-09-11T13:25:44.876729+00:00"})
	f.parseTimestamp(raw)

	require.True(t, raw.TimeOK)
	want, err := time.Parse(testTimeLayouts[0], "2013-09-11T13:25:44.876729")
	require.NoError(t, err)
	assert.True(t, raw.Time.Equal(want))
	assert.Zero(t, f.BadTimestamps())
}

func TestParseTimestampCountsFailures(t *testing.T) {
	t.Parallel()
	f := newTestFormatter(t)

	raw := NewRawEvent(map[string]string{"time": "11/09/2013"})
	f.parseTimestamp(raw)

	assert.False(t, raw.TimeOK)
	assert.Equal(t, 1, f.BadTimestamps())
}

func TestParseProblemIDPrefersAnswerIdentifier(t *testing.T) {
	t.Parallel()

	raw := NewRawEvent(map[string]string{
		"answer_identifier": "i4x-MITx-6_002x-problem-From_Answer_2_1",
		"problem_id":        "i4x-MITx-6_002x-problem-From_Problem",
	})
	parseProblemID(raw)

	require.NotNil(t, raw.Module)
	assert.Equal(t, "From_Answer", raw.Module.ModuleID())
}

func TestParseVideoIDNeverOverridesModule(t *testing.T) {
	t.Parallel()

	raw := NewRawEvent(map[string]string{
		"problem_id": "i4x-MITx-6_002x-problem-From_Problem",
		"video_id":   "i4x-MITx-6_002x-video-From_Video",
	})
	parseProblemID(raw)
	parseVideoID(raw)

	require.NotNil(t, raw.Module)
	assert.Equal(t, "From_Problem", raw.Module.ModuleID())
}

func TestParseQuestionLocationOverridesModule(t *testing.T) {
	t.Parallel()

	raw := NewRawEvent(map[string]string{
		"problem_id":        "i4x-MITx-6_002x-problem-From_Problem",
		"question_location": "i4x-MITx-6_002x-problem-From_Location",
	})
	parseProblemID(raw)
	parseQuestionLocation(raw)

	require.NotNil(t, raw.Module)
	assert.Equal(t, "From_Location", raw.Module.ModuleID())
}

func TestFormatSeqRewritesToGotoDest(t *testing.T) {
	t.Parallel()

	raw := NewRawEvent(map[string]string{
		"event_type": "seq_goto",
		"goto_dest":  "5",
	})
	raw.Page = NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")
	formatSeq(raw)

	assert.Equal(t, "5", raw.Page.Seq)
}

func TestFormatI4xSynthesizesEventType(t *testing.T) {
	t.Parallel()

	raw := NewRawEvent(map[string]string{
		"event_type": "/courses/MITx/6.002x/2013_Spring/modx/i4x://MITx/6.002x/problem/Op_Amps/problem_check",
	})
	formatI4x(raw)

	assert.Equal(t, "i4x_problem_problem_check", raw.EventType())
	require.NotNil(t, raw.Module)
	assert.Equal(t, "Op_Amps", raw.Module.ModuleID())
}

func TestFormatURLChange(t *testing.T) {
	t.Parallel()

	raw := NewRawEvent(map[string]string{
		"event_type": "/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/",
	})
	formatURLChange(raw)

	assert.Equal(t, "url_change", raw.EventType())
	require.NotNil(t, raw.Page)
	assert.Equal(t, "1", raw.Page.Seq)
	assert.Equal(t, DefaultDomain+"/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/1/", raw.Page.URL())
}

func TestInheritURLCopiesSubUnitLocation(t *testing.T) {
	t.Parallel()

	location := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")
	raw := NewRawEvent(nil)
	raw.CurrentLocation = &Location{URL: location}
	inheritURL(raw)

	require.NotNil(t, raw.Page)
	assert.Equal(t, "url", raw.Inherited)
	assert.Equal(t, location.String(), raw.Page.String())
	// The inherited page must not alias the tracked location.
	raw.Page.SetSeq("9")
	assert.Equal(t, "3", location.Seq)
}

func TestInheritURLSkipsCoarseLocation(t *testing.T) {
	t.Parallel()

	location := NewCourseURL("https://www.edx.org/courses/MITx/6.002x/info/")
	raw := NewRawEvent(nil)
	raw.CurrentLocation = &Location{URL: location}
	inheritURL(raw)

	assert.Nil(t, raw.Page)
	assert.Empty(t, raw.Inherited)
}

func TestInheritSeqNumSameSubUnitOnly(t *testing.T) {
	t.Parallel()

	location := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")

	raw := NewRawEvent(nil)
	raw.Page = NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/")
	raw.CurrentLocation = &Location{URL: location}
	inheritSeqNum(raw)

	assert.Equal(t, "seqnum", raw.Inherited)
	assert.Equal(t, "3", raw.Page.Seq)

	// A different sub-unit inherits nothing.
	other := NewRawEvent(nil)
	other.Page = NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Filters/")
	other.CurrentLocation = &Location{URL: location}
	inheritSeqNum(other)

	assert.Empty(t, other.Inherited)
	assert.Empty(t, other.Page.Seq)
}

func TestUpdateSeqReturnsRewrittenCopy(t *testing.T) {
	t.Parallel()

	raw := NewRawEvent(map[string]string{"goto_dest": "7"})
	raw.Page = NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")
	updated := updateSeq(raw)

	assert.Equal(t, "7", updated.Seq)
	assert.Equal(t, "3", raw.Page.Seq)
}

func TestClosePreviousPage(t *testing.T) {
	t.Parallel()

	location := NewCourseURL("/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/")

	// Closing a page in another unit says nothing about the tracked
	// location, which survives.
	raw := NewRawEvent(nil)
	raw.Page = NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/courseware/Week_2/")
	raw.CurrentLocation = &Location{URL: location}
	assert.Equal(t, location, closePreviousPage(raw))

	// Closing the unit the user was tracked in drops the location.
	raw = NewRawEvent(nil)
	raw.Page = NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/courseware/Week_1/")
	raw.CurrentLocation = &Location{URL: location}
	assert.Nil(t, closePreviousPage(raw))

	// Without a tracked location page_close resolves nothing.
	unknown := NewRawEvent(nil)
	unknown.Page = NewCourseURL("https://www.edx.org/courses/MITx/6.002x/2013_Spring/courseware/Week_1/")
	assert.Nil(t, closePreviousPage(unknown))
}

func TestPolishClassifiesAndTracksLocation(t *testing.T) {
	t.Parallel()
	f := newTestFormatter(t)

	raw := NewRawEvent(map[string]string{
		"_id":              "1",
		"event_type":       "problem_check",
		"anon_screen_name": "student",
		"agent":            "Mozilla/5.0",
		"page":             "/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/",
		"problem_id":       "i4x-MITx-6_002x-problem-Op_Amps",
		"time":             "2013-09-11T13:25:44.876729",
	})
	event := f.Polish(raw)

	_, isProblem := event.(*ProblemInteraction)
	assert.True(t, isProblem)

	// Dictionary ids replace the raw metadata fields.
	assert.Equal(t, "0", event.Get("url_id"))
	assert.Equal(t, "0", event.Get("os"))
	assert.Equal(t, "0", event.Get("agent"))

	// The user's location was recorded for later inheritance.
	location := f.Engaged().Location("student")
	require.NotNil(t, location)
	assert.Equal(t, raw.Page.String(), location.URL.String())
}

func TestPolishInheritsURLWithinStalenessWindow(t *testing.T) {
	t.Parallel()
	f := newTestFormatter(t)

	first := NewRawEvent(map[string]string{
		"event_type":       "url_visit",
		"anon_screen_name": "student",
		"page":             "/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/",
		"time":             "2013-09-11T13:00:00",
	})
	f.Polish(first)

	second := NewRawEvent(map[string]string{
		"event_type":       "problem_check",
		"anon_screen_name": "student",
		"time":             "2013-09-11T13:30:00",
	})
	f.Polish(second)

	assert.Equal(t, "url", second.Inherited)
	require.NotNil(t, second.Page)
	assert.Equal(t, first.Page.String(), second.Page.String())
}

func TestPolishDoesNotInheritStaleLocation(t *testing.T) {
	t.Parallel()
	f := newTestFormatter(t)

	first := NewRawEvent(map[string]string{
		"event_type":       "url_visit",
		"anon_screen_name": "student",
		"page":             "/courses/MITx/6.002x/2013_Spring/courseware/Week_1/Circuits/3/",
		"time":             "2013-09-11T13:00:00",
	})
	f.Polish(first)

	second := NewRawEvent(map[string]string{
		"event_type":       "problem_check",
		"anon_screen_name": "student",
		"time":             "2013-09-11T15:00:00",
	})
	f.Polish(second)

	assert.Empty(t, second.Inherited)
	assert.Empty(t, second.Page.URL())
}

func TestInstantiateEventVariants(t *testing.T) {
	t.Parallel()
	f := newTestFormatter(t)

	tests := []struct {
		eventType string
		check     func(Event) bool
	}{
		{"problem_check", func(e Event) bool { _, ok := e.(*ProblemInteraction); return ok }},
		{"showanswer", func(e Event) bool { _, ok := e.(*ProblemInteraction); return ok }},
		{"play_video", func(e Event) bool { _, ok := e.(*VideoInteraction); return ok }},
		{"hide_transcript", func(e Event) bool { _, ok := e.(*VideoInteraction); return ok }},
		{"book", func(e Event) bool { _, ok := e.(*PdfInteraction); return ok }},
		{"oe_show_answer", func(e Event) bool { _, ok := e.(*OpenResponseAssessment); return ok }},
		{"rubric_select", func(e Event) bool { _, ok := e.(*OpenResponseAssessment); return ok }},
		{"seq_goto", func(e Event) bool { _, ok := e.(*Navigational); return ok }},
		{"something_else", func(e Event) bool { _, ok := e.(*BaseEvent); return ok }},
	}
	for _, tt := range tests {
		raw := NewRawEvent(map[string]string{"event_type": tt.eventType})
		event := f.instantiateEvent(raw)
		assert.True(t, tt.check(event), "event_type: %s", tt.eventType)
	}
}
