package qpipe

import (
	"regexp"
	"time"
)

// Generic formatting steps: always applied, order-independent field
// normalization that runs before any rule dispatch.

var timestampOffset = regexp.MustCompile(`\+.*$`)

func (f *EventFormatter) setAgentOS(raw *RawEvent) {
	osName, agentName := f.classifier.Detect(raw.Get("agent"))
	raw.Set("os", osName)
	raw.Set("agent", agentName)
}

// formatURL normalizes the page field into a CourseURL.
func formatURL(raw *RawEvent) {
	raw.Page = NewCourseURL(raw.Get("page"))
}

// parseTimestamp parses the time field against the ordered list of accepted
// layouts; the first successful layout wins. Exhausting the list is a
// non-fatal error: it is logged and counted, and the raw field is left
// unparsed.
func (f *EventFormatter) parseTimestamp(raw *RawEvent) {
	// Remove possible offset information:
	// 2013-09-11T13:25:44.876729+00:00 -> 2013-09-11T13:25:44.876729
	stamp := timestampOffset.ReplaceAllString(raw.Get("time"), "")

	for _, layout := range f.timeLayouts {
		t, err := time.Parse(layout, stamp)
		if err == nil {
			raw.Time = t
			raw.TimeOK = true
			return
		}
	}

	f.badTimestamps++
	f.log.Errorw("could not parse event timestamp; consider adding a layout to the configuration",
		"event_id", raw.Get("_id"),
		"timestamp", stamp,
		"layouts", f.timeLayouts,
	)
}

// parseProblemID derives the module reference from the answer identifier or,
// failing that, the problem id. Gives a consistent URI formatting to problem
// ids so the URL hierarchy and problem hierarchy can be handled alike:
//
//	i4x-MITx-6_002x-problem-H10P2_New_Impedances_10_1
//	becomes i4x://MITx/6.002x/problem/H10P2_New_Impedances/10/1/
func parseProblemID(raw *RawEvent) {
	problemID := raw.Get("answer_identifier")
	if problemID == "" {
		problemID = raw.Get("problem_id")
	}
	if problemID == "" {
		return
	}
	if m := NewModuleURI(problemID); m != nil {
		raw.Module = m
	}
}

// parseVideoID derives the module reference from the video_id or
// transcript_id field. A module already set from the problem-id path is
// never overwritten here.
func parseVideoID(raw *RawEvent) {
	if raw.Module != nil {
		return
	}
	videoID := raw.Get("video_id")
	if videoID == "" {
		videoID = raw.Get("transcript_id")
	}
	if videoID == "" {
		return
	}
	if m := NewModuleURI(videoID); m != nil {
		raw.Module = m
	}
}

// parseQuestionLocation derives the module reference from the question
// location field. Unlike the other sources this one runs last and overrides
// a module already set; pinned behavior carried over from the production
// pipeline.
func parseQuestionLocation(raw *RawEvent) {
	location := raw.Get("question_location")
	if location == "" {
		return
	}
	if m := NewModuleURI(location); m != nil {
		raw.Module = m
	}
}
