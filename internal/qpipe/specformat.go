package qpipe

// Specific formatting: the first matching rule among the ordered list
// (sequence navigation, embedded URI, bare path) is applied; later rules are
// not attempted once one matches.

// formatSeq rewrites the event's sequence number to the goto destination.
// Duration attribution must reflect where the user ends up, not where they
// started.
func formatSeq(raw *RawEvent) {
	gotoDest := raw.Get("goto_dest")
	if gotoDest == "" {
		return
	}
	if raw.Page != nil && raw.Page.SubUnit != "" {
		raw.Page.SetSeq(gotoDest)
	}
}

// formatI4x handles raw events whose type is an embedded module URI: the
// event type is rewritten to a synthetic i4x_<category>_<action> label and a
// missing module field is filled from the parsed URI.
func formatI4x(raw *RawEvent) {
	category, action := "", ""
	if m := NewModuleURI(raw.EventType()); m != nil {
		category = m.Category()
		action = m.Action()
		if raw.Module == nil {
			raw.Module = m
		}
	}
	raw.Set("event_type", "i4x_"+category+"_"+action)
}

// formatURLChange handles raw events whose type is a bare path: a full URL
// is built from the default domain, a sub-unit level URL with no sequence
// defaults to sequence 1 (the user lands on the first sequence), and the
// event type is renamed to the generic url_change marker.
func formatURLChange(raw *RawEvent) {
	url := NewCourseURL(DefaultDomain + raw.EventType())
	if url.SubUnit != "" && url.Seq == "" {
		url.SetSeq("1")
	}
	raw.Page = url
	raw.Set("event_type", "url_change")
}
