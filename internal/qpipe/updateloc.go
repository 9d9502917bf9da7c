package qpipe

import "strings"

// Location update rules. Each rule returns the user's new location, or nil
// when no location can be resolved; a nil result removes the user from the
// engaged-users map, invalidating future inheritance until a fresh page is
// seen.

// simpleUpdate returns the event's page verbatim.
func simpleUpdate(raw *RawEvent) *CourseURL {
	return raw.Page
}

// updateSeq returns a copy of the event's page with the sequence number
// rewritten to the goto destination.
func updateSeq(raw *RawEvent) *CourseURL {
	urlCopy := raw.Page.Copy()
	if gotoDest := raw.Get("goto_dest"); gotoDest != "" {
		urlCopy.SetSeq(gotoDest)
	}
	return urlCopy
}

// closePreviousPage resolves a page-close event. The prior location survives
// only when the closed page's unit+sub-unit does not textually appear in its
// string rendering; a match means the user closed the page they were
// tracked on, and nothing is known about where they are now.
func closePreviousPage(raw *RawEvent) *CourseURL {
	if raw.CurrentLocation == nil {
		return nil
	}

	closed := raw.Page
	marker := closed.Unit
	if closed.SubUnit != "" {
		marker += closed.SubUnit
	}

	if strings.Contains(raw.CurrentLocation.URL.String(), marker) {
		return nil
	}
	return raw.CurrentLocation.URL
}
