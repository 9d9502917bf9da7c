package qpipe

// Location inheritance rules. These assume the user is engaged and the
// tracked location is not stale; the formatter checks both before
// dispatching here.

// inheritURL fills a missing page from the user's current location. Only
// locations at sub-unit granularity are worth inheriting for interaction
// events.
func inheritURL(raw *RawEvent) {
	location := raw.CurrentLocation.URL
	if location.SubUnit != "" {
		raw.Page = location.Copy()
		raw.Inherited = "url"
	} else {
		raw.Inherited = ""
	}
}

// inheritSeqNum inherits only the sequence number of the user's current
// location, when the event's page is at courseware granularity and shares
// unit and sub-unit with it.
func inheritSeqNum(raw *RawEvent) {
	location := raw.CurrentLocation.URL
	eventURL := raw.Page

	sameUnit := location.Unit == eventURL.Unit
	sameSubUnit := location.SubUnit == eventURL.SubUnit
	if !sameUnit || !sameSubUnit {
		return
	}

	if seq := location.Seq; seq != "" {
		eventURL.SetSeq(seq)
		raw.Inherited = "seqnum"
	}
}
