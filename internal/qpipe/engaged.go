package qpipe

import "time"

// locationStaleness is the window beyond which a tracked location is too old
// to inherit from. Staleness is evaluated at read time against the current
// event's timestamp; entries are not purged eagerly.
const locationStaleness = time.Hour

// EngagedUsers tracks the last known location per user within one course
// run. It is consulted and mutated by the EventFormatter after every event.
type EngagedUsers struct {
	locations map[string]Location
}

// NewEngagedUsers returns an empty location tracker.
func NewEngagedUsers() *EngagedUsers {
	return &EngagedUsers{locations: make(map[string]Location)}
}

// IsEngaged reports whether a location is tracked for user.
func (u *EngagedUsers) IsEngaged(user string) bool {
	_, ok := u.locations[user]
	return ok
}

// Location returns the tracked location for user, or nil when the user is
// not engaged.
func (u *EngagedUsers) Location(user string) *Location {
	loc, ok := u.locations[user]
	if !ok {
		return nil
	}
	return &loc
}

// Update records a new location for user. The URL is stored as given; the
// caller is responsible for copying when the value may be mutated later.
func (u *EngagedUsers) Update(user string, url *CourseURL, at time.Time) {
	u.locations[user] = Location{URL: url, Time: at}
}

// Remove drops the user from the tracker. Removing an unengaged user is a
// no-op.
func (u *EngagedUsers) Remove(user string) {
	delete(u.locations, user)
}
