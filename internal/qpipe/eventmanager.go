package qpipe

import (
	"sort"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

// durationIgnore lists the event types that must never close out a duration
// window: they carry no information about the user's location after the
// event occurred.
var durationIgnore = map[string]struct{}{
	"page_close":                {},
	"problem_check":             {},
	"problem_check_fail":        {},
	"problem_graded":            {},
	"save_problem_check":        {},
	"i4x_problem_problem_check": {},
	"save_problem_success":      {},
	"problem_save":              {},
	"i4x_problem_problem_save":  {},
	"save_problem_check_fail":   {},
	"reset_problem":             {},
	"reset_problem_fail":        {},
	"problem_reset":             {},
	"save_problem_fail":         {},
}

// EventManager computes the observed_events rows. Its extra duty is the
// duration computation: each event is held (staged) until the user's next
// qualifying event arrives, and its duration is the elapsed time between the
// two.
type EventManager struct {
	staged   map[string]Event
	observed moocdb.Writer
}

// NewEventManager creates a manager writing observed events into db.
func NewEventManager(db *moocdb.MOOCdb) *EventManager {
	return &EventManager{
		staged:   make(map[string]Event),
		observed: db.Writer("observed_events"),
	}
}

// Stage holds event as the user's open duration window and returns the
// previously staged event, now complete, when there was one. Ignored event
// types return nil without touching the slot. A user's first event is never
// returned until a follow-up arrives.
func (m *EventManager) Stage(event Event) Event {
	if _, ignored := durationIgnore[event.Get("event_type")]; ignored {
		return nil
	}

	user := event.Get("anon_screen_name")
	ending, ok := m.staged[user]
	m.staged[user] = event
	if !ok {
		return nil
	}

	if event.Raw().TimeOK {
		ending.SetDuration(event.Raw().Time)
	}
	return ending
}

// Store stages the event and writes out the completed one, if any.
func (m *EventManager) Store(event Event) error {
	completed := m.Stage(event)
	if completed == nil {
		return nil
	}
	return m.observed.Store(completed.ObservedEventRow())
}

// Serialize flushes every still-staged event with its default duration. No
// user's last event may be silently dropped.
func (m *EventManager) Serialize() error {
	users := make([]string, 0, len(m.staged))
	for user := range m.staged {
		users = append(users, user)
	}
	sort.Strings(users)

	for _, user := range users {
		if err := m.observed.Store(m.staged[user].ObservedEventRow()); err != nil {
			return err
		}
	}
	return nil
}
