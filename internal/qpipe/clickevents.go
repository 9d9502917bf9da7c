package qpipe

import (
	"go.uber.org/zap"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

// clickEventTypes are the video interaction event types recorded into the
// click_events table.
var clickEventTypes = map[string]struct{}{
	"play_video":         {},
	"load_video":         {},
	"pause_video":        {},
	"stop_video":         {},
	"seek_video":         {},
	"speed_change_video": {},
	"hide_transcript":    {},
	"show_transcript":    {},
	"video_hide_cc_menu": {},
	"video_show_cc_menu": {},
}

// ClickEventsManager records video interaction details into the click_events
// table.
type ClickEventsManager struct {
	writer      moocdb.Writer
	videoIDSpec string
	log         *zap.SugaredLogger
}

// NewClickEventsManager creates a manager writing into db. videoIDSpec
// selects the platform's video-id resolution strategy (MITx or HKUSTx).
func NewClickEventsManager(db *moocdb.MOOCdb, videoIDSpec string, log *zap.SugaredLogger) *ClickEventsManager {
	return &ClickEventsManager{
		writer:      db.Writer("click_events"),
		videoIDSpec: videoIDSpec,
		log:         log,
	}
}

// Record writes a click_events row when the event is one of the video
// interaction types. An unresolvable video id skips the row with a log
// entry; this happens on malformed events and is not fatal.
func (m *ClickEventsManager) Record(event Event) error {
	if _, ok := clickEventTypes[event.Get("event_type")]; !ok {
		return nil
	}
	video, ok := event.(*VideoInteraction)
	if !ok {
		return nil
	}

	videoID, err := video.VideoID(m.videoIDSpec)
	if err != nil {
		m.log.Warnw("skipping click event with unresolvable video id",
			"event_id", event.Get("_id"),
			"spec", m.videoIDSpec,
			"error", err,
		)
		return nil
	}

	url := ""
	if event.Raw().Page != nil {
		url = event.Raw().Page.URL()
	}

	return m.writer.Store(moocdb.Row{
		"observed_event_id":        event.Get("_id"),
		"course_id":                event.Get("course_display_name"),
		"user_id":                  event.Get("anon_screen_name"),
		"video_id":                 videoID,
		"observed_event_timestamp": event.Get("time"),
		"observed_event_type":      event.Get("event_type"),
		"url":                      url,
		"code":                     video.VideoCode(),
		"video_current_time":       event.Get("video_current_time"),
		"video_new_time":           event.Get("video_new_time"),
		"video_old_time":           event.Get("video_old_time"),
		"video_new_speed":          event.Get("video_new_speed"),
		"video_old_speed":          event.Get("video_old_speed"),
	})
}
