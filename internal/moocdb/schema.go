// Package moocdb provides the MOOCdb storage interface: table schemas,
// per-table row sinks backed by CSV files, append-only dictionary tables,
// and a SQLite loader for the produced CSVs.
package moocdb

// Tables maps each MOOCdb table name to its ordered field list.
// The first field of each table is its primary key. Downstream schema
// loaders depend on this exact field order, so it must stay stable.
var Tables = map[string][]string{
	"observed_events": {
		"observed_event_id", "user_id", "url_id",
		"observed_event_timestamp", "observed_event_duration",
		"observed_event_ip", "observed_event_os", "observed_event_agent",
		"observed_event_type", "validity",
	},
	"resources": {
		"resource_id", "resource_name", "resource_uri", "resource_type_id",
		"resource_parent_id", "resource_child_number",
		"resource_relevant_week", "resource_release_timestamp",
	},
	"resources_urls": {"resources_urls_id", "resource_id", "url_id"},
	"urls":           {"url_id", "url"},
	"resource_types": {"resource_type_id", "resource_type_content", "resource_type_medium"},
	"problems": {
		"problem_id", "problem_name", "problem_parent_id",
		"problem_child_number", "problem_type_id",
		"problem_release_timestamp", "problem_soft_deadline",
		"problem_hard_deadline", "problem_max_submission",
		"problem_max_duration", "problem_weight", "resource_id",
		"problem_week",
	},
	"submissions": {
		"submission_id", "user_id", "problem_id", "submission_timestamp",
		"submission_attempt_number", "submission_answer",
		"submission_is_submitted", "submission_ip", "submission_os",
		"submission_agent", "validity",
	},
	"assessments": {
		"assessment_id", "submission_id", "assessment_feedback",
		"assessment_grade", "assessment_grade_with_penalty",
		"assessment_grader_id", "assessment_timestamp",
	},
	"problem_types": {"problem_type_id", "problem_type_name"},
	"os":            {"os_id", "os_name"},
	"agent":         {"agent_id", "agent_name"},
	"click_events": {
		"observed_event_id", "course_id", "user_id", "video_id",
		"observed_event_timestamp", "observed_event_type", "url", "code",
		"video_current_time", "video_new_time", "video_old_time",
		"video_new_speed", "video_old_speed",
	},
}

// Row is one logical table row, keyed by field name. Fields absent from the
// map are written out as empty strings.
type Row map[string]string
