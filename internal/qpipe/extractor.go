package qpipe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Column layouts of the datastage CSV exports consumed by the pipeline.
// The track event export carries no header row, so the order here is the
// contract with the upstream translation step.
var (
	edxTrackEventFields = []string{
		"_id", "event_id", "agent", "event_source", "event_type", "ip", "page",
		"session", "time", "anon_screen_name", "downtime_for", "student_id",
		"instructor_id", "course_id", "course_display_name",
		"resource_display_name", "organization", "sequence_id", "goto_from",
		"goto_dest", "problem_id", "problem_choice", "question_location",
		"submission_id", "attempts", "long_answer", "student_file",
		"can_upload_file", "feedback", "feedback_response_selected",
		"transcript_id", "transcript_code", "rubric_selection",
		"rubric_category", "video_id", "video_code", "video_current_time",
		"video_speed", "video_old_time", "video_new_time", "video_seek_type",
		"video_new_speed", "video_old_speed", "book_interaction_type",
		"success", "answer_id", "hint", "hintmode", "msg", "npoints",
		"queuestate", "orig_score", "new_score", "orig_total", "new_total",
		"event_name", "group_user", "group_action", "position",
		"badly_formatted", "correctMap_fk", "answer_fk", "state_fk",
		"load_info_fk",
	}

	answerFields = []string{"answer_id", "problem_id", "answer", "course_id"}

	correctMapFields = []string{
		"correct_map_id", "answer_identifier", "correctness", "npoints",
		"msg", "hint", "hintmode", "queustate",
	}
)

// foreignTable is an in-memory lookup table loaded from a CSV export,
// keyed by the first column.
type foreignTable struct {
	fields []string
	rows   map[string]map[string]string
}

func loadForeignTable(path string, fields []string) (*foreignTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open foreign table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	t := &foreignTable{fields: fields, rows: make(map[string]map[string]string)}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read foreign table %s: %w", path, err)
		}
		if len(record) == 0 {
			continue
		}
		row := make(map[string]string, len(fields))
		for i, name := range fields {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		t.rows[record[0]] = row
	}
	return t, nil
}

// CSVExtractor reads the EdxTrackEvent export row by row and enriches each
// event with fields joined in from the answer and correct map tables.
type CSVExtractor struct {
	events     *csv.Reader
	closer     io.Closer
	answer     *foreignTable
	correctMap *foreignTable
	log        *zap.SugaredLogger
}

// NewCSVExtractor opens the track event file and loads the answer and
// correct map tables into memory. Either foreign table path may be empty,
// in which case the corresponding join is skipped.
func NewCSVExtractor(eventPath, answerPath, correctMapPath string, log *zap.SugaredLogger) (*CSVExtractor, error) {
	f, err := os.Open(eventPath)
	if err != nil {
		return nil, fmt.Errorf("open track event file: %w", err)
	}

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	e := &CSVExtractor{events: r, closer: f, log: log}

	if answerPath != "" {
		if e.answer, err = loadForeignTable(answerPath, answerFields); err != nil {
			f.Close()
			return nil, err
		}
	}
	if correctMapPath != "" {
		if e.correctMap, err = loadForeignTable(correctMapPath, correctMapFields); err != nil {
			f.Close()
			return nil, err
		}
	}
	return e, nil
}

// Next returns the next raw event, or io.EOF once the export is exhausted.
func (e *CSVExtractor) Next() (*RawEvent, error) {
	record, err := e.events.Read()
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(edxTrackEventFields))
	for i, name := range edxTrackEventFields {
		if i < len(record) {
			fields[name] = record[i]
		} else {
			fields[name] = ""
		}
	}

	e.joinForeign(fields, "answer_fk", []string{"answer"}, e.answer)
	e.joinForeign(fields, "correctMap_fk", []string{"answer_identifier", "correctness"}, e.correctMap)

	return NewRawEvent(fields), nil
}

// joinForeign copies the named columns of the foreign row referenced by the
// event's foreign key into the event. Empty foreign values never override a
// local value. A missing key blanks the foreign fields; a key that resolves
// to no row is logged and left alone.
func (e *CSVExtractor) joinForeign(fields map[string]string, fkName string, valueNames []string, table *foreignTable) {
	if table == nil {
		return
	}
	fk := fields[fkName]
	if fk == "" {
		for _, name := range valueNames {
			fields[name] = ""
		}
		return
	}
	row, ok := table.rows[fk]
	if !ok {
		e.log.Warnw("broken foreign key", "key", fkName, "value", fk)
		return
	}
	for _, name := range valueNames {
		if v := row[name]; v != "" {
			fields[name] = v
		}
	}
}

// Close releases the underlying track event file.
func (e *CSVExtractor) Close() error {
	return e.closer.Close()
}
