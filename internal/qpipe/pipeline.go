package qpipe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/agent"
	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

// Options configures a single-course pipeline run.
type Options struct {
	EventFile      string
	AnswerFile     string
	CorrectMapFile string

	OutputDir             string
	ResourceHierarchyFile string
	ProblemHierarchyFile  string

	VideoIDSpec      string
	TimeLayouts      []string
	ProgressInterval int
	Version          string
}

// Summary reports what a completed run did with its input.
type Summary struct {
	Processed     int
	Filtered      int
	BadTimestamps int
	Elapsed       time.Duration
}

// Pipeline wires the full event transformation for one course: extraction,
// formatting, hierarchy construction, submission derivation, duration
// staging and row emission. Instances are single-use and not safe for
// concurrent use; run one pipeline per course.
type Pipeline struct {
	opts Options
	log  *zap.SugaredLogger

	db          *moocdb.MOOCdb
	extractor   *CSVExtractor
	formatter   *EventFormatter
	resources   *ResourceManager
	events      *EventManager
	submissions *SubmissionManager
	curation    *CurationHelper
	clicks      *ClickEventsManager
}

// NewPipeline opens the course input files and output sinks and assembles
// the processing stages.
func NewPipeline(opts Options, classifier agent.Classifier, log *zap.SugaredLogger) (*Pipeline, error) {
	db, err := moocdb.New(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	extractor, err := NewCSVExtractor(opts.EventFile, opts.AnswerFile, opts.CorrectMapFile, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Pipeline{
		opts:        opts,
		log:         log,
		db:          db,
		extractor:   extractor,
		formatter:   NewEventFormatter(db, classifier, opts.TimeLayouts, log),
		resources:   NewResourceManager(db, "https://"),
		events:      NewEventManager(db),
		submissions: NewSubmissionManager(db),
		curation:    NewCurationHelper(opts.OutputDir),
		clicks:      NewClickEventsManager(db, opts.VideoIDSpec, log),
	}, nil
}

// Run drains the event export through every stage and serializes the
// results. The context is checked between events; cancellation abandons the
// run with the output left incomplete.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	var summary Summary

	progressInterval := p.opts.ProgressInterval
	if progressInterval <= 0 {
		progressInterval = 500
	}

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		raw, err := p.extractor.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read event: %w", err)
		}

		summary.Processed++
		if summary.Processed%progressInterval == 0 {
			p.log.Infow("progress", "events", summary.Processed)
		}

		if !p.formatter.PassFilter(raw) {
			summary.Filtered++
			continue
		}

		event := p.formatter.Polish(raw)

		if id, ok := p.resources.CreateResource(event); ok && id != 0 {
			raw.Set("resource_id", strconv.Itoa(id))
		}

		if err := p.submissions.Update(event); err != nil {
			return summary, fmt.Errorf("update submission tables: %w", err)
		}
		p.curation.Record(event)
		if err := p.clicks.Record(event); err != nil {
			return summary, fmt.Errorf("record click event: %w", err)
		}
		if err := p.events.Store(event); err != nil {
			return summary, fmt.Errorf("store observed event: %w", err)
		}
	}

	if err := p.serialize(); err != nil {
		return summary, err
	}

	summary.BadTimestamps = p.formatter.BadTimestamps()
	summary.Elapsed = time.Since(started)

	return summary, p.writeMetadata(summary.Elapsed)
}

func (p *Pipeline) serialize() error {
	if err := p.formatter.Serialize(); err != nil {
		return fmt.Errorf("serialize dictionaries: %w", err)
	}
	if err := p.events.Serialize(); err != nil {
		return fmt.Errorf("flush staged events: %w", err)
	}
	if err := p.resources.Serialize(p.opts.ResourceHierarchyFile); err != nil {
		return fmt.Errorf("serialize resources: %w", err)
	}
	if err := p.submissions.Serialize(p.opts.ProblemHierarchyFile); err != nil {
		return fmt.Errorf("serialize problems: %w", err)
	}
	if err := p.curation.Serialize(); err != nil {
		return fmt.Errorf("serialize curation hints: %w", err)
	}
	return nil
}

// writeMetadata records one row identifying the run: run id, binary version
// and processing time in whole minutes.
func (p *Pipeline) writeMetadata(elapsed time.Duration) error {
	path := filepath.Join(p.opts.OutputDir, "metadata.csv")
	row := fmt.Sprintf("%s,%s,%d\n",
		uuid.NewString(), p.opts.Version, int(elapsed.Minutes()))
	return os.WriteFile(path, []byte(row), 0o644)
}

// Close flushes the output tables and releases the pipeline's open files.
// Must be called after Run, successful or not.
func (p *Pipeline) Close() error {
	err := p.extractor.Close()
	if dbErr := p.db.Close(); err == nil {
		err = dbErr
	}
	return err
}
