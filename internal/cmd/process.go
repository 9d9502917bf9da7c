package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/agent"
	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/config"
	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/logger"
	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/qpipe"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the curation pipeline over the configured courses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log.Mode)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer log.Sync()

		return runProcess(cmd.Context(), cfg, log)
	},
}

// runProcess fans out over the configured courses. Courses are independent;
// a failing course is reported but must not abort its siblings, so errors
// are collected per course instead of propagated through the group.
func runProcess(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	classifier := agent.NewClassifier()

	var g errgroup.Group
	g.SetLimit(cfg.Pipeline.Workers)

	failed := make([]error, len(cfg.Courses))
	for i, course := range cfg.Courses {
		i, course := i, course
		g.Go(func() error {
			failed[i] = processCourse(ctx, course, cfg, classifier, log.With("course", course.Name))
			return nil
		})
	}
	g.Wait()

	var failures int
	for i, err := range failed {
		if err != nil {
			failures++
			log.Errorw("course failed", "course", cfg.Courses[i].Name, "error", err)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d courses failed", failures, len(cfg.Courses))
	}
	return nil
}

func processCourse(ctx context.Context, course config.CourseConfig, cfg *config.Config, classifier agent.Classifier, log *zap.SugaredLogger) error {
	log.Infow("processing course", "events", course.EventFile)

	p, err := qpipe.NewPipeline(qpipe.Options{
		EventFile:             course.EventFile,
		AnswerFile:            course.AnswerFile,
		CorrectMapFile:        course.CorrectMapFile,
		OutputDir:             course.OutputDir,
		ResourceHierarchyFile: course.ResourceHierarchyFile,
		ProblemHierarchyFile:  course.ProblemHierarchyFile,
		VideoIDSpec:           cfg.OpenEdx.VideoIDSpec,
		TimeLayouts:           cfg.Parsing.TimestampFormats,
		ProgressInterval:      cfg.Pipeline.ProgressInterval,
		Version:               Version,
	}, classifier, log)
	if err != nil {
		return err
	}

	summary, runErr := p.Run(ctx)
	if closeErr := p.Close(); runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return runErr
	}

	log.Infow("course complete",
		"processed", summary.Processed,
		"filtered", summary.Filtered,
		"bad_timestamps", summary.BadTimestamps,
		"elapsed", summary.Elapsed)
	return nil
}
