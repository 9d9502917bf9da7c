package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/config"
	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/logger"
	"github.com/MOOC-Learner-Project/MOOC-Learner-Curated/internal/moocdb"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import the produced MOOCdb CSV tables into a SQLite database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cfg.DB.Path == "" {
			return fmt.Errorf("db.path must be set for load")
		}
		log, err := logger.New(cfg.Log.Mode)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer log.Sync()

		loader, err := moocdb.OpenSQLite(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer loader.Close()

		ctx := cmd.Context()
		if err := loader.CreateSchema(ctx); err != nil {
			return err
		}

		for _, course := range cfg.Courses {
			counts, err := loader.ImportDir(ctx, course.OutputDir)
			if err != nil {
				return fmt.Errorf("import course %s: %w", course.Name, err)
			}
			tables := make([]string, 0, len(counts))
			for table := range counts {
				tables = append(tables, table)
			}
			sort.Strings(tables)
			for _, table := range tables {
				log.Infow("imported table", "course", course.Name, "table", table, "rows", counts[table])
			}
		}
		return nil
	},
}
