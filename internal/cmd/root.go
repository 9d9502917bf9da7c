package cmd

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "mlc",
	Short: "curate raw learning-platform events into MOOCdb",
	Long: `mlc - MOOC event curation pipeline
  - process: transform raw event exports into MOOCdb CSV tables
  - load:    import the produced tables into a SQLite database`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yml", "path to configuration file")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(versionCmd)
}
