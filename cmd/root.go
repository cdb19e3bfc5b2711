package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"treedump/src/log"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "treedump",
	Short: "Archive directory trees into single-file dumps",
	Long: `treedump walks a directory tree and concatenates every regular file's
path and contents into a single output file, separated by marker lines.
Dumps can run locally, or be enqueued to a worker that archives the
result to object storage and records the run.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		prod, _ := cmd.Flags().GetBool("production-logs")
		if prod || viper.GetBool("log.production") {
			return log.UseProduction()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("production-logs", false, "emit JSON production logs instead of development output")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
