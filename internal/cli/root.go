// Package cli is the studyctl operator tool: it runs the study pipeline
// stages against local files without the API or the database.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "studyctl",
	Short:         "Operate the studyforge pipeline from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() (*logger.Logger, error) {
	if !verbose {
		return logger.Nop(), nil
	}
	return logger.New("development")
}
