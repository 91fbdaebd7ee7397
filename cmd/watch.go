package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/timvw/veracity-node/internal/watch"
)

var (
	flagWatchURL     string
	flagRefresh      time.Duration
	flagTheme        string
	flagRejectedOnly bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of a running veracity server",
	Long: `Poll a veracity server's /v1/verdicts endpoint and show recent runs,
newest first, with pass/fail counts and token totals.

Start the server with "veracity serve" first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		t := &watch.TUI{
			Fetcher:         watch.NewClient(flagWatchURL),
			RefreshInterval: flagRefresh,
			Theme:           watch.ThemeByName(flagTheme),
			RejectedOnly:    flagRejectedOnly,
		}
		if err := t.Run(cmd.Context()); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchURL, "url", "http://localhost:8080", "veracity server base URL")
	watchCmd.Flags().DurationVar(&flagRefresh, "refresh", 2*time.Second, "refresh interval (0 disables auto-refresh)")
	watchCmd.Flags().StringVar(&flagTheme, "theme", "dark", "color theme: dark, light")
	watchCmd.Flags().BoolVar(&flagRejectedOnly, "failed", false, "show only runs whose results were rewritten")
	rootCmd.AddCommand(watchCmd)
}
