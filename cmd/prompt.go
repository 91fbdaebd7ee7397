package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/veracity-node/internal/veracity"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that check would send",
	Long: `Render the verdict prompt for --query and --results and print it to stdout.

No model is called and no API key is needed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := veracity.RenderPrompt(inputValue(flagQuery), inputValue(flagResults))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), p)
		return err
	},
}

func init() {
	promptCmd.Flags().StringArrayVar(&flagQuery, "query", nil, "query text (repeatable)")
	promptCmd.Flags().StringArrayVar(&flagResults, "results", nil, "candidate results text (repeatable)")
	rootCmd.AddCommand(promptCmd)
}
