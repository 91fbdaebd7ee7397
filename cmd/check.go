package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timvw/veracity-node/internal/config"
	"github.com/timvw/veracity-node/internal/model"
)

var (
	flagQuery   []string
	flagResults []string
	flagFields  []string
)

type checkOutput struct {
	Payload model.Payload `json:"payload"`
	Edge    model.Edge    `json:"edge"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ask the model whether results answers query",
	Long: `Run the veracity node once and print the outgoing payload and edge as JSON.

--query and --results may be repeated; repeated values are passed as a list
and rendered one per line in the prompt. --field adds passthrough fields to
the payload (values are JSON-decoded when possible).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		extra, err := config.ParseOptions(flagFields)
		if err != nil {
			return fmt.Errorf("invalid --field: %w", err)
		}

		node, err := newNode(cmd.Context(), nil)
		if err != nil {
			return err
		}

		payload, edge, err := node.Run(cmd.Context(), inputValue(flagQuery), inputValue(flagResults), extra)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(checkOutput{Payload: payload, Edge: edge})
	},
}

// inputValue maps repeated flag values to a node input: one value is a
// string, several are a list, none is nil.
func inputValue(vals []string) any {
	switch len(vals) {
	case 0:
		return nil
	case 1:
		return vals[0]
	default:
		return vals
	}
}

func init() {
	checkCmd.Flags().StringArrayVar(&flagQuery, "query", nil, "query text (repeatable)")
	checkCmd.Flags().StringArrayVar(&flagResults, "results", nil, "candidate results text (repeatable)")
	checkCmd.Flags().StringArrayVar(&flagFields, "field", nil, "passthrough payload field as key=value (repeatable)")
	rootCmd.AddCommand(checkCmd)
}
