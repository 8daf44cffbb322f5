package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/scorer"
)

var (
	runLeadID string
	runScores bool
)

var runCmd = &cobra.Command{
	Use:   "run <lead>",
	Short: "Draft outreach for a single lead",
	Long:  `Accepts a contact email address ("jane.doe@acme.com") or a name and organization ("jane doe - Acme") and drafts the full outreach set.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		leadID := runLeadID
		if leadID == "" {
			leadID = uuid.NewString()
		}

		state, err := env.Engine.Run(ctx, leadID, args[0])
		if err != nil {
			return eris.Wrap(err, "workflow run")
		}

		zap.L().Info("outreach drafted",
			zap.String("lead_id", leadID),
			zap.Int("drafts", len(state.Drafts)),
			zap.Int("hooks", len(state.Hooks)),
		)

		out := map[string]any{"state": state}
		if runScores {
			out["metrics"] = scorer.EvaluateRun(state)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	runCmd.Flags().StringVar(&runLeadID, "lead-id", "", "stable lead identifier (random when omitted)")
	runCmd.Flags().BoolVar(&runScores, "scores", false, "include quality metrics in the output")
	rootCmd.AddCommand(runCmd)
}
