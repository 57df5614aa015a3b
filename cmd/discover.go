package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/search"
)

var discoverDeep bool

var discoverCmd = &cobra.Command{
	Use:   "discover <contact-id>",
	Short: "Run the email discovery waterfall for one contact",
	Long: `Runs the provider waterfall (Apollo, AI enrichment, Hunter) for the given
contact. Providers already attempted are skipped; the first verified email
wins. With --deep, runs the website crawler instead, for contacts whose
waterfall is exhausted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		contactID := args[0]

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var result *search.DiscoverResult
		if discoverDeep {
			result, err = env.Orchestrator.ComprehensiveSearch(ctx, contactID)
		} else {
			result, err = env.Orchestrator.DiscoverEmail(ctx, contactID)
		}
		if err != nil {
			return err
		}

		zap.L().Info("discovery finished",
			zap.String("contact_id", contactID),
			zap.String("state", string(result.State)),
			zap.String("provider", string(result.Provider)),
			zap.Bool("charged", result.Charged),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverDeep, "deep", false, "run the comprehensive website crawl instead of the waterfall")
	rootCmd.AddCommand(discoverCmd)
}
