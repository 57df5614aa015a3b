package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contact-discovery/internal/extract"
	"github.com/sells-group/contact-discovery/internal/model"
	"github.com/sells-group/contact-discovery/internal/namescore"
	"github.com/sells-group/contact-discovery/pkg/anthropic"
)

var (
	extractCompanyID   string
	extractCompanyName string
	extractPrompt      string
	extractDryRun      bool
)

// noScorer keeps extraction working without an Anthropic key. The miner
// falls back to pattern-only scoring when no AI scores come back.
type noScorer struct{}

func (noScorer) ValidateNames(context.Context, []string, string, string) map[string]int {
	return nil
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Mine contacts and company attributes from analysis text",
	Long: `Reads analysis text files, extracts candidate contact names with pattern
and AI validation, and mines company size, services, and differentiators.
Contacts are persisted under --company-id unless --dry-run is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fragments := make([]string, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read %s", path)
			}
			fragments = append(fragments, string(data))
		}

		var scorer extract.NameScorer = noScorer{}
		if cfg.Anthropic.Key != "" {
			scorer = namescore.New(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
		} else {
			zap.L().Warn("extract: no anthropic key, pattern-only scoring")
		}

		contacts := extract.MineContacts(ctx, fragments, extractCompanyName, scorer, extract.MinerOptions{
			MinProbability: cfg.Extract.MinProbability,
			SearchPrompt:   extractPrompt,
		})
		attrs := extract.ParseCompanyData(fragments)

		for i := range contacts {
			contacts[i].CompanyID = extractCompanyID
		}

		if !extractDryRun {
			if extractCompanyID == "" {
				return eris.New("--company-id is required unless --dry-run is set")
			}

			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := st.UpsertCompany(ctx, model.Company{
				ID:              extractCompanyID,
				Name:            extractCompanyName,
				Size:            attrs.Size,
				Services:        attrs.Services,
				Differentiation: attrs.Differentiation,
				TotalScore:      extract.ComputeCompanyScore(attrs),
			}); err != nil {
				return err
			}

			n, err := st.CreateContacts(ctx, contacts)
			if err != nil {
				return err
			}
			zap.L().Info("extract: persisted",
				zap.String("company_id", extractCompanyID),
				zap.Int64("contacts", n),
			)
		}

		out := struct {
			Contacts []model.Contact    `json:"contacts"`
			Company  model.CompanyAttrs `json:"company"`
			Score    int                `json:"company_score"`
		}{contacts, attrs, extract.ComputeCompanyScore(attrs)}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractCompanyID, "company-id", "", "company the mined contacts belong to")
	extractCmd.Flags().StringVar(&extractCompanyName, "company-name", "", "company name, used for overlap penalties")
	extractCmd.Flags().StringVar(&extractPrompt, "prompt", "", "search prompt the analysis text answers")
	extractCmd.Flags().BoolVar(&extractDryRun, "dry-run", false, "print mined data without persisting")
	rootCmd.AddCommand(extractCmd)
}
