package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aaryan23/cold-email-os/internal/generation"
	"github.com/aaryan23/cold-email-os/internal/rag"
)

var (
	genTenant   string
	genPersona  string
	genVertical string
	genLength   int
	genJSON     bool

	retrieveTenant string
	retrieveQuery  rag.Query
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write campaign sequences for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "kb", false)
		if err != nil {
			return err
		}
		defer env.Close()
		if env.Generator == nil {
			return eris.New("anthropic key is required for generation (COLDEMAIL_ANTHROPIC_KEY)")
		}

		gen, err := env.Generator.Generate(ctx, generation.Request{
			TenantID:       genTenant,
			Persona:        genPersona,
			Vertical:       genVertical,
			SequenceLength: genLength,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if genJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(gen)
		}

		var campaigns generation.Output
		if err := json.Unmarshal(gen.Output, &campaigns); err != nil {
			return eris.Wrap(err, "decode generation output")
		}
		_, err = fmt.Fprint(out, formatCampaigns(campaigns))
		return err
	},
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Show the knowledge-base chunks a query selects",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "kb", false)
		if err != nil {
			return err
		}
		defer env.Close()

		q := retrieveQuery
		q.Text = strings.Join(args, " ")
		chunks, err := env.Retriever.Retrieve(ctx, retrieveTenant, q)
		if err != nil {
			return err
		}

		rows := make([][]string, len(chunks))
		for i, c := range chunks {
			rows[i] = []string{
				strconv.Itoa(i + 1),
				strconv.FormatFloat(c.Score, 'f', 2, 64),
				c.DocTitle,
				c.Metadata.Vertical,
				string(c.Metadata.PerformanceTag),
				preview(c.Text, 60),
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"#", "Score", "Document", "Vertical", "Performance", "Text"},
			rows,
			[]columnAlignment{alignRight, alignRight},
		))
		return nil
	},
}

func formatCampaigns(out generation.Output) string {
	var b strings.Builder
	for i, a := range out.Angles {
		fmt.Fprintf(&b, "=== Angle %d: %s ===\n%s\n\n", i+1, a.AngleName, a.AngleSummary)
		for _, e := range a.Sequence {
			fmt.Fprintf(&b, "--- Email %d ---\nSubject: %s\n\n%s\n\n", e.Step, e.Subject, e.Body)
		}
	}
	return b.String()
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func init() {
	generateCmd.Flags().StringVar(&genTenant, "tenant", "", "tenant ID (required)")
	generateCmd.Flags().StringVar(&genPersona, "persona", "", "target persona, e.g. \"VP of Sales\" (required)")
	generateCmd.Flags().StringVar(&genVertical, "vertical", "", "target vertical (required)")
	generateCmd.Flags().IntVar(&genLength, "length", generation.DefaultSequenceLength, "emails per sequence (2-6)")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "print the stored generation as JSON")
	for _, f := range []string{"tenant", "persona", "vertical"} {
		_ = generateCmd.MarkFlagRequired(f)
	}

	retrieveCmd.Flags().StringVar(&retrieveTenant, "tenant", "", "tenant ID (empty for global chunks only)")
	retrieveCmd.Flags().StringVar(&retrieveQuery.Vertical, "vertical", "", "vertical facet")
	retrieveCmd.Flags().StringVar(&retrieveQuery.OfferType, "offer-type", "", "offer type facet")
	retrieveCmd.Flags().StringVar(&retrieveQuery.FunnelStage, "funnel-stage", "", "funnel stage facet")
	retrieveCmd.Flags().IntVar(&retrieveQuery.TopK, "top-k", rag.DefaultTopK, "chunks to return (5-30)")

	rootCmd.AddCommand(generateCmd, retrieveCmd)
}
