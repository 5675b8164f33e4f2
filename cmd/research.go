package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/queue"
	"github.com/aaryan23/cold-email-os/internal/research"
)

var (
	researchTenant     string
	researchTranscript string
	researchWebsite    string
	researchInline     bool
	reportJSON         bool
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run and inspect tenant research",
}

var researchRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Request research for a tenant from a transcript file",
	Long:  "Creates a pending report and queues the research job. With --inline the job runs in this process and the command waits for it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		transcript, err := os.ReadFile(researchTranscript)
		if err != nil {
			return eris.Wrap(err, "read transcript")
		}

		mode := "serve"
		if researchInline {
			mode = "inline"
		}
		env, err := initEnv(ctx, mode, researchInline)
		if err != nil {
			return err
		}
		defer env.Close()

		var q research.Enqueuer
		if researchInline {
			q = &queue.Inline{
				Activities: &queue.Activities{Runner: env.Researcher, Reports: env.Store},
				Policy:     queue.PolicyFromConfig(cfg.Queue),
			}
		} else {
			tc, err := queue.Dial(cfg.Temporal)
			if err != nil {
				return err
			}
			defer tc.Close()
			q = queue.NewClient(tc, cfg.Temporal.TaskQueue, queue.PolicyFromConfig(cfg.Queue))
		}

		report, err := research.NewService(env.Store, q).RequestResearch(ctx, researchTenant, string(transcript), researchWebsite)
		if err != nil {
			return err
		}

		if researchInline {
			zap.L().Info("research complete", zap.String("report_id", report.ID))
		} else {
			zap.L().Info("research queued", zap.String("report_id", report.ID), zap.String("workflow_id", queue.WorkflowID(researchTenant)))
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.ID)
		return nil
	},
}

var researchReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a tenant's active research report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "kb", false)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Store.GetActiveReport(ctx, researchTenant)
		if err != nil {
			return err
		}
		if report == nil {
			return eris.Errorf("tenant %s has no active report", researchTenant)
		}

		out := cmd.OutOrStdout()
		if reportJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(report.ReportJSON)
		}
		_, err = fmt.Fprintln(out, report.ReportText)
		return err
	},
}

func init() {
	researchCmd.PersistentFlags().StringVar(&researchTenant, "tenant", "", "tenant ID (required)")
	_ = researchCmd.MarkPersistentFlagRequired("tenant")

	researchRunCmd.Flags().StringVar(&researchTranscript, "transcript", "", "path to the sales-call transcript (required)")
	researchRunCmd.Flags().StringVar(&researchWebsite, "website", "", "client website URL")
	researchRunCmd.Flags().BoolVar(&researchInline, "inline", false, "run the job in-process instead of queueing it")
	_ = researchRunCmd.MarkFlagRequired("transcript")

	researchReportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the structured report")

	researchCmd.AddCommand(researchRunCmd, researchReportCmd)
	rootCmd.AddCommand(researchCmd)
}
