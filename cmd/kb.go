package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aaryan23/cold-email-os/internal/kb"
	"github.com/aaryan23/cold-email-os/internal/model"
	"github.com/aaryan23/cold-email-os/pkg/notion"
)

var (
	kbTenant     string
	kbSeedDir    string
	kbSheet      string
	kbSheetIndex int
	kbNotionDB   string
	kbTitle      string
	kbDocType    string
	kbMeta       model.ChunkMetadata
	kbPerfTag    string
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Load documents into the knowledge base",
}

var kbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest the global markdown playbooks",
	Long:  "Ingests every *.md file in the seed directory as a global document. Files already ingested are skipped, so the command is safe to re-run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "kb", false)
		if err != nil {
			return err
		}
		defer env.Close()

		dir := kbSeedDir
		if dir == "" {
			dir = cfg.KB.SeedDir
		}
		sum, err := env.Ingester.SeedDir(ctx, dir, cfg.KB.LockPath)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			[]string{"Files", "Ingested", "Skipped", "Failed"},
			[][]string{{strconv.Itoa(sum.Files), strconv.Itoa(sum.Ingested), strconv.Itoa(sum.Skipped), strconv.Itoa(sum.Failed)}},
			[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
		))
		return nil
	},
}

var kbImportXLSXCmd = &cobra.Command{
	Use:   "import-xlsx <file>",
	Short: "Import past campaigns from a spreadsheet",
	Long:  "Reads subject and body columns from an .xlsx file. Each row becomes a campaign document owned by --tenant, or a global document when --tenant is empty.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "kb", false)
		if err != nil {
			return err
		}
		defer env.Close()

		sum, err := env.Ingester.ImportXLSX(ctx, kbTenant, args[0], kb.XLSXOptions{
			SheetIndex: kbSheetIndex,
			SheetName:  kbSheet,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), importTable(sum))
		return nil
	},
}

var kbImportNotionCmd = &cobra.Command{
	Use:   "import-notion",
	Short: "Import pages from a Notion database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if cfg.Notion.Token == "" {
			return eris.New("notion token is required (COLDEMAIL_NOTION_TOKEN)")
		}
		dbID := kbNotionDB
		if dbID == "" {
			dbID = cfg.Notion.KBDatabase
		}
		if dbID == "" {
			return eris.New("notion database is required (--database or COLDEMAIL_NOTION_KB_DB)")
		}

		env, err := initEnv(ctx, "kb", false)
		if err != nil {
			return err
		}
		defer env.Close()

		sum, err := env.Ingester.ImportNotion(ctx, notion.NewClient(cfg.Notion.Token), dbID, kbTenant)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), importTable(sum))
		return nil
	},
}

var kbAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Ingest a text or markdown file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read document")
		}

		env, err := initEnv(ctx, "kb", false)
		if err != nil {
			return err
		}
		defer env.Close()

		title := kbTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		meta := kbMeta
		meta.PerformanceTag = model.ParsePerformanceTag(kbPerfTag)

		res, err := env.Ingester.IngestText(ctx, model.KBDocument{
			TenantID: kbTenant,
			Title:    title,
			DocType:  kbDocType,
			Metadata: meta,
		}, string(raw))
		if err != nil {
			return err
		}

		zap.L().Info("document ingested",
			zap.String("document_id", res.Document.ID),
			zap.Int("chunks", res.Chunks),
		)
		fmt.Fprintln(cmd.OutOrStdout(), res.Document.ID)
		return nil
	},
}

func importTable(sum *kb.ImportSummary) string {
	return renderTable(
		[]string{"Rows", "Ingested", "Skipped", "Failed"},
		[][]string{{strconv.Itoa(sum.Rows), strconv.Itoa(sum.Ingested), strconv.Itoa(sum.Skipped), strconv.Itoa(sum.Failed)}},
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
	)
}

func init() {
	kbCmd.PersistentFlags().StringVar(&kbTenant, "tenant", "", "owning tenant ID (empty for global documents)")

	kbSeedCmd.Flags().StringVar(&kbSeedDir, "dir", "", "seed directory (default from config)")

	kbImportXLSXCmd.Flags().StringVar(&kbSheet, "sheet", "", "sheet name (overrides --sheet-index)")
	kbImportXLSXCmd.Flags().IntVar(&kbSheetIndex, "sheet-index", 0, "zero-based sheet index")

	kbImportNotionCmd.Flags().StringVar(&kbNotionDB, "database", "", "Notion database ID (default from config)")

	kbAddCmd.Flags().StringVar(&kbTitle, "title", "", "document title (default: file name)")
	kbAddCmd.Flags().StringVar(&kbDocType, "type", model.DocTypeGuide, "document type")
	kbAddCmd.Flags().StringVar(&kbMeta.Vertical, "vertical", "", "vertical facet")
	kbAddCmd.Flags().StringVar(&kbMeta.OfferType, "offer-type", "", "offer type facet")
	kbAddCmd.Flags().StringVar(&kbMeta.FunnelStage, "funnel-stage", "", "funnel stage facet")
	kbAddCmd.Flags().StringVar(&kbMeta.Tone, "tone", "", "tone facet")
	kbAddCmd.Flags().StringVar(&kbPerfTag, "performance", "", "winner, average or loser")

	kbCmd.AddCommand(kbSeedCmd, kbImportXLSXCmd, kbImportNotionCmd, kbAddCmd)
	rootCmd.AddCommand(kbCmd)
}
