package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/factoryos/console-sync/internal/console"
)

var (
	ingestMachine string
	ingestType    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Upload a manual into the knowledge graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		page, err := mount[*console.DashboardPage](ctx, a, console.KindDashboard)
		if err != nil {
			return err
		}

		page.OpenUpload()
		page.SetUploadFile(filepath.Base(args[0]), content)
		if ingestMachine != "" {
			if err := page.SetUploadTarget(ingestMachine); err != nil {
				return err
			}
		}
		if ingestType != "" {
			page.SetManualType(ingestType)
		}
		if err := page.SubmitUpload(ctx); err != nil {
			return err
		}
		okColor.Fprintf(a.out, "Uploaded %s (%d bytes).\n", filepath.Base(args[0]), len(content))
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMachine, "machine", "", "Machine the document belongs to (defaults to the first known machine)")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "Document type")
}
