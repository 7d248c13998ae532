package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"comfycam/internal/comfy"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the ComfyUI server queue status",
	Long: `Queries the server's queue status endpoint and prints the response
body verbatim. Fails if the server is unreachable or answers non-200.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := comfy.New(cfg.Server.Host)
	body, err := client.QueueStatus(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), body)
	return nil
}
