package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one capture/generate cycle",
	Long: `Runs a single cycle in the foreground: capture a frame, upload it,
queue the prompt, poll until the result is ready, and download it. Status
transitions are printed as they happen.

Example:
  comfycam run --host 127.0.0.1:8188`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.device.Close()

	a.status.OnChange(func(text string) {
		fmt.Fprintln(cmd.OutOrStdout(), text)
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !a.ctrl.StartSingleRun(ctx) {
		return fmt.Errorf("a cycle is already running")
	}
	a.ctrl.Wait()

	if _, name := a.status.Result(); name != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Result saved from %s\n", name)
	}
	return nil
}
