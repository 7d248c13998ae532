package cli

import (
	"github.com/spf13/cobra"

	"comfycam/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	flagConfig string
	flagHost   string
)

var rootCmd = &cobra.Command{
	Use:   "comfycam",
	Short: "Capture frames and run them through a ComfyUI server",
	Long: `Comfycam captures a still frame, uploads it to a ComfyUI server,
queues an img2img prompt, polls until the result is ready, and downloads it.
Run one cycle with 'run', or open the interactive watch screen to start and
stop a continuous loop.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			logging.SetLevel(logging.LevelDebug)
		}
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("comfycam version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "comfycam.yaml", "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "ComfyUI host:port (overrides config)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
