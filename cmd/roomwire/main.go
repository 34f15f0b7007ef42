// Package main starts the roomwire signaling server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// main is the entrypoint for the roomwire server.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		logFatal(err)
	}
}

// newRootCmd builds the CLI. Without a subcommand it serves.
func newRootCmd() *cobra.Command {
	var opts serveOptions
	root := &cobra.Command{
		Use:           "roomwire",
		Short:         "Room signaling server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	opts.bind(root)

	var serveOpts serveOptions
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the signaling endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), serveOpts)
		},
	}
	serveOpts.bind(serve)

	root.AddCommand(serve, newDecodeCmd())
	return root
}

// serveOptions are command line overrides of the loaded config.
type serveOptions struct {
	listen     string
	configPath string
	debug      bool
}

// bind registers the serve flags on cmd.
func (o *serveOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.listen, "listen", "", "listen address (overrides LISTEN_ADDR)")
	cmd.Flags().StringVar(&o.configPath, "config", "", "YAML config file (overrides CONFIG_PATH)")
	cmd.Flags().BoolVar(&o.debug, "debug", false, "enable debug logging")
}

// logFatal prints and exits for startup failures.
func logFatal(err error) {
	fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
	os.Exit(1)
}
