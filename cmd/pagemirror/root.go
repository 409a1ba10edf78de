package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pagemirror.
// The root command itself mirrors the URLs given as arguments.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagemirror [url...]",
		Short: "Save web pages and their assets for offline viewing",
		Long: `pagemirror downloads each page given on the command line, saves its
images, scripts and stylesheets under sources/<slug>/, and writes the page
as <slug>.html with every saved asset pointing at the local copy.

Pages are processed one after another in argument order. A page that fails
is reported and the next one is processed; the exit status stays 0.

With --metadata nothing is saved: the number of links and images is printed
together with the time the page was last fetched.

Examples:
  # Mirror two pages
  pagemirror https://example.com https://example.com/blog

  # Print metadata only
  pagemirror --metadata https://example.com

  # Mirror through a SOCKS5 proxy, one request per second
  pagemirror --proxy 127.0.0.1:9050 --delay 1s https://example.com

  # JSON output for scripting
  pagemirror --json https://example.com`,
		Version:       getVersion(),
		Args:          cobra.ArbitraryArgs,
		RunE:          runMirrorCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addMirrorFlags(cmd)

	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
