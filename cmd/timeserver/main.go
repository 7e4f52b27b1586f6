// Command timeserver answers QUERY TIME ORDER over TCP.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

type logOptions struct {
	level string
	json  bool
}

func (o *logOptions) logger() (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(o.level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(lvl)
	if o.json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

func newRootCmd() *cobra.Command {
	logOpts := &logOptions{}
	serveOpts := defaultServeOptions()

	rootCmd := &cobra.Command{
		Use:   "timeserver [port]",
		Short: "Reactor-based TCP time server",
		Long: `timeserver accepts TCP connections on a single epoll reactor and answers
"QUERY TIME ORDER" with the current time. Any other request gets "BAD ORDER".

Running it without a subcommand is the same as "timeserver serve".`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, logOpts, serveOpts, args)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logOpts.level, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logOpts.json, "log-json", false, "Emit logs as JSON")
	serveOpts.bind(rootCmd)

	rootCmd.AddCommand(
		serveCmd(logOpts),
		queryCmd(),
		versionCmd(),
	)
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "timeserver %s (%s)\n", version, commit)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
