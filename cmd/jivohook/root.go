package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jivohook",
		Short: "Jivo chat webhook receiver",
		Long: `jivohook receives Jivo chat webhook callbacks, decodes them into typed
events and answers with the reply the platform expects.

Run "jivohook serve" to start the HTTP receiver, or "jivohook parse" to
inspect a stored payload.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default: ./config.yaml or /etc/jivohook/config.yaml)")

	root.AddCommand(
		newServeCmd(),
		newParseCmd(),
		newAuditCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "jivohook %s\n", version)
			return err
		},
	}
}
