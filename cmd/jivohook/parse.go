package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
)

func newParseCmd() *cobra.Command {
	var schema bool

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Decode a webhook payload and print the typed event",
		Long: `parse decodes a stored webhook payload the way the receiver does and
prints its event type followed by the decoded event as JSON. Use "-" to read
the payload from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return parse(cmd.OutOrStdout(), raw, schema)
		},
	}
	cmd.Flags().BoolVar(&schema, "schema", false, "also print the compound fields of the event")
	return cmd
}

func readPayload(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return raw, nil
}

func parse(w io.Writer, raw []byte, schema bool) error {
	ev, err := webhooks.NewEvent(raw)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n%s\n", ev.Type(), out); err != nil {
		return err
	}

	if !schema {
		return nil
	}
	fmt.Fprintln(w, "fields:")
	for _, f := range webhooks.Describe(ev) {
		if _, err := fmt.Fprintf(w, "  %-16s %-16s %s\n", f.Name, f.Kind, f.Shape); err != nil {
			return err
		}
	}
	return nil
}
