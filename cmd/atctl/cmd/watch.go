package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atline-io/atline/codec"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print unsolicited notifications as they arrive",
	Long: `Watch the serial port and print every unsolicited result code the
peripheral emits, one per line, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Pump(gctx) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case line := <-eng.URC():
				printURC(cmd, line)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func printURC(cmd *cobra.Command, line string) {
	name, fields, err := codec.ParseURC(line)
	if err != nil {
		// Unparseable notification, show it raw.
		fmt.Fprintln(cmd.OutOrStdout(), red("%s", line))
		return
	}
	if len(fields) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), yellow("%s", name))
		return
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Raw
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", yellow("%s", name), strings.Join(parts, ", "))
}
