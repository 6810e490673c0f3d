package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atline-io/atline/codec"
)

var (
	yellow = color.New(color.FgHiYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

var sendCmd = &cobra.Command{
	Use:   "send <name> [arg]...",
	Short: "Send one AT command and print the response",
	Long: `Send one AT command and print its information lines.

The name is given without the AT prefix, e.g. "+CSQ" or "I". Arguments
turn the command into its write form: decimal arguments are sent as
integers, everything else as a quoted string.

  atctl send +CSQ
  atctl send --read +CPIN
  atctl send +CMGF 1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

const (
	flagRead = "read"
	flagTest = "test"
)

func init() {
	sendCmd.Flags().Bool(flagRead, false, "issue the read form: AT<name>?")
	sendCmd.Flags().Bool(flagTest, false, "issue the test form: AT<name>=?")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	command, err := buildCommand(cmd, args)
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

	resp, sendErr := eng.Send(gctx, command)
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.ErrOrStderr(), red("pump: %v", err))
	}

	if sendErr != nil {
		fmt.Fprintln(cmd.OutOrStdout(), red("%v", sendErr))
		return sendErr
	}
	for _, line := range resp.Lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	fmt.Fprintln(cmd.OutOrStdout(), green("OK"))
	return nil
}

// buildCommand translates command-line arguments into a typed command
// with a freeform response grammar, which is the only sensible shape for
// ad hoc diagnostics.
func buildCommand(cmd *cobra.Command, args []string) (codec.Command, error) {
	name := strings.TrimPrefix(strings.ToUpper(args[0]), "AT")
	command := codec.Command{
		Name:     name,
		Response: codec.Grammar{Kind: codec.GrammarLines},
	}

	read, _ := cmd.Flags().GetBool(flagRead)
	test, _ := cmd.Flags().GetBool(flagTest)
	switch {
	case read && test:
		return codec.Command{}, errors.New("--read and --test are mutually exclusive")
	case read:
		command.Kind = codec.KindRead
	case test:
		command.Kind = codec.KindTest
	case len(args) > 1:
		command.Kind = codec.KindWrite
	}
	if command.Kind != codec.KindWrite && len(args) > 1 {
		return codec.Command{}, errors.New("arguments require the write form")
	}

	for _, arg := range args[1:] {
		if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
			command.Args = append(command.Args, codec.Int(n))
		} else {
			command.Args = append(command.Args, codec.String(arg))
		}
	}
	return command, nil
}
