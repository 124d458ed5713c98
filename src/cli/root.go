package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd returns the root cobra command for the volume-reconcile CLI.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "volume-reconcile",
		Short:         "Reconcile orphaned detachable storage volumes against compute instances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addGlobalFlags(cmd)

	cmd.AddCommand(newVersionCmd(stdout))
	cmd.AddCommand(newScanCmd(stdout, stderr))
	cmd.AddCommand(newOrphansCmd(stdout, stderr))
	cmd.AddCommand(newReconcileCmd(stdout, stderr))

	return cmd
}

// Execute runs the CLI with the process stdio. SIGINT/SIGTERM cancel the
// run between poll intervals; in-flight remote tasks are never cancelled.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
