package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"volume-reconcile/src/associate"
	"volume-reconcile/src/reconcile"
	"volume-reconcile/src/report"
	"volume-reconcile/src/safety"
	"volume-reconcile/src/snapshots"
	"volume-reconcile/src/tasks"
	"volume-reconcile/src/util/progress"
)

func newReconcileCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		input            string
		audit            string
		pollInterval     time.Duration
		deleteTimeout    time.Duration
		reconcileTimeout time.Duration
		reactiveOnly     bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete orphaned storage objects, resolving blocking snapshots, then repair datastore inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd, stderr)
			client, err := connectClient(cmd)
			if err != nil {
				return err
			}

			objects, err := loadObjects(client, input)
			if err != nil {
				return err
			}
			instances, err := client.ListDiskRefs()
			if err != nil {
				return err
			}
			part := associate.Resolve(objects, instances, log)

			// Preview before anything destructive.
			if err := renderAssociationTable(stdout, objects, part); err != nil {
				return err
			}
			opts := getSafetyOptions(cmd)
			if opts.DryRun {
				fmt.Fprintf(stdout, "%d orphaned objects; nothing deleted (dry run)\n", len(part.Orphans))
				return nil
			}
			if len(part.Orphans) > 0 {
				ok, err := safety.Confirm(opts, os.Stdin, stdout,
					fmt.Sprintf("Delete %d orphaned storage objects?", len(part.Orphans)))
				if err != nil || !ok {
					return err
				}
			}

			var analyzer snapshots.Analyzer = snapshots.ForClient(client)
			if reactiveOnly {
				analyzer = snapshots.DiagnosticAnalyzer{}
			}
			poller := tasks.NewPoller(client, log)
			if pollInterval > 0 {
				poller.Interval = pollInterval
			}

			reporter, closeAudit, err := openReporter(stdout, audit)
			if err != nil {
				return err
			}
			defer closeAudit()

			stepper := progress.NewStepper(stderr, "reconcile", len(objects))
			defer stepper.Finish()

			runner := &reconcile.Runner{
				Client:           client,
				Analyzer:         analyzer,
				Poller:           poller,
				Reporter:         &steppingReporter{inner: reporter, stepper: stepper},
				Log:              log,
				Objects:          objects,
				DeleteCeiling:    deleteTimeout,
				ReconcileCeiling: reconcileTimeout,
			}
			summary, err := runner.Run(cmd.Context())
			if summary != nil {
				stepper.Finish()
				renderSummary(stdout, summary)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Read storage objects from a scan record file instead of the provider")
	cmd.Flags().StringVar(&audit, "audit", "", "Append the outcome audit trail to a file instead of stdout")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", tasks.DefaultInterval, "Interval between task polls")
	cmd.Flags().DurationVar(&deleteTimeout, "delete-timeout", tasks.DefaultDeleteCeiling, "Ceiling for object and snapshot deletion tasks")
	cmd.Flags().DurationVar(&reconcileTimeout, "reconcile-timeout", tasks.DefaultReconcileCeiling, "Ceiling for datastore reconciliation tasks")
	cmd.Flags().BoolVar(&reactiveOnly, "reactive-only", false, "Skip proactive snapshot listing; rely on delete diagnostics")
	return cmd
}

// openReporter returns the audit-trail reporter: an append-only file when
// --audit is set, stdout otherwise.
func openReporter(stdout io.Writer, path string) (reconcile.Reporter, func(), error) {
	if path == "" {
		return report.NewAuditWriter(stdout), func() {}, nil
	}
	w, f, err := report.OpenAuditFile(path)
	if err != nil {
		return nil, nil, err
	}
	return w, func() { _ = f.Close() }, nil
}

// steppingReporter forwards outcomes to the audit trail and advances the
// progress line.
type steppingReporter struct {
	inner   reconcile.Reporter
	stepper *progress.Stepper
}

func (s *steppingReporter) Report(o reconcile.Outcome) error {
	s.stepper.Step(o.ObjectID)
	return s.inner.Report(o)
}

func renderSummary(w io.Writer, s *reconcile.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCOUNT")
	for _, st := range []reconcile.Status{
		reconcile.StatusAssigned,
		reconcile.StatusRemoved,
		reconcile.StatusRemovedWithCleanup,
		reconcile.StatusResolutionFailed,
		reconcile.StatusManualRequired,
		reconcile.StatusFailed,
	} {
		if n := s.Counts[st]; n > 0 {
			fmt.Fprintf(tw, "%s\t%d\n", st, n)
		}
	}
	_ = tw.Flush()

	if len(s.Datastores) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASTORE\tRECONCILIATION\tDETAIL")
	for _, rec := range s.Datastores {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Datastore, rec.Result, rec.Detail)
	}
	_ = tw.Flush()
}
