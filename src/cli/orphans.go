package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"volume-reconcile/src/associate"
	"volume-reconcile/src/inventory"
	"volume-reconcile/src/report"
)

func newOrphansCmd(stdout, stderr io.Writer) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Show which storage objects are assigned and which are orphaned",
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

			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(part)
			case "table", "":
				return renderAssociationTable(stdout, objects, part)
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Read storage objects from a scan record file instead of the provider")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

// loadObjects returns the object set either from a scan record file or
// from a live provider listing.
func loadObjects(client inventory.Client, input string) ([]inventory.StorageObject, error) {
	if input == "" {
		return client.ListStorageObjects()
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return report.ParseScan(f)
}

func renderAssociationTable(w io.Writer, objects []inventory.StorageObject, part associate.Partition) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDATASTORE\tCAPACITY_GB\tSTATUS\tINSTANCE")
	for _, o := range objects {
		status, instance := "orphan", ""
		if owner, ok := part.AssignedTo(o.ID); ok {
			status, instance = "assigned", owner
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", o.ID, o.Name, o.Datastore, o.CapacityGB, status, instance)
	}
	return tw.Flush()
}
