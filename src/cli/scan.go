package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"volume-reconcile/src/report"
)

func newScanCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover storage objects and write the scan record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd, stderr)
			client, err := connectClient(cmd)
			if err != nil {
				return err
			}
			objects, err := client.ListStorageObjects()
			if err != nil {
				return err
			}
			log.Info("discovery complete", "objects", len(objects))

			w := stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return report.WriteScan(w, objects)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the scan record to a file instead of stdout")
	return cmd
}
