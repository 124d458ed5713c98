package cli

import (
	"github.com/spf13/cobra"

	"volume-reconcile/src/endpoint"
	"volume-reconcile/src/inventory"
	"volume-reconcile/src/safety"
)

// addGlobalFlags adds the persistent connection, logging and safety flags.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("endpoint", "unix:", "Provider endpoint URI (e.g., unix:/var/lib/incus/unix.socket)")
	cmd.PersistentFlags().String("log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().String("log-format", "text", "Log format: text|json")
	cmd.PersistentFlags().Bool("dry-run", false, "Show planned actions without making changes")
	cmd.PersistentFlags().BoolP("yes", "y", false, "Assume 'yes' to prompts and run non-interactively")
	cmd.PersistentFlags().Bool("force", false, "Skip confirmation for destructive operations (implies --yes)")
}

// getSafetyOptions reads the global safety flags.
func getSafetyOptions(cmd *cobra.Command) safety.Options {
	dry, _ := cmd.Root().PersistentFlags().GetBool("dry-run")
	yes, _ := cmd.Root().PersistentFlags().GetBool("yes")
	force, _ := cmd.Root().PersistentFlags().GetBool("force")
	return safety.Options{DryRun: dry, Yes: yes, Force: force}
}

// connectFunc dials the provider; tests swap it for a fake.
var connectFunc = func(ep endpoint.Endpoint) (inventory.Client, error) {
	return inventory.ConnectUnix(ep.SocketPath)
}

// SetConnectForTest overrides the provider connection and returns a reset
// function.
func SetConnectForTest(f func(endpoint.Endpoint) (inventory.Client, error)) func() {
	old := connectFunc
	connectFunc = f
	return func() { connectFunc = old }
}

// connectClient parses --endpoint and dials the provider.
func connectClient(cmd *cobra.Command) (inventory.Client, error) {
	raw, _ := cmd.Root().PersistentFlags().GetString("endpoint")
	ep, err := endpoint.Parse(raw)
	if err != nil {
		return nil, err
	}
	return connectFunc(ep)
}
