package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath    string
	host          string
	port          int
	adminUser     string
	adminPassword string
	useTLS        bool
	timeoutSecs   int
	retrySecs     int
	checkMode     bool
	verbose       bool
	jsonOutput    bool
	metricsAddr   string

	// Build information, set by Execute
	buildVersion string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cqctl",
		Short: "cqctl - CQ/AEM instance configuration reconciler",
		Long: `cqctl reconciles configuration on Adobe CQ/AEM instances through their
administrative HTTP endpoints. Each invocation performs one idempotent
pass: observe the remote state, apply the minimal set of actions to
converge on the desired state, report what changed, and exit.

Resources:
  - Content packages (upload, install, uninstall, delete; retry-tolerant)
  - Users, groups and account passwords
  - OSGi bundles and service components
  - Replication agents`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Connection and behavior flags shared by every resource command
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "instance file path (.cue, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "instance hostname")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "instance port (4502 author, 4503 publish)")
	rootCmd.PersistentFlags().StringVarP(&adminUser, "user", "u", "", "admin user (default admin)")
	rootCmd.PersistentFlags().StringVarP(&adminPassword, "password", "p", "", "admin password")
	rootCmd.PersistentFlags().BoolVar(&useTLS, "tls", false, "use https")
	rootCmd.PersistentFlags().IntVar(&timeoutSecs, "timeout", 0, "retry budget per operation in seconds (default 600)")
	rootCmd.PersistentFlags().IntVar(&retrySecs, "retry-interval", 0, "pause between retries in seconds (default 30)")
	rootCmd.PersistentFlags().BoolVar(&checkMode, "check", false, "dry run: observe only, report what would change")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus exposition address (e.g. :9464)")

	rootCmd.AddCommand(newPackageCommand())
	rootCmd.AddCommand(newUserCommand())
	rootCmd.AddCommand(newGroupCommand())
	rootCmd.AddCommand(newPasswordCommand())
	rootCmd.AddCommand(newBundleCommand())
	rootCmd.AddCommand(newServiceCommand())
	rootCmd.AddCommand(newAgentCommand())

	return rootCmd
}
