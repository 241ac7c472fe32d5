package commands

import (
	"github.com/spf13/cobra"

	"github.com/cqops/cqctl/pkg/packages"
)

func newPackageCommand() *cobra.Command {
	var (
		name  string
		state string
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Reconcile a content package",
		Long: `Reconcile a content package against its desired state.

States:
  present      uploaded and installed
  absent       uninstalled and removed from the package manager
  uploaded     present in the package manager, installed or not
  uninstalled  not installed; the package may stay uploaded

Upload and install tolerate the instance's asynchronous package
processing: rejected calls are retried on a fixed interval until the
per-operation timeout elapses.`,
		Example: `  # Upload and install a package
  cqctl package --host cq.example.com --port 4502 -p secret \
    --name acs-aem-commons-content-1.6.2.zip --state present --path /tmp/packages

  # Remove a package, dry run
  cqctl package --host cq.example.com --port 4502 -p secret \
    --name acs-aem-commons-content-1.6.2.zip --state absent --check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			desired, err := packages.ParseState(state)
			if err != nil {
				return err
			}

			rt, cleanup, err := newRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			reconciler, err := packages.New(rt.client,
				packages.Spec{Name: name, State: desired, Path: path, Force: force},
				packages.WithCheckMode(rt.check),
				packages.WithLogger(rt.log),
				packages.WithMetrics(rt.metrics),
				packages.WithTracer(rt.tracer),
			)
			if err != nil {
				return err
			}

			result, err := reconciler.Reconcile(cmd.Context())
			return rt.finish("package", result, err)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "package name or download filename")
	cmd.Flags().StringVar(&state, "state", "", "desired state (present, absent, uploaded, uninstalled)")
	cmd.Flags().StringVar(&path, "path", "", "local package file, or directory containing it")
	cmd.Flags().BoolVar(&force, "force", false, "re-run upload and install even when state already matches")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("state")

	return cmd
}
