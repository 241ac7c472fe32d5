package commands

import (
	"github.com/spf13/cobra"

	"github.com/cqops/cqctl/pkg/osgi"
)

func newServiceCommand() *cobra.Command {
	var (
		name  string
		state string
	)

	cmd := &cobra.Command{
		Use:   "service",
		Short: "Reconcile an OSGi service component",
		Example: `  # Disable the reference adjustment service
  cqctl service --host cq.example.com --port 4502 -p secret \
    --name com.day.cq.wcm.core.impl.reference.ReferenceReplicationListener --state disabled`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := newRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			component, err := osgi.NewComponent(rt.client, osgi.ComponentSpec{
				Name:  name,
				State: state,
			}, rt.check, rt.log)
			if err != nil {
				return err
			}

			result, err := component.Reconcile(cmd.Context())
			return rt.finish("service", result, err)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "component name")
	cmd.Flags().StringVar(&state, "state", "", "desired state (enabled, disabled)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("state")

	return cmd
}
