package commands

import (
	"github.com/spf13/cobra"

	"github.com/cqops/cqctl/pkg/osgi"
)

func newBundleCommand() *cobra.Command {
	var (
		name  string
		state string
	)

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Reconcile an OSGi bundle",
		Example: `  # Stop the WebDAV bundle
  cqctl bundle --host cq.example.com --port 4502 -p secret \
    --name org.apache.sling.jcr.webdav --state stopped`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := newRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			bundle, err := osgi.NewBundle(rt.client, osgi.BundleSpec{
				Name:  name,
				State: state,
			}, rt.check, rt.log)
			if err != nil {
				return err
			}

			result, err := bundle.Reconcile(cmd.Context())
			return rt.finish("bundle", result, err)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "bundle symbolic name")
	cmd.Flags().StringVar(&state, "state", "", "desired state (started, stopped)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("state")

	return cmd
}
