package commands

import (
	"github.com/spf13/cobra"

	"github.com/cqops/cqctl/pkg/replication"
)

func newAgentCommand() *cobra.Command {
	var (
		name              string
		runmode           string
		state             string
		transportURI      string
		transportUser     string
		transportPassword string
		title             string
	)

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Reconcile a replication agent",
		Example: `  # Create and enable a publish agent
  cqctl agent --host cq.example.com --port 4502 -p secret \
    --name publish --runmode author --state enabled \
    --transport-uri http://publish.example.com:4503/bin/receive?sling:authRequestLogin=1 \
    --transport-user admin --transport-password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := newRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			agent, err := replication.NewAgent(rt.client, replication.AgentSpec{
				Name:              name,
				Runmode:           runmode,
				State:             state,
				TransportURI:      transportURI,
				TransportUser:     transportUser,
				TransportPassword: transportPassword,
				Title:             title,
			}, rt.check, rt.log)
			if err != nil {
				return err
			}

			result, err := agent.Reconcile(cmd.Context())
			return rt.finish("agent", result, err)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "agent node name")
	cmd.Flags().StringVar(&runmode, "runmode", "author", "agent folder runmode (author, publish)")
	cmd.Flags().StringVar(&state, "state", "", "desired state (present, absent, enabled, disabled)")
	cmd.Flags().StringVar(&transportURI, "transport-uri", "", "replication endpoint URI")
	cmd.Flags().StringVar(&transportUser, "transport-user", "", "endpoint user")
	cmd.Flags().StringVar(&transportPassword, "transport-password", "", "endpoint password")
	cmd.Flags().StringVar(&title, "title", "", "display title")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("state")

	return cmd
}
