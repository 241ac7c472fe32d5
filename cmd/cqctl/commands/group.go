package commands

import (
	"github.com/spf13/cobra"

	"github.com/cqops/cqctl/pkg/authorizables"
)

func newGroupCommand() *cobra.Command {
	var (
		id      string
		state   string
		name    string
		members []string
	)

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Reconcile a group",
		Example: `  # Ensure a group exists with two members
  cqctl group --host cq.example.com --port 4502 -p secret \
    --id content-authors --state present --member alice --member bob`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := newRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			group, err := authorizables.NewGroup(rt.client, authorizables.GroupSpec{
				ID:      id,
				State:   state,
				Name:    name,
				Members: members,
			}, rt.check, rt.log)
			if err != nil {
				return err
			}

			result, err := group.Reconcile(cmd.Context())
			return rt.finish("group", result, err)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "authorizable ID of the group")
	cmd.Flags().StringVar(&state, "state", "", "desired state (present, absent)")
	cmd.Flags().StringVar(&name, "name", "", "display name set on creation")
	cmd.Flags().StringSliceVar(&members, "member", nil, "authorizable added to the group on creation (repeatable)")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("state")

	return cmd
}
