package commands

import (
	"github.com/spf13/cobra"

	"github.com/cqops/cqctl/pkg/authorizables"
)

func newUserCommand() *cobra.Command {
	var (
		id       string
		state    string
		password string
		groups   []string
	)

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Reconcile a user account",
		Example: `  # Create a deployment user in the administrators group
  cqctl user --host cq.example.com --port 4502 -p secret \
    --id deployer --state present --user-password changeme --group administrators`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := newRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := authorizables.NewUser(rt.client, authorizables.UserSpec{
				ID:       id,
				State:    state,
				Password: password,
				Groups:   groups,
			}, rt.check, rt.log)
			if err != nil {
				return err
			}

			result, err := user.Reconcile(cmd.Context())
			return rt.finish("user", result, err)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "authorizable ID of the user")
	cmd.Flags().StringVar(&state, "state", "", "desired state (present, absent)")
	cmd.Flags().StringVar(&password, "user-password", "", "initial password when creating")
	cmd.Flags().StringSliceVar(&groups, "group", nil, "group to add the user to on creation (repeatable)")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("state")

	return cmd
}
