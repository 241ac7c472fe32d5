package commands

import (
	"github.com/spf13/cobra"

	"github.com/cqops/cqctl/pkg/authorizables"
)

func newPasswordCommand() *cobra.Command {
	var (
		id       string
		password string
	)

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reconcile an account password",
		Long: `Set an account password unless it already works. The desired password
is probed first by authenticating with it, so repeated runs stay
idempotent without storing any secret locally.`,
		Example: `  # Rotate the deployer password
  cqctl password --host cq.example.com --port 4502 -p secret \
    --id deployer --new-password s3cret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := newRuntime()
			if err != nil {
				return err
			}
			defer cleanup()

			pw, err := authorizables.NewPassword(rt.client, authorizables.PasswordSpec{
				ID:       id,
				Password: password,
			}, rt.check, rt.log)
			if err != nil {
				return err
			}

			result, err := pw.Reconcile(cmd.Context())
			return rt.finish("password", result, err)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "authorizable ID of the user")
	cmd.Flags().StringVar(&password, "new-password", "", "desired password")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("new-password")

	return cmd
}
