package authorizables

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/cqops/cqctl/pkg/engine"
	"github.com/cqops/cqctl/pkg/transports/crx"
)

// UserSpec describes the desired state of one user account.
type UserSpec struct {
	// ID is the authorizable ID of the user.
	ID string `json:"id" validate:"required"`

	// State is present or absent.
	State string `json:"state" validate:"required,oneof=present absent"`

	// Password is the initial password, required when creating.
	Password string `json:"password,omitempty"`

	// Groups lists groups the user is added to on creation.
	Groups []string `json:"groups,omitempty"`
}

// User reconciles one user account.
type User struct {
	transport crx.Transport
	spec      UserSpec
	check     bool
	log       zerolog.Logger
}

// NewUser creates a user reconciler.
func NewUser(transport crx.Transport, spec UserSpec, check bool, log zerolog.Logger) (*User, error) {
	if err := validator.New().Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid user spec: %w", err)
	}
	if spec.State == "present" && spec.Password == "" {
		return nil, fmt.Errorf("a password is required to create user %q", spec.ID)
	}
	return &User{
		transport: transport,
		spec:      spec,
		check:     check,
		log:       log.With().Str("user", spec.ID).Logger(),
	}, nil
}

// Reconcile ensures the user exists or is removed. Implements
// engine.Resource.
func (u *User) Reconcile(ctx context.Context) (*engine.Result, error) {
	path, found, err := lookupPath(ctx, u.transport, usersRoot, u.spec.ID)
	if err != nil {
		return nil, err
	}

	result := &engine.Result{}
	switch u.spec.State {
	case "present":
		if found {
			return result, nil
		}
		result.Record("user created")
		if u.check {
			return result, nil
		}
		if err := u.create(ctx); err != nil {
			return nil, err
		}
		u.log.Info().Msg("user created")
	case "absent":
		if !found {
			return result, nil
		}
		result.Record("user deleted")
		if u.check {
			return result, nil
		}
		form := url.Values{"deleteAuthorizable": {"1"}}
		if err := postCheck(ctx, u.transport, path+".rw.html", form, "user delete"); err != nil {
			return nil, err
		}
		u.log.Info().Msg("user deleted")
	}
	return result, nil
}

func (u *User) create(ctx context.Context) error {
	form := url.Values{
		"createUser":     {""},
		"authorizableId": {u.spec.ID},
		"rep:password":   {u.spec.Password},
	}
	if err := postCheck(ctx, u.transport, createServletPath, form, "user create"); err != nil {
		return err
	}

	for _, group := range u.spec.Groups {
		groupPath, found, err := lookupPath(ctx, u.transport, groupsRoot, group)
		if err != nil {
			return err
		}
		if !found {
			return engine.NewOperationError(fmt.Sprintf("group %q not found while adding user %q", group, u.spec.ID), nil)
		}
		form := url.Values{"addMembers": {u.spec.ID}}
		if err := postCheck(ctx, u.transport, groupPath+".rw.html", form, "group membership update"); err != nil {
			return err
		}
	}
	return nil
}
