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

// currentUserPath answers any authenticated GET, which makes it a cheap
// probe for whether a candidate password already works.
const currentUserPath = "/libs/granite/security/currentuser.json"

// PasswordSpec describes a desired account password.
type PasswordSpec struct {
	// ID is the authorizable ID of the user.
	ID string `json:"id" validate:"required"`

	// Password is the desired password.
	Password string `json:"password" validate:"required"`
}

// Password reconciles one account password. The desired password is probed
// first by authenticating with it; only a failed probe triggers a change,
// which keeps repeated runs idempotent without storing any secret locally.
type Password struct {
	transport crx.Transport
	spec      PasswordSpec
	check     bool
	log       zerolog.Logger
}

// NewPassword creates a password reconciler.
func NewPassword(transport crx.Transport, spec PasswordSpec, check bool, log zerolog.Logger) (*Password, error) {
	if err := validator.New().Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid password spec: %w", err)
	}
	return &Password{
		transport: transport,
		spec:      spec,
		check:     check,
		log:       log.With().Str("user", spec.ID).Logger(),
	}, nil
}

// Reconcile sets the password unless it already works. Implements
// engine.Resource.
func (p *Password) Reconcile(ctx context.Context) (*engine.Result, error) {
	result := &engine.Result{}

	resp, err := p.transport.GetAs(ctx, currentUserPath, p.spec.ID, p.spec.Password)
	if err != nil {
		return nil, engine.NewRequestError("password probe failed", err).WithOperation("observe")
	}
	if resp.OK() {
		return result, nil
	}

	path, found, err := lookupPath(ctx, p.transport, usersRoot, p.spec.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, engine.NewOperationError(fmt.Sprintf("user %q not found", p.spec.ID), nil)
	}

	result.Record("password changed")
	if p.check {
		return result, nil
	}

	form := url.Values{"rep:password": {p.spec.Password}}
	if err := postCheck(ctx, p.transport, path+".rw.html", form, "password change"); err != nil {
		return nil, err
	}
	p.log.Info().Msg("password changed")
	return result, nil
}
