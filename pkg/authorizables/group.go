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

// GroupSpec describes the desired state of one group.
type GroupSpec struct {
	// ID is the authorizable ID of the group.
	ID string `json:"id" validate:"required"`

	// State is present or absent.
	State string `json:"state" validate:"required,oneof=present absent"`

	// Name is an optional display name set on creation.
	Name string `json:"name,omitempty"`

	// Members lists authorizable IDs added to the group on creation.
	Members []string `json:"members,omitempty"`
}

// Group reconciles one group.
type Group struct {
	transport crx.Transport
	spec      GroupSpec
	check     bool
	log       zerolog.Logger
}

// NewGroup creates a group reconciler.
func NewGroup(transport crx.Transport, spec GroupSpec, check bool, log zerolog.Logger) (*Group, error) {
	if err := validator.New().Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid group spec: %w", err)
	}
	return &Group{
		transport: transport,
		spec:      spec,
		check:     check,
		log:       log.With().Str("group", spec.ID).Logger(),
	}, nil
}

// Reconcile ensures the group exists or is removed. Implements
// engine.Resource.
func (g *Group) Reconcile(ctx context.Context) (*engine.Result, error) {
	path, found, err := lookupPath(ctx, g.transport, groupsRoot, g.spec.ID)
	if err != nil {
		return nil, err
	}

	result := &engine.Result{}
	switch g.spec.State {
	case "present":
		if found {
			return result, nil
		}
		result.Record("group created")
		if g.check {
			return result, nil
		}
		if err := g.create(ctx); err != nil {
			return nil, err
		}
		g.log.Info().Msg("group created")
	case "absent":
		if !found {
			return result, nil
		}
		result.Record("group deleted")
		if g.check {
			return result, nil
		}
		form := url.Values{"deleteAuthorizable": {"1"}}
		if err := postCheck(ctx, g.transport, path+".rw.html", form, "group delete"); err != nil {
			return nil, err
		}
		g.log.Info().Msg("group deleted")
	}
	return result, nil
}

func (g *Group) create(ctx context.Context) error {
	form := url.Values{
		"createGroup":    {""},
		"authorizableId": {g.spec.ID},
	}
	if g.spec.Name != "" {
		form.Set("profile/givenName", g.spec.Name)
	}
	if err := postCheck(ctx, g.transport, createServletPath, form, "group create"); err != nil {
		return err
	}

	if len(g.spec.Members) == 0 {
		return nil
	}
	path, found, err := lookupPath(ctx, g.transport, groupsRoot, g.spec.ID)
	if err != nil {
		return err
	}
	if !found {
		return engine.NewOperationError(fmt.Sprintf("group %q not visible after creation", g.spec.ID), nil)
	}
	form = url.Values{"addMembers": g.spec.Members}
	return postCheck(ctx, g.transport, path+".rw.html", form, "group membership update")
}
