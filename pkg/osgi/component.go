package osgi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/cqops/cqctl/pkg/engine"
	"github.com/cqops/cqctl/pkg/transports/crx"
)

// ComponentSpec describes the desired state of one declarative service
// component.
type ComponentSpec struct {
	// Name is the component name.
	Name string `json:"name" validate:"required"`

	// State is enabled or disabled.
	State string `json:"state" validate:"required,oneof=enabled disabled"`
}

// Component reconciles one OSGi component.
type Component struct {
	transport crx.Transport
	spec      ComponentSpec
	check     bool
	log       zerolog.Logger
}

// NewComponent creates a component reconciler.
func NewComponent(transport crx.Transport, spec ComponentSpec, check bool, log zerolog.Logger) (*Component, error) {
	if err := validator.New().Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid component spec: %w", err)
	}
	return &Component{
		transport: transport,
		spec:      spec,
		check:     check,
		log:       log.With().Str("component", spec.Name).Logger(),
	}, nil
}

// Reconcile enables or disables the component as needed. Implements
// engine.Resource.
func (c *Component) Reconcile(ctx context.Context) (*engine.Result, error) {
	state, err := observeConsole(ctx, c.transport, "/system/console/components/"+c.spec.Name+".json", "component")
	if err != nil {
		return nil, err
	}

	result := &engine.Result{}
	var action, message string
	switch c.spec.State {
	case "enabled":
		if state != "disabled" {
			return result, nil
		}
		action, message = "enable", "service enabled"
	case "disabled":
		if state == "disabled" {
			return result, nil
		}
		action, message = "disable", "service disabled"
	}

	result.Record(message)
	if c.check {
		return result, nil
	}

	form := url.Values{"action": {action}}
	resp, err := c.transport.PostForm(ctx, "/system/console/components/"+c.spec.Name, form)
	if err != nil {
		return nil, engine.NewOperationError(fmt.Sprintf("component %s failed", action), err)
	}
	if !resp.OK() {
		return nil, engine.NewOperationError(fmt.Sprintf("component %s failed", action), nil).
			WithResponse(resp.Status, resp.Snippet())
	}
	c.log.Info().Str("action", action).Msg("component state changed")
	return result, nil
}
