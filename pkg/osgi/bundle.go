// Package osgi manages OSGi bundles and components through the Felix web
// console. Both modules are thin reconcilers: one status GET, one action
// POST when the observed state differs from the desired one.
package osgi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/cqops/cqctl/pkg/engine"
	"github.com/cqops/cqctl/pkg/transports/crx"
)

// BundleSpec describes the desired state of one bundle.
type BundleSpec struct {
	// Name is the bundle symbolic name.
	Name string `json:"name" validate:"required"`

	// State is started or stopped.
	State string `json:"state" validate:"required,oneof=started stopped"`
}

// Bundle reconciles one OSGi bundle.
type Bundle struct {
	transport crx.Transport
	spec      BundleSpec
	check     bool
	log       zerolog.Logger
}

// NewBundle creates a bundle reconciler.
func NewBundle(transport crx.Transport, spec BundleSpec, check bool, log zerolog.Logger) (*Bundle, error) {
	if err := validator.New().Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid bundle spec: %w", err)
	}
	return &Bundle{
		transport: transport,
		spec:      spec,
		check:     check,
		log:       log.With().Str("bundle", spec.Name).Logger(),
	}, nil
}

// consoleStatus is the web console status shape shared by bundle and
// component views.
type consoleStatus struct {
	Data []struct {
		State string `json:"state"`
	} `json:"data"`
}

// Reconcile starts or stops the bundle as needed. Implements
// engine.Resource.
func (b *Bundle) Reconcile(ctx context.Context) (*engine.Result, error) {
	state, err := observeConsole(ctx, b.transport, "/system/console/bundles/"+b.spec.Name+".json", "bundle")
	if err != nil {
		return nil, err
	}

	result := &engine.Result{}
	var action, message string
	switch b.spec.State {
	case "started":
		if state == "Active" {
			return result, nil
		}
		action, message = "start", "bundle started"
	case "stopped":
		if state != "Active" {
			return result, nil
		}
		action, message = "stop", "bundle stopped"
	}

	result.Record(message)
	if b.check {
		return result, nil
	}

	form := url.Values{"action": {action}}
	resp, err := b.transport.PostForm(ctx, "/system/console/bundles/"+b.spec.Name, form)
	if err != nil {
		return nil, engine.NewOperationError(fmt.Sprintf("bundle %s failed", action), err)
	}
	if !resp.OK() {
		return nil, engine.NewOperationError(fmt.Sprintf("bundle %s failed", action), nil).
			WithResponse(resp.Status, resp.Snippet())
	}
	b.log.Info().Str("action", action).Msg("bundle state changed")
	return result, nil
}

// observeConsole fetches a web console status view and returns the
// reported state of the first entry.
func observeConsole(ctx context.Context, transport crx.Transport, path, what string) (string, error) {
	resp, err := transport.Get(ctx, path)
	if err != nil {
		return "", engine.NewRequestError(fmt.Sprintf("%s status request failed", what), err).WithOperation("observe")
	}
	if !resp.OK() {
		return "", engine.NewRequestError(fmt.Sprintf("%s status request failed", what), nil).
			WithOperation("observe").WithResponse(resp.Status, resp.Snippet())
	}
	var status consoleStatus
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return "", engine.NewDecodeError(fmt.Sprintf("malformed %s status response", what), err)
	}
	if len(status.Data) == 0 {
		return "", engine.NewOperationError(fmt.Sprintf("%s not found", what), nil)
	}
	return status.Data[0].State, nil
}
