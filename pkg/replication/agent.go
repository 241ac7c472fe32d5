// Package replication manages replication agent nodes under
// /etc/replication through Sling POSTs.
package replication

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/cqops/cqctl/pkg/engine"
	"github.com/cqops/cqctl/pkg/transports/crx"
)

// AgentSpec describes the desired state of one replication agent.
type AgentSpec struct {
	// Name is the agent node name.
	Name string `json:"name" validate:"required"`

	// Runmode selects the agent folder (author or publish).
	Runmode string `json:"runmode" validate:"required,oneof=author publish"`

	// State is present, absent, enabled or disabled. Present and enabled
	// both create the agent when missing; enabled additionally flips the
	// enabled property on.
	State string `json:"state" validate:"required,oneof=present absent enabled disabled"`

	// TransportURI is the replication endpoint, required when creating.
	TransportURI string `json:"transport_uri,omitempty"`

	// TransportUser authenticates toward the endpoint.
	TransportUser string `json:"transport_user,omitempty"`

	// TransportPassword authenticates toward the endpoint.
	TransportPassword string `json:"transport_password,omitempty"`

	// Title is an optional display title.
	Title string `json:"title,omitempty"`
}

// observedAgent is the state read back from the agent node.
type observedAgent struct {
	exists       bool
	enabled      bool
	transportURI string
}

// Agent reconciles one replication agent.
type Agent struct {
	transport crx.Transport
	spec      AgentSpec
	check     bool
	log       zerolog.Logger
}

// NewAgent creates a replication agent reconciler.
func NewAgent(transport crx.Transport, spec AgentSpec, check bool, log zerolog.Logger) (*Agent, error) {
	if err := validator.New().Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid agent spec: %w", err)
	}
	return &Agent{
		transport: transport,
		spec:      spec,
		check:     check,
		log:       log.With().Str("agent", spec.Name).Str("runmode", spec.Runmode).Logger(),
	}, nil
}

func (a *Agent) agentPath() string {
	return fmt.Sprintf("/etc/replication/agents.%s/%s", a.spec.Runmode, a.spec.Name)
}

// Reconcile converges the agent node toward the desired state. Implements
// engine.Resource.
func (a *Agent) Reconcile(ctx context.Context) (*engine.Result, error) {
	obs, err := a.observe(ctx)
	if err != nil {
		return nil, err
	}

	result := &engine.Result{}
	switch a.spec.State {
	case "absent":
		if !obs.exists {
			return result, nil
		}
		result.Record("agent deleted")
		if a.check {
			return result, nil
		}
		if err := a.delete(ctx); err != nil {
			return nil, err
		}
		a.log.Info().Msg("agent deleted")
		return result, nil
	case "present", "enabled", "disabled":
		wantEnabled := a.spec.State != "disabled"
		needsWrite := !obs.exists ||
			(a.spec.TransportURI != "" && obs.transportURI != a.spec.TransportURI) ||
			(a.spec.State != "present" && obs.enabled != wantEnabled)
		if !needsWrite {
			return result, nil
		}
		if !obs.exists {
			result.Record("agent created")
		} else {
			result.Record("agent updated")
		}
		if a.check {
			return result, nil
		}
		if err := a.write(ctx, wantEnabled); err != nil {
			return nil, err
		}
		a.log.Info().Msg("agent written")
	}
	return result, nil
}

// observe reads the agent content node. A 404 is the normal "absent"
// outcome.
func (a *Agent) observe(ctx context.Context) (*observedAgent, error) {
	resp, err := a.transport.Get(ctx, a.agentPath()+"/jcr:content.json")
	if err != nil {
		return nil, engine.NewRequestError("agent status request failed", err).WithOperation("observe")
	}
	if resp.Status == http.StatusNotFound {
		return &observedAgent{}, nil
	}
	if !resp.OK() {
		return nil, engine.NewRequestError("agent status request failed", nil).
			WithOperation("observe").WithResponse(resp.Status, resp.Snippet())
	}

	var node struct {
		Enabled      string `json:"enabled"`
		TransportURI string `json:"transportUri"`
	}
	if err := json.Unmarshal(resp.Body, &node); err != nil {
		return nil, engine.NewDecodeError("malformed agent node", err)
	}
	return &observedAgent{
		exists:       true,
		enabled:      node.Enabled == "true",
		transportURI: node.TransportURI,
	}, nil
}

func (a *Agent) write(ctx context.Context, enabled bool) error {
	form := url.Values{
		"jcr:content/sling:resourceType": {"cq/replication/components/agent"},
		"jcr:content/cq:template":        {"/libs/cq/replication/templates/agent"},
		"jcr:content/enabled":            {fmt.Sprintf("%t", enabled)},
		"jcr:primaryType":                {"cq:Page"},
	}
	if a.spec.TransportURI != "" {
		form.Set("jcr:content/transportUri", a.spec.TransportURI)
	}
	if a.spec.TransportUser != "" {
		form.Set("jcr:content/transportUser", a.spec.TransportUser)
	}
	if a.spec.TransportPassword != "" {
		form.Set("jcr:content/transportPassword", a.spec.TransportPassword)
	}
	if a.spec.Title != "" {
		form.Set("jcr:content/jcr:title", a.spec.Title)
	}

	resp, err := a.transport.PostForm(ctx, a.agentPath(), form)
	if err != nil {
		return engine.NewOperationError("agent write failed", err)
	}
	if !resp.OK() {
		return engine.NewOperationError("agent write failed", nil).WithResponse(resp.Status, resp.Snippet())
	}
	return nil
}

func (a *Agent) delete(ctx context.Context) error {
	form := url.Values{":operation": {"delete"}}
	resp, err := a.transport.PostForm(ctx, a.agentPath(), form)
	if err != nil {
		return engine.NewOperationError("agent delete failed", err)
	}
	if !resp.OK() {
		return engine.NewOperationError("agent delete failed", nil).WithResponse(resp.Status, resp.Snippet())
	}
	return nil
}
