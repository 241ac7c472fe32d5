// Package authorizables manages CQ users and groups through the granite
// security POST servlet. Every module here is a thin reconciler: observe
// the authorizable through a query, issue at most one mutating request
// when observed and desired state differ.
package authorizables

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cqops/cqctl/pkg/engine"
	"github.com/cqops/cqctl/pkg/transports/crx"
)

const (
	// createServletPath is the granite POST servlet for creating
	// authorizables.
	createServletPath = "/libs/granite/security/post/authorizables"

	usersRoot  = "/home/users"
	groupsRoot = "/home/groups"
)

// queryResponse is the querybuilder response shape used for lookups.
type queryResponse struct {
	Success bool `json:"success"`
	Total   int  `json:"total"`
	Hits    []struct {
		Path string `json:"jcr:path"`
	} `json:"hits"`
}

// lookupPath resolves an authorizable ID to its repository path. Absence
// is a normal outcome reported through the bool, not an error.
func lookupPath(ctx context.Context, transport crx.Transport, root, id string) (string, bool, error) {
	query := url.Values{
		"path":             {root},
		"1_property":       {"rep:authorizableId"},
		"1_property.value": {id},
		"p.limit":          {"-1"},
		"p.hits":           {"full"},
	}
	resp, err := transport.Get(ctx, "/bin/querybuilder.json?"+query.Encode())
	if err != nil {
		return "", false, engine.NewRequestError("authorizable lookup failed", err).WithOperation("observe")
	}
	if !resp.OK() {
		return "", false, engine.NewRequestError("authorizable lookup failed", nil).
			WithOperation("observe").WithResponse(resp.Status, resp.Snippet())
	}
	var qr queryResponse
	if err := json.Unmarshal(resp.Body, &qr); err != nil {
		return "", false, engine.NewDecodeError("malformed authorizable lookup response", err)
	}
	if len(qr.Hits) == 0 {
		return "", false, nil
	}
	return qr.Hits[0].Path, true, nil
}

// postCheck issues a form POST and converts a failure into an operation
// error carrying the response.
func postCheck(ctx context.Context, transport crx.Transport, path string, form url.Values, what string) error {
	resp, err := transport.PostForm(ctx, path, form)
	if err != nil {
		return engine.NewOperationError(fmt.Sprintf("%s failed", what), err)
	}
	if !resp.OK() {
		return engine.NewOperationError(fmt.Sprintf("%s failed", what), nil).
			WithResponse(resp.Status, resp.Snippet())
	}
	return nil
}
