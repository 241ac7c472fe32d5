package packages

import (
	"encoding/json"
	"fmt"
)

// decodeListing parses a package manager listing body. Two historical
// formats exist: the flat form served by list.jsp
// ({"results": [...], "total": n}) and the legacy nested tree keyed by
// repository path segments. The flat form is tried first; anything else is
// walked as a tree.
func decodeListing(body []byte) (*Listing, error) {
	var flat Listing
	if err := json.Unmarshal(body, &flat); err == nil && flat.Results != nil {
		return &flat, nil
	}

	var tree map[string]json.RawMessage
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("package listing is neither a result list nor a package tree: %w", err)
	}

	listing := &Listing{}
	collectEntries(tree, "", listing)
	return listing, nil
}

// collectEntries walks a legacy listing tree. A node that carries a string
// "name" field is a package entry; any other object node is a path segment
// to descend into. The key of the segment containing an entry becomes its
// group when the entry carries none of its own.
func collectEntries(node map[string]json.RawMessage, parent string, listing *Listing) {
	for key, raw := range node {
		var child map[string]json.RawMessage
		if err := json.Unmarshal(raw, &child); err != nil {
			continue
		}
		if entry, ok := entryFromNode(child); ok {
			if entry.Group == "" {
				entry.Group = parent
			}
			listing.Results = append(listing.Results, entry)
			continue
		}
		collectEntries(child, key, listing)
	}
}

func entryFromNode(node map[string]json.RawMessage) (Entry, bool) {
	raw, ok := node["name"]
	if !ok {
		return Entry{}, false
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil || name == "" {
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(mustMarshal(node), &entry); err != nil {
		return Entry{}, false
	}
	return entry, true
}

func mustMarshal(node map[string]json.RawMessage) []byte {
	data, err := json.Marshal(node)
	if err != nil {
		// A map of raw messages always remarshals.
		panic(err)
	}
	return data
}

// serviceResponse is the JSON body returned by package manager commands
// (cmd=install|uninstall|delete).
type serviceResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
}
