package replication

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cqops/cqctl/pkg/transports/crx"
)

// fakeRepo emulates the /etc/replication content tree: a node per agent
// with flat string properties, written and deleted through Sling POSTs.
type fakeRepo struct {
	nodes map[string]map[string]string
	posts []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nodes: map[string]map[string]string{}}
}

func (f *fakeRepo) Get(ctx context.Context, path string) (*crx.Response, error) {
	base := strings.TrimSuffix(path, "/jcr:content.json")
	node, ok := f.nodes[base]
	if !ok {
		return &crx.Response{Status: 404, Body: []byte("not found")}, nil
	}
	body, _ := json.Marshal(node)
	return &crx.Response{Status: 200, Body: body}, nil
}

func (f *fakeRepo) GetAs(ctx context.Context, path, user, password string) (*crx.Response, error) {
	return &crx.Response{Status: 404}, nil
}

func (f *fakeRepo) PostForm(ctx context.Context, path string, form url.Values) (*crx.Response, error) {
	f.posts = append(f.posts, path)
	if form.Get(":operation") == "delete" {
		delete(f.nodes, path)
		return &crx.Response{Status: 200}, nil
	}
	node := f.nodes[path]
	if node == nil {
		node = map[string]string{}
		f.nodes[path] = node
	}
	for key, values := range form {
		prop, ok := strings.CutPrefix(key, "jcr:content/")
		if !ok {
			continue
		}
		node[prop] = values[0]
	}
	return &crx.Response{Status: 200}, nil
}

func (f *fakeRepo) PostFile(ctx context.Context, path string, fields map[string]string, fileField, filePath string) (*crx.Response, error) {
	return &crx.Response{Status: 404}, nil
}

func (f *fakeRepo) Config() crx.Config {
	return crx.Config{Host: "cq5", Port: 4502, User: "admin", Password: "admin"}
}

func (f *fakeRepo) seed(path string, enabled bool, transportURI string) {
	f.nodes[path] = map[string]string{
		"enabled":      map[bool]string{true: "true", false: "false"}[enabled],
		"transportUri": transportURI,
	}
}

const publishAgentPath = "/etc/replication/agents.author/publish"

func publishSpec(state string) AgentSpec {
	return AgentSpec{
		Name:         "publish",
		Runmode:      "author",
		State:        state,
		TransportURI: "http://publish:4503/bin/receive",
	}
}

func reconcileAgent(t *testing.T, fake *fakeRepo, spec AgentSpec, check bool) (changed bool, message string) {
	t.Helper()
	a, err := NewAgent(fake, spec, check, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAgent() error: %v", err)
	}
	result, err := a.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	return result.Changed, result.Message()
}

func TestAgentCreate(t *testing.T) {
	fake := newFakeRepo()
	spec := publishSpec("enabled")
	spec.TransportUser = "admin"
	spec.TransportPassword = "admin"
	spec.Title = "Default Agent"

	changed, message := reconcileAgent(t, fake, spec, false)
	if !changed {
		t.Error("Reconcile() Changed = false, want true")
	}
	if message != "agent created" {
		t.Errorf("Message() = %q, want %q", message, "agent created")
	}
	node, ok := fake.nodes[publishAgentPath]
	if !ok {
		t.Fatal("agent node missing after create")
	}
	if node["transportUri"] != spec.TransportURI {
		t.Errorf("transportUri = %q, want %q", node["transportUri"], spec.TransportURI)
	}
	if node["enabled"] != "true" {
		t.Errorf("enabled = %q, want true", node["enabled"])
	}
	if node["jcr:title"] != "Default Agent" {
		t.Errorf("jcr:title = %q, want %q", node["jcr:title"], "Default Agent")
	}
}

func TestAgentCreateIsIdempotent(t *testing.T) {
	fake := newFakeRepo()
	fake.seed(publishAgentPath, true, "http://publish:4503/bin/receive")

	changed, _ := reconcileAgent(t, fake, publishSpec("enabled"), false)
	if changed {
		t.Error("Reconcile() Changed = true on converged agent, want false")
	}
	if len(fake.posts) != 0 {
		t.Errorf("mutating calls = %v, want none", fake.posts)
	}
}

func TestAgentUpdateTransportURI(t *testing.T) {
	fake := newFakeRepo()
	fake.seed(publishAgentPath, true, "http://old:4503/bin/receive")

	changed, message := reconcileAgent(t, fake, publishSpec("enabled"), false)
	if !changed {
		t.Error("Reconcile() Changed = false, want true")
	}
	if message != "agent updated" {
		t.Errorf("Message() = %q, want %q", message, "agent updated")
	}
	if got := fake.nodes[publishAgentPath]["transportUri"]; got != "http://publish:4503/bin/receive" {
		t.Errorf("transportUri = %q, want the new endpoint", got)
	}
}

func TestAgentDisable(t *testing.T) {
	fake := newFakeRepo()
	fake.seed(publishAgentPath, true, "http://publish:4503/bin/receive")

	changed, message := reconcileAgent(t, fake, publishSpec("disabled"), false)
	if !changed {
		t.Error("Reconcile() Changed = false, want true")
	}
	if message != "agent updated" {
		t.Errorf("Message() = %q, want %q", message, "agent updated")
	}
	if got := fake.nodes[publishAgentPath]["enabled"]; got != "false" {
		t.Errorf("enabled = %q, want false", got)
	}
}

func TestAgentPresentIgnoresEnabledFlag(t *testing.T) {
	// State present only cares that the node exists with the right
	// transport; it must not flip a deliberately disabled agent back on.
	fake := newFakeRepo()
	fake.seed(publishAgentPath, false, "http://publish:4503/bin/receive")

	changed, _ := reconcileAgent(t, fake, publishSpec("present"), false)
	if changed {
		t.Error("Reconcile() Changed = true for present disabled agent, want false")
	}
}

func TestAgentDelete(t *testing.T) {
	fake := newFakeRepo()
	fake.seed(publishAgentPath, true, "http://publish:4503/bin/receive")

	spec := AgentSpec{Name: "publish", Runmode: "author", State: "absent"}
	changed, message := reconcileAgent(t, fake, spec, false)
	if !changed {
		t.Error("Reconcile() Changed = false, want true")
	}
	if message != "agent deleted" {
		t.Errorf("Message() = %q, want %q", message, "agent deleted")
	}
	if _, ok := fake.nodes[publishAgentPath]; ok {
		t.Error("agent node still present after delete")
	}
}

func TestAgentDeleteAbsentIsNoop(t *testing.T) {
	fake := newFakeRepo()
	spec := AgentSpec{Name: "publish", Runmode: "author", State: "absent"}
	changed, _ := reconcileAgent(t, fake, spec, false)
	if changed {
		t.Error("Reconcile() Changed = true for missing agent, want false")
	}
}

func TestAgentCheckMode(t *testing.T) {
	fake := newFakeRepo()
	changed, message := reconcileAgent(t, fake, publishSpec("enabled"), true)
	if !changed {
		t.Error("check mode Changed = false, want true")
	}
	if message != "agent created" {
		t.Errorf("Message() = %q, want %q", message, "agent created")
	}
	if len(fake.nodes) != 0 || len(fake.posts) != 0 {
		t.Error("check mode wrote to the repository")
	}
}

func TestAgentRunmodeSelectsFolder(t *testing.T) {
	fake := newFakeRepo()
	spec := publishSpec("enabled")
	spec.Runmode = "publish"
	spec.Name = "flush"

	if changed, _ := reconcileAgent(t, fake, spec, false); !changed {
		t.Fatal("Reconcile() Changed = false, want true")
	}
	if _, ok := fake.nodes["/etc/replication/agents.publish/flush"]; !ok {
		t.Error("agent not created under the publish runmode folder")
	}
}

func TestNewAgentValidation(t *testing.T) {
	cases := []AgentSpec{
		{Runmode: "author", State: "present"},
		{Name: "publish", Runmode: "staging", State: "present"},
		{Name: "publish", Runmode: "author", State: "paused"},
	}
	for _, spec := range cases {
		if _, err := NewAgent(newFakeRepo(), spec, false, zerolog.Nop()); err == nil {
			t.Errorf("NewAgent(%+v) accepted an invalid spec", spec)
		}
	}
}
