package osgi

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cqops/cqctl/pkg/engine"
	"github.com/cqops/cqctl/pkg/transports/crx"
)

// fakeConsole emulates the Felix web console status and action endpoints
// for a single bundle and a single component.
type fakeConsole struct {
	bundleState    string
	componentState string
	missing        bool

	posts []string
	forms []url.Values
}

func (f *fakeConsole) Get(ctx context.Context, path string) (*crx.Response, error) {
	if f.missing {
		return &crx.Response{Status: 200, Body: []byte(`{"data":[]}`)}, nil
	}
	state := f.bundleState
	if strings.HasPrefix(path, "/system/console/components/") {
		state = f.componentState
	}
	body := fmt.Sprintf(`{"data":[{"state":%q}]}`, state)
	return &crx.Response{Status: 200, Body: []byte(body)}, nil
}

func (f *fakeConsole) GetAs(ctx context.Context, path, user, password string) (*crx.Response, error) {
	return &crx.Response{Status: 404}, nil
}

func (f *fakeConsole) PostForm(ctx context.Context, path string, form url.Values) (*crx.Response, error) {
	f.posts = append(f.posts, path)
	f.forms = append(f.forms, form)
	switch form.Get("action") {
	case "start":
		f.bundleState = "Active"
	case "stop":
		f.bundleState = "Resolved"
	case "enable":
		f.componentState = "active"
	case "disable":
		f.componentState = "disabled"
	default:
		return &crx.Response{Status: 400}, nil
	}
	return &crx.Response{Status: 200}, nil
}

func (f *fakeConsole) PostFile(ctx context.Context, path string, fields map[string]string, fileField, filePath string) (*crx.Response, error) {
	return &crx.Response{Status: 404}, nil
}

func (f *fakeConsole) Config() crx.Config {
	return crx.Config{Host: "cq5", Port: 4502, User: "admin", Password: "admin"}
}

func TestBundleStart(t *testing.T) {
	fake := &fakeConsole{bundleState: "Resolved"}
	b, err := NewBundle(fake, BundleSpec{Name: "com.example.bundle", State: "started"}, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBundle() error: %v", err)
	}

	result, err := b.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := result.Message(); got != "bundle started" {
		t.Errorf("Message() = %q, want %q", got, "bundle started")
	}
	if fake.bundleState != "Active" {
		t.Errorf("bundle state = %q, want Active", fake.bundleState)
	}
	if len(fake.posts) != 1 || fake.posts[0] != "/system/console/bundles/com.example.bundle" {
		t.Errorf("posts = %v, want one action POST to the bundle path", fake.posts)
	}
}

func TestBundleStartIsIdempotent(t *testing.T) {
	fake := &fakeConsole{bundleState: "Active"}
	b, err := NewBundle(fake, BundleSpec{Name: "com.example.bundle", State: "started"}, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBundle() error: %v", err)
	}

	result, err := b.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if result.Changed {
		t.Error("Reconcile() Changed = true on active bundle, want false")
	}
	if len(fake.posts) != 0 {
		t.Errorf("mutating calls = %v, want none", fake.posts)
	}
}

func TestBundleStop(t *testing.T) {
	fake := &fakeConsole{bundleState: "Active"}
	b, err := NewBundle(fake, BundleSpec{Name: "com.example.bundle", State: "stopped"}, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBundle() error: %v", err)
	}

	result, err := b.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := result.Message(); got != "bundle stopped" {
		t.Errorf("Message() = %q, want %q", got, "bundle stopped")
	}
	if fake.bundleState == "Active" {
		t.Error("bundle still active after stop")
	}
}

func TestBundleCheckMode(t *testing.T) {
	fake := &fakeConsole{bundleState: "Resolved"}
	b, err := NewBundle(fake, BundleSpec{Name: "com.example.bundle", State: "started"}, true, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBundle() error: %v", err)
	}

	result, err := b.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if !result.Changed {
		t.Error("check mode Changed = false, want true")
	}
	if len(fake.posts) != 0 {
		t.Errorf("mutating calls in check mode = %v, want none", fake.posts)
	}
	if fake.bundleState != "Resolved" {
		t.Error("check mode changed the bundle state")
	}
}

func TestBundleNotFound(t *testing.T) {
	fake := &fakeConsole{missing: true}
	b, err := NewBundle(fake, BundleSpec{Name: "com.example.gone", State: "started"}, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBundle() error: %v", err)
	}

	if _, err := b.Reconcile(context.Background()); err == nil {
		t.Fatal("Reconcile() succeeded for a missing bundle")
	} else if engine.KindOf(err) != engine.KindOperation {
		t.Errorf("error kind = %v, want %v", engine.KindOf(err), engine.KindOperation)
	}
}

func TestComponentDisable(t *testing.T) {
	fake := &fakeConsole{componentState: "active"}
	c, err := NewComponent(fake, ComponentSpec{Name: "com.example.Component", State: "disabled"}, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewComponent() error: %v", err)
	}

	result, err := c.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := result.Message(); got != "service disabled" {
		t.Errorf("Message() = %q, want %q", got, "service disabled")
	}
	if fake.componentState != "disabled" {
		t.Errorf("component state = %q, want disabled", fake.componentState)
	}
}

func TestComponentEnableIsIdempotent(t *testing.T) {
	// Anything other than "disabled" counts as enabled: the console
	// reports various active-ish states.
	for _, state := range []string{"active", "satisfied", "registered"} {
		fake := &fakeConsole{componentState: state}
		c, err := NewComponent(fake, ComponentSpec{Name: "com.example.Component", State: "enabled"}, false, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewComponent() error: %v", err)
		}

		result, err := c.Reconcile(context.Background())
		if err != nil {
			t.Fatalf("Reconcile() error: %v", err)
		}
		if result.Changed {
			t.Errorf("Changed = true for console state %q, want false", state)
		}
	}
}

func TestComponentEnable(t *testing.T) {
	fake := &fakeConsole{componentState: "disabled"}
	c, err := NewComponent(fake, ComponentSpec{Name: "com.example.Component", State: "enabled"}, false, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewComponent() error: %v", err)
	}

	result, err := c.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if got := result.Message(); got != "service enabled" {
		t.Errorf("Message() = %q, want %q", got, "service enabled")
	}
	if fake.componentState == "disabled" {
		t.Error("component still disabled after enable")
	}
}

func TestSpecValidation(t *testing.T) {
	if _, err := NewBundle(&fakeConsole{}, BundleSpec{Name: "b", State: "running"}, false, zerolog.Nop()); err == nil {
		t.Error("NewBundle() accepted an unknown state")
	}
	if _, err := NewComponent(&fakeConsole{}, ComponentSpec{State: "enabled"}, false, zerolog.Nop()); err == nil {
		t.Error("NewComponent() accepted an empty name")
	}
}
