package packages

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cqops/cqctl/pkg/engine"
	"github.com/cqops/cqctl/pkg/telemetry"
	"github.com/cqops/cqctl/pkg/transports/crx"
)

const (
	listingPath = "/crx/packmgr/list.jsp"
	uploadPath  = "/crx/packmgr/service.jsp"
)

// Spec describes the desired state of one package.
type Spec struct {
	// Name identifies the package by its name or download filename.
	Name string `json:"name" validate:"required"`

	// State is the desired installation state.
	State State `json:"state" validate:"required,oneof=present absent uploaded uninstalled"`

	// Path is the local package file, or a directory containing a file
	// named after the package. Required for upload-capable states.
	Path string `json:"path,omitempty"`

	// Force re-runs upload and install even when the observed state
	// already matches.
	Force bool `json:"force,omitempty"`
}

// Reconciler converges one package on one instance toward its desired
// state. It holds no state between invocations; every Reconcile call
// re-derives the observed state before deciding anything.
type Reconciler struct {
	transport crx.Transport
	spec      Spec
	check     bool
	log       zerolog.Logger
	metrics   *telemetry.Metrics
	tracer    *telemetry.Tracer

	interval time.Duration
	budget   time.Duration
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCheckMode suppresses every state-mutating call. Observation still
// runs and the result reports the same Changed value a live run would.
func WithCheckMode(check bool) Option {
	return func(r *Reconciler) { r.check = check }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

// WithMetrics enables metric collection for actions and retries.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithTracer enables a span per remote operation.
func WithTracer(t *telemetry.Tracer) Option {
	return func(r *Reconciler) { r.tracer = t }
}

// New creates a reconciler for the given package spec. The retry interval
// and wall-clock budget come from the transport's connection config.
func New(transport crx.Transport, spec Spec, opts ...Option) (*Reconciler, error) {
	if err := validator.New().Struct(spec); err != nil {
		return nil, fmt.Errorf("invalid package spec: %w", err)
	}

	cfg := transport.Config()
	r := &Reconciler{
		transport: transport,
		spec:      spec,
		log:       zerolog.Nop(),
		interval:  cfg.RetryInterval,
		budget:    cfg.Timeout,
	}
	if r.interval <= 0 {
		r.interval = engine.DefaultRetryInterval
	}
	if r.budget <= 0 {
		r.budget = engine.DefaultTimeout
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("package", spec.Name).Str("state", string(spec.State)).Logger()
	return r, nil
}

// Reconcile performs one observe-compare-apply pass and returns the
// accumulated result. Implements engine.Resource.
func (r *Reconciler) Reconcile(ctx context.Context) (*engine.Result, error) {
	ctx, span := r.startSpan(ctx, "package.reconcile",
		attribute.String("package.name", r.spec.Name),
		attribute.String("package.desired_state", string(r.spec.State)),
	)
	defer span.End()

	result := &engine.Result{}
	obs, err := r.observe(ctx, false)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	r.log.Debug().
		Bool("uploaded", obs.Uploaded).
		Bool("installed", obs.Installed).
		Str("group", obs.Group).
		Msg("observed package state")

	switch r.spec.State {
	case StatePresent:
		err = r.ensurePresent(ctx, obs, result)
	case StateAbsent:
		err = r.ensureAbsent(ctx, obs, result)
	case StateUploaded:
		if !obs.Uploaded {
			err = r.runUpload(ctx, result)
		}
	case StateUninstalled:
		if obs.Installed {
			err = r.runUninstall(ctx, obs.Group, result)
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.RecordSuccess(span)
	return result, nil
}

// ensurePresent uploads when missing and installs when not yet unpacked.
// Force does both unconditionally.
func (r *Reconciler) ensurePresent(ctx context.Context, obs *Observed, result *engine.Result) error {
	if !obs.Uploaded || r.spec.Force {
		if err := r.runUpload(ctx, result); err != nil {
			return err
		}
		if !r.check {
			// The fresh upload may still be settling; re-derive state
			// with a forced wait before deciding on the install.
			fresh, err := r.observe(ctx, true)
			if err != nil {
				return err
			}
			obs = fresh
		}
	}
	if !obs.Installed || r.spec.Force {
		return r.runInstall(ctx, obs.Group, result)
	}
	return nil
}

// ensureAbsent uninstalls an installed package and then deletes whatever
// is still uploaded. A package that is uploaded but was never installed is
// left alone unless forced.
func (r *Reconciler) ensureAbsent(ctx context.Context, obs *Observed, result *engine.Result) error {
	if !obs.Installed && !r.spec.Force {
		return nil
	}
	if err := r.runUninstall(ctx, obs.Group, result); err != nil {
		return err
	}
	if obs.Uploaded || r.spec.Force {
		return r.runDelete(ctx, obs.Group, result)
	}
	return nil
}

// observe fetches the package listing and derives the installation state
// of the named package. A missing entry is a normal outcome, not an error.
// With wait set, any non-2xx response is retried on the fixed interval
// until the budget elapses; without it only 503 (service busy) retries.
func (r *Reconciler) observe(ctx context.Context, wait bool) (*Observed, error) {
	ctx, span := r.startSpan(ctx, "package.observe", attribute.Bool("observe.wait", wait))
	defer span.End()

	var listing *Listing
	attempt := func(ctx context.Context) error {
		resp, err := r.transport.Get(ctx, listingPath)
		if err != nil {
			if wait {
				r.countRetry("observe")
				return engine.NewTransientError("package listing request failed", err)
			}
			return engine.NewRequestError("package listing request failed", err).WithOperation("observe")
		}
		if !resp.OK() {
			if resp.Status == http.StatusServiceUnavailable || wait {
				r.countRetry("observe")
				return engine.NewTransientError("package listing unavailable", nil).WithResponse(resp.Status, resp.Snippet())
			}
			return engine.NewRequestError("package listing failed", nil).
				WithOperation("observe").WithResponse(resp.Status, resp.Snippet())
		}
		l, derr := decodeListing(resp.Body)
		if derr != nil {
			return engine.NewDecodeError("malformed package listing", derr).WithOperation("observe")
		}
		listing = l
		return nil
	}

	if err := engine.Retry(ctx, r.interval, r.budget, attempt); err != nil {
		if engine.IsRetryable(err) {
			err = engine.NewTimeoutError("timed out waiting for package listing", err)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	lookup := listing.Find(r.spec.Name)
	if !lookup.Found {
		return &Observed{}, nil
	}
	return &Observed{
		Uploaded:  true,
		Installed: lookup.Entry.Installed(),
		Group:     lookup.Entry.Group,
	}, nil
}

// runUpload transfers the package binary to the instance and confirms it
// appears in the listing. The whole upload is retried on the fixed
// interval until the budget elapses.
func (r *Reconciler) runUpload(ctx context.Context, result *engine.Result) error {
	file, err := r.resolveFile()
	if err != nil {
		return err
	}

	result.Record("package uploaded")
	r.countAction("upload")
	if r.check {
		return nil
	}

	ctx, span := r.startSpan(ctx, "package.upload", attribute.String("package.file", file))
	defer span.End()

	fields := map[string]string{
		"name":  r.spec.Name,
		"force": "true",
	}

	attempt := func(ctx context.Context) error {
		resp, err := r.transport.PostFile(ctx, uploadPath, fields, "file", file)
		if err != nil {
			r.countRetry("upload")
			return engine.NewTransientError("package upload failed", err)
		}
		if !resp.OK() {
			r.countRetry("upload")
			return engine.NewTransientError("package upload rejected", nil).WithResponse(resp.Status, resp.Snippet())
		}
		obs, oerr := r.observe(ctx, true)
		if oerr != nil {
			return oerr
		}
		if !obs.Uploaded {
			r.countRetry("upload")
			return engine.NewTransientError("package not visible after upload", nil)
		}
		return nil
	}

	if err := engine.Retry(ctx, r.interval, r.budget, attempt); err != nil {
		if engine.IsRetryable(err) {
			err = engine.NewUploadError(fmt.Sprintf("upload of %s did not succeed within the timeout", r.spec.Name), err)
		}
		telemetry.RecordError(span, err)
		return err
	}

	r.log.Info().Str("file", file).Msg("package uploaded")
	return nil
}

// runInstall issues cmd=install, retrying rejected commands, malformed
// responses and success=false bodies until the budget elapses, then waits
// for background processing to settle.
func (r *Reconciler) runInstall(ctx context.Context, group string, result *engine.Result) error {
	result.Record("package installed")
	r.countAction("install")
	if r.check {
		return nil
	}
	if group == "" {
		return engine.NewOperationError("package group unknown; package is not uploaded", nil).WithOperation("install")
	}

	ctx, span := r.startSpan(ctx, "package.install", attribute.String("package.group", group))
	defer span.End()

	attempt := func(ctx context.Context) error {
		if err := r.command(ctx, group, "install"); err != nil {
			r.countRetry("install")
			return err
		}
		return nil
	}

	if err := engine.Retry(ctx, r.interval, r.budget, attempt); err != nil {
		if engine.IsRetryable(err) {
			err = engine.NewInstallError(fmt.Sprintf("install of %s did not succeed within the timeout", r.spec.Name), err)
		}
		telemetry.RecordError(span, err)
		return err
	}

	r.log.Info().Msg("package installed")
	return r.waitForCompletion(ctx)
}

// runUninstall issues a single cmd=uninstall and waits for background
// processing to settle.
func (r *Reconciler) runUninstall(ctx context.Context, group string, result *engine.Result) error {
	result.Record("package uninstalled")
	r.countAction("uninstall")
	if r.check {
		return nil
	}
	if group == "" {
		return engine.NewOperationError("package group unknown; package is not uploaded", nil).WithOperation("uninstall")
	}

	ctx, span := r.startSpan(ctx, "package.uninstall", attribute.String("package.group", group))
	defer span.End()

	if err := r.command(ctx, group, "uninstall"); err != nil {
		err = asOperationError(err, "uninstall")
		telemetry.RecordError(span, err)
		return err
	}

	r.log.Info().Msg("package uninstalled")
	return r.waitForCompletion(ctx)
}

// runDelete issues a single cmd=delete. No completion wait: removal from
// the package manager has no background phase.
func (r *Reconciler) runDelete(ctx context.Context, group string, result *engine.Result) error {
	result.Record("package deleted")
	r.countAction("delete")
	if r.check {
		return nil
	}
	if group == "" {
		return engine.NewOperationError("package group unknown; package is not uploaded", nil).WithOperation("delete")
	}

	ctx, span := r.startSpan(ctx, "package.delete", attribute.String("package.group", group))
	defer span.End()

	if err := r.command(ctx, group, "delete"); err != nil {
		err = asOperationError(err, "delete")
		telemetry.RecordError(span, err)
		return err
	}

	r.log.Info().Msg("package deleted")
	return nil
}

// command issues one package manager command POST and checks its JSON
// response. Failures are reported transient; single-attempt callers
// reclassify them.
func (r *Reconciler) command(ctx context.Context, group, cmd string) error {
	path := fmt.Sprintf("/crx/packmgr/service/.json/etc/packages/%s/%s?cmd=%s", group, r.spec.Name, cmd)
	resp, err := r.transport.PostForm(ctx, path, url.Values{})
	if err != nil {
		return engine.NewTransientError(fmt.Sprintf("package %s request failed", cmd), err)
	}
	if !resp.OK() {
		return engine.NewTransientError(fmt.Sprintf("package %s rejected", cmd), nil).WithResponse(resp.Status, resp.Snippet())
	}
	var sr serviceResponse
	if err := json.Unmarshal(resp.Body, &sr); err != nil {
		return engine.NewTransientError(fmt.Sprintf("malformed package %s response", cmd), err).WithResponse(resp.Status, resp.Snippet())
	}
	if !sr.Success {
		return engine.NewTransientError(fmt.Sprintf("package %s reported failure: %s", cmd, sr.Msg), nil)
	}
	return nil
}

// waitForCompletion polls the listing until any 200 response arrives. The
// instance returns transient errors while background processing finishes;
// a single successful listing is deliberately accepted as completion.
func (r *Reconciler) waitForCompletion(ctx context.Context) error {
	ctx, span := r.startSpan(ctx, "package.wait_for_completion")
	defer span.End()

	attempt := func(ctx context.Context) error {
		resp, err := r.transport.Get(ctx, listingPath)
		if err != nil {
			r.countRetry("wait_for_completion")
			return engine.NewTransientError("package listing request failed", err)
		}
		if resp.Status != http.StatusOK {
			r.countRetry("wait_for_completion")
			return engine.NewTransientError("package manager still busy", nil).WithResponse(resp.Status, resp.Snippet())
		}
		return nil
	}

	if err := engine.Retry(ctx, r.interval, r.budget, attempt); err != nil {
		if engine.IsRetryable(err) {
			err = engine.NewTimeoutError("timed out waiting for package processing to complete", err)
		}
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// resolveFile locates the local package binary: the configured path
// directly, or a file named after the package inside a configured
// directory.
func (r *Reconciler) resolveFile() (string, error) {
	if r.spec.Path == "" {
		return "", engine.NewFileNotFoundError("a local package path is required for upload")
	}
	info, err := os.Stat(r.spec.Path)
	if err == nil && !info.IsDir() {
		return r.spec.Path, nil
	}
	candidate := filepath.Join(r.spec.Path, r.spec.Name)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}
	return "", engine.NewFileNotFoundError(fmt.Sprintf("package file not found at %s or %s", r.spec.Path, candidate))
}

// asOperationError reclassifies a command failure for the single-attempt
// operations, which never retry.
func asOperationError(err error, op string) error {
	e := engine.NewOperationError(fmt.Sprintf("package %s failed", op), err).WithOperation(op)
	if t, ok := err.(*engine.Error); ok && t.Status != 0 {
		e = e.WithResponse(t.Status, t.Body)
	}
	return e
}

func (r *Reconciler) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, telemetry.Span) {
	if r.tracer == nil {
		return telemetry.NoopSpan(ctx)
	}
	return r.tracer.StartSpan(ctx, name, attrs...)
}

func (r *Reconciler) countAction(action string) {
	if r.metrics != nil {
		r.metrics.RecordAction("package", action)
	}
}

func (r *Reconciler) countRetry(operation string) {
	if r.metrics != nil {
		r.metrics.RecordRetry("package", operation)
	}
}
