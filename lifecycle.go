package pgextdemo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Names of the objects the demo creates.
const (
	DemoSchema  = "__demo"
	MonitorRole = "__monitor"
)

const tracerName = "github.com/bcomnes/pgextdemo"

// ErrPreconditionFailed is returned by Run when pg_stat_statements is not in
// shared_preload_libraries. Nothing was changed in the database.
var ErrPreconditionFailed = errors.New("pg_stat_statements is not loaded through shared_preload_libraries")

// Ledger remembers which extensions the demo installed on a target so a
// later teardown-only run can remove them.
type Ledger interface {
	Owned(ctx context.Context, target string) ([]string, error)
	Record(ctx context.Context, target string, extensions []string) error
	Forget(ctx context.Context, target string, extensions []string) error
}

// Demo runs the setup, pg_trgm, pg_stat_statements and teardown phases
// against one database.
//
// Phases run strictly in order on a single Session. Each phase resolves its
// own transaction before the next begins. Teardown, when enabled, runs on
// every exit path after validation succeeded, including failures and
// interrupts.
type Demo struct {
	cfg     Config
	open    Opener
	console *Console
	log     *slog.Logger
	level   *slog.LevelVar
	ledger  Ledger
	tracer  trace.Tracer
}

// Option configures a Demo.
type Option func(*Demo)

// WithLogger sets the logger. When level is non-nil, demo sections that show
// their statements lower it to debug while they run.
func WithLogger(log *slog.Logger, level *slog.LevelVar) Option {
	return func(d *Demo) {
		d.log = log
		d.level = level
	}
}

// WithConsole sets where narrative output goes and where prompts read from.
func WithConsole(c *Console) Option {
	return func(d *Demo) { d.console = c }
}

// WithLedger enables the extension ledger.
func WithLedger(l Ledger) Option {
	return func(d *Demo) { d.ledger = l }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Demo) { d.tracer = tp.Tracer(tracerName) }
}

// NewDemo creates a Demo for cfg. Sessions are obtained from open.
func NewDemo(cfg Config, open Opener, opts ...Option) (*Demo, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if open == nil {
		return nil, errors.New("session opener is required")
	}
	d := &Demo{
		cfg:    cfg,
		open:   open,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.New(slog.DiscardHandler)
	}
	if d.console == nil {
		d.console = NewConsole(io.Discard, os.Stdin, false)
	}
	return d, nil
}

// Run executes the lifecycle. Errors from a failed phase and from teardown
// are joined.
func (d *Demo) Run(ctx context.Context) (err error) {
	flags := d.cfg.Flags()
	ctx, span := d.tracer.Start(ctx, "demo", trace.WithAttributes(
		attribute.Bool("demo.init", flags.Init),
		attribute.Bool("demo.teardown", flags.Teardown),
		attribute.Bool("demo.teardown_only", flags.TeardownOnly),
	))
	defer func() {
		endSpan(span, err)
		d.log.InfoContext(ctx, "Demo complete.")
	}()

	d.log.InfoContext(ctx, "Demo starting")
	s, err := d.open(ctx, d.cfg.URL)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer d.release(ctx, s, "primary")

	var (
		reg Registry
		ok  bool
	)
	err = d.phase(ctx, s, "validate", func(ctx context.Context) error {
		var verr error
		reg, ok, verr = d.validate(ctx, s, flags)
		return verr
	})
	if err != nil {
		return err
	}
	if !ok && !flags.TeardownOnly {
		span.AddEvent("precondition not met", trace.WithAttributes(
			attribute.String("demo.library", ExtStatStatements),
		))
		return ErrPreconditionFailed
	}

	if flags.Teardown || flags.TeardownOnly {
		defer func() {
			// Teardown must finish even when the run was interrupted.
			tctx := context.WithoutCancel(ctx)
			terr := d.phase(tctx, s, "teardown", func(ctx context.Context) error {
				return d.teardown(ctx, s, reg)
			})
			if terr != nil {
				err = errors.Join(err, terr)
			}
		}()
	}
	if flags.TeardownOnly {
		return nil
	}

	if flags.Init {
		err = d.phase(ctx, s, "setup", func(ctx context.Context) error {
			return d.setup(ctx, s, reg)
		})
		if err != nil {
			return err
		}
	}
	err = d.phase(ctx, s, "pg_trgm", func(ctx context.Context) error {
		return d.demoTrgm(ctx, s, flags)
	})
	if err != nil {
		return err
	}
	return d.phase(ctx, s, "pg_stat_statements", func(ctx context.Context) error {
		return d.demoStatStatements(ctx, s, flags)
	})
}

// phase runs fn inside a span. On failure the session's transaction is
// rolled back and the error is returned wrapped with the phase name.
func (d *Demo) phase(ctx context.Context, s Session, name string, fn func(context.Context) error) (err error) {
	ctx, span := d.tracer.Start(ctx, name)
	defer func() { endSpan(span, err) }()

	d.log.DebugContext(ctx, "Phase starting", "phase", name)
	if err := fn(ctx); err != nil {
		if rbErr := s.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			d.log.ErrorContext(ctx, "Rollback failed", "phase", name, "err", rbErr)
		}
		if errors.Is(err, context.Canceled) {
			d.log.WarnContext(ctx, "Phase interrupted", "phase", name)
		} else {
			d.log.ErrorContext(ctx, "Phase failed", "phase", name, "err", err)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	d.log.DebugContext(ctx, "Phase complete", "phase", name)
	return nil
}

// release rolls back anything still open on s and closes it.
func (d *Demo) release(ctx context.Context, s Session, which string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.Rollback(ctx); err != nil {
		d.log.WarnContext(ctx, "Rollback on release failed", "session", which, "err", err)
	}
	if err := s.Close(); err != nil {
		d.log.WarnContext(ctx, "Close failed", "session", which, "err", err)
	}
}

// verbose lowers the log level to debug while fn runs so the executed
// statements are shown.
func (d *Demo) verbose(fn func() error) error {
	if d.level == nil || d.level.Level() <= slog.LevelDebug {
		return fn()
	}
	prev := d.level.Level()
	d.level.Set(slog.LevelDebug)
	defer d.level.Set(prev)
	return fn()
}

// endSpan records err on span and ends it. A skipped run is not a failure.
func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrPreconditionFailed) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
