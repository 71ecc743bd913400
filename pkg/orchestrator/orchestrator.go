// Package orchestrator drives one translation from raw error text to a
// delivered response.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/helmcode/error-translator/pkg/model"
	"go.uber.org/zap"
)

type State int

const (
	Idle State = iota
	GatheringContext
	Requesting
	Delivering
	Completed
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case GatheringContext:
		return "gathering_context"
	case Requesting:
		return "requesting"
	case Delivering:
		return "delivering"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Progress is one checkpoint of a translation.
type Progress struct {
	State   State
	Percent int
	Message string
}

var (
	ErrAlreadyStarted = errors.New("translation already started")
	ErrEmptyErrorText = errors.New("error text is empty")
)

// Gatherer builds the context for a request. It never fails; missing
// signals are left unset.
type Gatherer interface {
	Gather(ctx context.Context, errorText string) *model.ErrorContext
}

// Translator performs the single remote call.
type Translator interface {
	Send(ctx context.Context, req *model.TranslationRequest) (*model.TranslationResponse, error)
}

// Presenter receives a successful response.
type Presenter interface {
	Present(ctx context.Context, resp *model.TranslationResponse) error
}

// validator is implemented by translators that can check their
// configuration without a network call.
type validator interface {
	Validate() error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, resp *model.TranslationResponse) error

func (f PresenterFunc) Present(ctx context.Context, resp *model.TranslationResponse) error {
	return f(ctx, resp)
}

// Result is the outcome of Translate.
type Result struct {
	State    State
	Response *model.TranslationResponse
	Context  *model.ErrorContext
	// Err and Kind are set only for Failed.
	Err  error
	Kind errs.Kind
	// DeliveryErr is a presentation failure. It does not fail the translation.
	DeliveryErr error
	Duration    time.Duration
}

const subscriberBuffer = 4

// Orchestrator runs exactly one translation. Create a new one per request.
type Orchestrator struct {
	gatherer   Gatherer
	translator Translator
	presenter  Presenter
	logger     *zap.Logger

	mu          sync.Mutex
	state       State
	started     bool
	cancelled   bool
	cancel      context.CancelFunc
	subscribers []chan Progress
}

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator. presenter may be nil when the caller only
// needs the Result.
func New(g Gatherer, t Translator, p Presenter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gatherer:   g,
		translator: t,
		presenter:  p,
		logger:     zap.NewNop(),
		state:      Idle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe returns a channel receiving progress checkpoints. Slow readers
// miss checkpoints rather than blocking the translation. The channel is
// closed once a terminal state is reached.
func (o *Orchestrator) Subscribe() <-chan Progress {
	ch := make(chan Progress, subscriberBuffer)
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Terminal() {
		close(ch)
		return ch
	}
	o.subscribers = append(o.subscribers, ch)
	return ch
}

// Cancel requests cancellation. It is safe to call from any goroutine and
// more than once.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelled = true
	if o.cancel != nil {
		o.cancel()
	}
}

// Translate runs the pipeline. Cancelled translations return a nil error;
// failed ones return the cause, also available as Result.Err. Blank text is
// rejected with ErrEmptyErrorText and leaves the orchestrator Idle.
func (o *Orchestrator) Translate(ctx context.Context, errorText string) (*Result, error) {
	if strings.TrimSpace(errorText) == "" {
		return nil, ErrEmptyErrorText
	}
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	o.started = true
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	if o.cancelled {
		cancel()
	}
	o.mu.Unlock()
	defer cancel()

	start := time.Now()
	res := o.run(ctx, errorText)
	res.Duration = time.Since(start)

	o.logger.Debug("translation finished",
		zap.Stringer("state", res.State),
		zap.Stringer("kind", res.Kind),
		zap.Duration("duration", res.Duration),
	)
	if res.State == Failed {
		return res, res.Err
	}
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, errorText string) *Result {
	if v, ok := o.translator.(validator); ok {
		if err := v.Validate(); err != nil {
			return o.fail(err)
		}
	}

	o.transition(GatheringContext, 0, "Gathering context")
	errCtx := o.gatherer.Gather(ctx, errorText)
	if errCtx == nil {
		errCtx = &model.ErrorContext{ErrorText: errorText, Language: "unknown", ProjectStructure: []string{}}
	}

	if o.isCancelled(ctx) {
		return o.finishCancelled(errCtx)
	}
	o.transition(Requesting, 30, "Contacting translation service")
	resp, err := o.translator.Send(ctx, &model.TranslationRequest{ErrorText: errorText, Context: errCtx})

	if err != nil {
		if o.isCancelled(ctx) && errors.Is(err, context.Canceled) {
			return o.finishCancelled(errCtx)
		}
		res := o.fail(err)
		res.Context = errCtx
		return res
	}
	if o.isCancelled(ctx) {
		o.logger.Debug("discarding response after cancellation")
		return o.finishCancelled(errCtx)
	}

	o.transition(Delivering, 80, "Presenting results")
	res := &Result{State: Completed, Response: resp, Context: errCtx}
	if o.presenter != nil {
		if err := o.presenter.Present(ctx, resp); err != nil {
			o.logger.Warn("presentation failed", zap.Error(err))
			res.DeliveryErr = err
		}
	}
	o.transition(Completed, 100, "Done")
	return res
}

func (o *Orchestrator) isCancelled(ctx context.Context) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled || ctx.Err() != nil
}

func (o *Orchestrator) fail(err error) *Result {
	kind := errs.KindOf(err)
	o.transition(Failed, 100, errs.UserMessage(err))
	return &Result{State: Failed, Err: err, Kind: kind}
}

func (o *Orchestrator) finishCancelled(errCtx *model.ErrorContext) *Result {
	o.transition(Cancelled, 100, "Cancelled")
	return &Result{State: Cancelled, Context: errCtx}
}

func (o *Orchestrator) transition(s State, percent int, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
	p := Progress{State: s, Percent: percent, Message: msg}
	for _, ch := range o.subscribers {
		select {
		case ch <- p:
		default:
		}
	}
	if s.Terminal() {
		for _, ch := range o.subscribers {
			close(ch)
		}
		o.subscribers = nil
	}
}
