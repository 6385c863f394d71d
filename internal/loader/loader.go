package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-viper/mapstructure/v2"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/state"
)

// Outcome classifies what applying a load result did to the store
type Outcome int

const (
	OutcomeIgnored       Outcome = iota // Stale or cancelled, store untouched
	OutcomeLoaded                       // Non-empty page merged
	OutcomeEmpty                        // Empty page recorded
	OutcomeEmptyTerminal                // Initial page empty and requests stopped
	OutcomeErrored                      // Transport or malformed-response failure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeEmpty:
		return "empty"
	case OutcomeEmptyTerminal:
		return "empty-terminal"
	case OutcomeErrored:
		return "errored"
	default:
		return "ignored"
	}
}

// ResultMsg carries a finished fetch back into the Update loop
type ResultMsg[T any] struct {
	ListID  uint64
	Epoch   uint64
	Initial bool
	Raw     any
	Page    []T
	Err     error
}

// Config wires the loader to its collaborators and policies
type Config[T any] struct {
	ListID uint64
	Source domain.DataSource

	// Converter normalizes a raw payload (the dbConverter). Defaults to DefaultConverter.
	Converter func(payload any) (any, error)

	// Decoder turns the converted payload into records. Defaults to Decode[T].
	Decoder func(data any) ([]T, error)

	// Query holds static parameters; RequestQuery output is merged over it.
	Query        map[string]any
	RequestQuery func(snap state.Snapshot[T]) map[string]any

	ShouldPerformDataRequest func(snap state.Snapshot[T]) bool
	ShouldStopRequestingData func(snap state.Snapshot[T]) bool

	// Snapshot compiles the state handed to policies. Defaults to the store's Compile.
	Snapshot func() state.Snapshot[T]

	Logger *slog.Logger
}

// Loader requests pages from a data source and merges them into the store
type Loader[T any] struct {
	cfg     Config[T]
	store   *state.Store[T]
	logger  *slog.Logger
	lastErr error
}

// New creates a loader bound to store
func New[T any](store *state.Store[T], cfg Config[T]) *Loader[T] {
	if cfg.Converter == nil {
		cfg.Converter = DefaultConverter
	}
	if cfg.Decoder == nil {
		cfg.Decoder = Decode[T]
	}
	if cfg.Snapshot == nil {
		cfg.Snapshot = store.Compile
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader[T]{cfg: cfg, store: store, logger: cfg.Logger}
}

// Configured reports whether a data source is set
func (l *Loader[T]) Configured() bool {
	return l.cfg.Source != nil
}

// SetQuery replaces the static query parameters
func (l *Loader[T]) SetQuery(query map[string]any) {
	l.cfg.Query = maps.Clone(query)
}

// LastErr returns the error of the most recent failed load (nil after success)
func (l *Loader[T]) LastErr() error {
	return l.lastErr
}

// ShouldRequest evaluates the request policy against snap
func (l *Loader[T]) ShouldRequest(snap state.Snapshot[T]) bool {
	if l.cfg.Source == nil || snap.IsRequestsStopped || snap.IsLoadingInProgress {
		return false
	}
	if l.cfg.ShouldPerformDataRequest == nil {
		return true
	}
	return l.cfg.ShouldPerformDataRequest(snap)
}

// Load starts a fetch if policy allows it. It returns nil when nothing was
// requested. ctx is the epoch context and cancels the fetch on reset.
func (l *Loader[T]) Load(ctx context.Context, snap state.Snapshot[T]) tea.Cmd {
	if !l.ShouldRequest(snap) {
		return nil
	}
	return l.fetch(ctx, snap)
}

// Retry re-enters the load step after a failure, bypassing the request
// policy but not the stop flag.
func (l *Loader[T]) Retry(ctx context.Context, snap state.Snapshot[T]) tea.Cmd {
	if l.cfg.Source == nil || snap.IsRequestsStopped || snap.IsLoadingInProgress {
		return nil
	}
	return l.fetch(ctx, snap)
}

func (l *Loader[T]) fetch(ctx context.Context, snap state.Snapshot[T]) tea.Cmd {
	query := l.buildQuery(snap)
	epoch := snap.Epoch
	initial := snap.IsInitialLoading

	l.store.SetIsLastErrored(false)
	l.store.SetIsLoadingInProgress(true)
	l.logger.Debug("requesting page", "epoch", epoch, "loadPage", snap.LoadPage, "query", query)

	src := l.cfg.Source
	convert := l.cfg.Converter
	decode := l.cfg.Decoder
	listID := l.cfg.ListID

	return func() tea.Msg {
		msg := ResultMsg[T]{ListID: listID, Epoch: epoch, Initial: initial}

		payload, err := src.FetchPage(ctx, query)
		if err != nil {
			msg.Err = err
			return msg
		}
		msg.Raw = payload

		converted, err := convert(payload)
		if err != nil {
			msg.Err = fmt.Errorf("converting payload: %w", err)
			return msg
		}
		page, err := decode(converted)
		if err != nil {
			msg.Err = err
			return msg
		}
		msg.Page = page
		return msg
	}
}

func (l *Loader[T]) buildQuery(snap state.Snapshot[T]) map[string]any {
	query := maps.Clone(l.cfg.Query)
	if query == nil {
		query = make(map[string]any)
	}
	if l.cfg.RequestQuery != nil {
		maps.Copy(query, l.cfg.RequestQuery(snap))
	}
	return query
}

// Apply merges a finished fetch into the store
func (l *Loader[T]) Apply(msg ResultMsg[T]) Outcome {
	if msg.Epoch != l.store.Epoch() {
		l.logger.Debug("discarding stale page", "error", domain.ErrStaleRequest, "epoch", msg.Epoch, "current", l.store.Epoch())
		return OutcomeIgnored
	}
	if errors.Is(msg.Err, context.Canceled) {
		return OutcomeIgnored
	}

	l.store.SetIsLoadingInProgress(false)

	if msg.Err != nil {
		l.lastErr = msg.Err
		l.store.SetIsLastErrored(true)
		l.logger.Error("page load failed", "error", msg.Err, "malformed", errors.Is(msg.Err, domain.ErrMalformedResponse))
		return OutcomeErrored
	}
	l.lastErr = nil

	l.store.UpdateData(msg.Raw, msg.Page, msg.Initial)
	l.store.IncrementLoadPage()
	if len(msg.Page) == 0 {
		l.store.SetIsLastEmpty(true)
	}
	if l.cfg.ShouldStopRequestingData != nil && l.cfg.ShouldStopRequestingData(l.cfg.Snapshot()) {
		l.store.SetIsRequestsStopped(true)
	}

	if len(msg.Page) == 0 {
		l.logger.Debug("empty page", "epoch", msg.Epoch, "initial", msg.Initial)
		if msg.Initial && l.cfg.Snapshot().IsRequestsStopped {
			return OutcomeEmptyTerminal
		}
		return OutcomeEmpty
	}

	l.logger.Debug("page loaded", "epoch", msg.Epoch, "count", len(msg.Page))
	return OutcomeLoaded
}

// DefaultConverter unwraps {"data": [...]} envelopes and passes everything
// else through unchanged. A nil payload becomes an empty page.
func DefaultConverter(payload any) (any, error) {
	switch v := payload.(type) {
	case nil:
		return []any{}, nil
	case map[string]any:
		if data, ok := v["data"]; ok {
			return data, nil
		}
		return v, nil
	default:
		return v, nil
	}
}

// Decode converts a list-shaped payload into records using mapstructure.
// Anything that is not a slice or array is a malformed response.
func Decode[T any](data any) ([]T, error) {
	if data == nil {
		return nil, nil
	}
	if typed, ok := data.([]T); ok {
		return typed, nil
	}

	kind := reflect.TypeOf(data).Kind()
	if kind != reflect.Slice && kind != reflect.Array {
		return nil, fmt.Errorf("%w: got %T", domain.ErrMalformedResponse, data)
	}

	var out []T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return out, nil
}
