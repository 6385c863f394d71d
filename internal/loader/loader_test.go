package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/state"
)

type row struct {
	ID    int    `mapstructure:"id"`
	Title string `mapstructure:"title"`
}

func newLoader(src domain.DataSource, cfg Config[row]) (*Loader[row], *state.Store[row]) {
	store := state.NewStore[row](state.Options{})
	cfg.ListID = 7
	cfg.Source = src
	return New(store, cfg), store
}

func pageOf(n int) domain.DataSourceFunc {
	return func(ctx context.Context, query map[string]any) (any, error) {
		out := make([]any, n)
		for i := range out {
			out[i] = map[string]any{"id": i, "title": "t"}
		}
		return map[string]any{"data": out}, nil
	}
}

func TestDecode(t *testing.T) {
	got, err := Decode[row]([]any{map[string]any{"id": "3", "title": "x"}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff([]row{{ID: 3, Title: "x"}}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	if _, err := Decode[row](map[string]any{"id": 1}); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("object payload err = %v, want ErrMalformedResponse", err)
	}
	if got, err := Decode[row](nil); err != nil || got != nil {
		t.Fatalf("Decode(nil) = %v, %v", got, err)
	}
}

func TestDefaultConverter(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    any
	}{
		{"envelope", map[string]any{"data": []any{1}}, []any{1}},
		{"bare list", []any{1}, []any{1}},
		{"nil", nil, []any{}},
		{"object", map[string]any{"x": 1}, map[string]any{"x": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultConverter(tt.payload)
			if err != nil {
				t.Fatalf("DefaultConverter: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadAppliesPage(t *testing.T) {
	var seen map[string]any
	src := domain.DataSourceFunc(func(ctx context.Context, q map[string]any) (any, error) {
		seen = q
		return pageOf(3)(ctx, q)
	})
	l, store := newLoader(src, Config[row]{
		Query:        map[string]any{"group": "a"},
		RequestQuery: func(s state.Snapshot[row]) map[string]any { return map[string]any{"offset": len(s.Data)} },
	})

	cmd := l.Load(context.Background(), store.Compile())
	if cmd == nil {
		t.Fatal("Load() returned nil")
	}
	if !store.Compile().IsLoadingInProgress {
		t.Fatal("load not marked in progress")
	}

	msg := cmd().(ResultMsg[row])
	if msg.ListID != 7 || !msg.Initial {
		t.Fatalf("msg = %+v", msg)
	}
	if diff := cmp.Diff(map[string]any{"group": "a", "offset": 0}, seen); diff != "" {
		t.Fatalf("query (-want +got):\n%s", diff)
	}

	if got := l.Apply(msg); got != OutcomeLoaded {
		t.Fatalf("Apply() = %v, want loaded", got)
	}
	snap := store.Compile()
	if len(snap.Data) != 3 || snap.LoadPage != 1 || snap.IsLoadingInProgress || snap.IsInitialLoading {
		t.Fatalf("snapshot after apply: %+v", snap)
	}
}

func TestLoadSkippedWhileInFlight(t *testing.T) {
	l, store := newLoader(pageOf(1), Config[row]{})
	if l.Load(context.Background(), store.Compile()) == nil {
		t.Fatal("first Load() returned nil")
	}
	if l.Load(context.Background(), store.Compile()) != nil {
		t.Fatal("second Load() should wait for the first")
	}
}

func TestEmptyInitialPageIsTerminal(t *testing.T) {
	l, store := newLoader(pageOf(0), Config[row]{
		ShouldStopRequestingData: func(s state.Snapshot[row]) bool { return s.IsLastEmpty },
	})
	msg := l.Load(context.Background(), store.Compile())().(ResultMsg[row])

	if got := l.Apply(msg); got != OutcomeEmptyTerminal {
		t.Fatalf("Apply() = %v, want empty-terminal", got)
	}
	if !store.Compile().IsRequestsStopped {
		t.Fatal("requests not stopped")
	}
	if l.Load(context.Background(), store.Compile()) != nil {
		t.Fatal("Load() after stop should do nothing")
	}
}

func TestApplyError(t *testing.T) {
	boom := errors.New("boom")
	l, store := newLoader(domain.DataSourceFunc(func(context.Context, map[string]any) (any, error) {
		return nil, boom
	}), Config[row]{})

	msg := l.Load(context.Background(), store.Compile())().(ResultMsg[row])
	if got := l.Apply(msg); got != OutcomeErrored {
		t.Fatalf("Apply() = %v, want errored", got)
	}
	snap := store.Compile()
	if !snap.IsLastErrored || snap.IsLoadingInProgress || snap.LoadPage != 0 {
		t.Fatalf("snapshot after error: %+v", snap)
	}
	if !errors.Is(l.LastErr(), boom) {
		t.Fatalf("LastErr() = %v", l.LastErr())
	}

	if l.Retry(context.Background(), snap) == nil {
		t.Fatal("Retry() returned nil after failure")
	}
	if store.Compile().IsLastErrored {
		t.Fatal("Retry() should clear the error flag")
	}
}

func TestMalformedPayload(t *testing.T) {
	l, store := newLoader(domain.DataSourceFunc(func(context.Context, map[string]any) (any, error) {
		return "not a list", nil
	}), Config[row]{})

	msg := l.Load(context.Background(), store.Compile())().(ResultMsg[row])
	if !errors.Is(msg.Err, domain.ErrMalformedResponse) {
		t.Fatalf("Err = %v, want ErrMalformedResponse", msg.Err)
	}
	if l.Apply(msg) != OutcomeErrored {
		t.Fatal("malformed payload should error")
	}
}

func TestStaleAndCancelledResultsIgnored(t *testing.T) {
	l, store := newLoader(pageOf(2), Config[row]{})
	msg := l.Load(context.Background(), store.Compile())().(ResultMsg[row])

	store.Reset()
	if got := l.Apply(msg); got != OutcomeIgnored {
		t.Fatalf("stale Apply() = %v, want ignored", got)
	}
	if len(store.Compile().Data) != 0 {
		t.Fatal("stale page leaked into the new epoch")
	}

	cancelled := ResultMsg[row]{ListID: 7, Epoch: store.Epoch(), Err: context.Canceled}
	if got := l.Apply(cancelled); got != OutcomeIgnored {
		t.Fatalf("cancelled Apply() = %v, want ignored", got)
	}
}

func TestNoSource(t *testing.T) {
	l, store := newLoader(nil, Config[row]{})
	if l.Configured() {
		t.Fatal("Configured() with nil source")
	}
	if l.Load(context.Background(), store.Compile()) != nil {
		t.Fatal("Load() without a source should do nothing")
	}
}
