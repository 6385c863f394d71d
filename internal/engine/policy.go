package engine

import (
	"github.com/mmcdole/vscroll/internal/state"
)

const (
	DefaultChunkSize     = 10
	DefaultPreloadAmount = 0
)

// DefaultRequestQuery asks for the next ChunkSize records after what is loaded
func DefaultRequestQuery[T any](s state.Snapshot[T]) map[string]any {
	return map[string]any{
		"offset": len(s.Data),
		"limit":  s.ChunkSize,
	}
}

// DefaultShouldStopRequestingData stops after the first empty page
func DefaultShouldStopRequestingData[T any](s state.Snapshot[T]) bool {
	return s.IsLastEmpty
}

// DefaultShouldPerformDataRequest loads the first page unconditionally. Later
// pages are requested when the pending buffer cannot fill a chunk (or every
// loaded page has been rendered) and the user is close to the end.
func DefaultShouldPerformDataRequest[T any](s state.Snapshot[T]) bool {
	if s.IsInitialLoading {
		return true
	}
	if s.IsLastEmpty {
		return false
	}
	needsData := s.PendingData() < s.ChunkSize || s.RenderPage >= s.LoadPage
	return needsData && NearEnd(s)
}

// DefaultShouldPerformDataRender renders full chunks on first paint or near the
// end, and drains whatever is left once requests have stopped.
func DefaultShouldPerformDataRender[T any](s state.Snapshot[T]) bool {
	pending := s.PendingData()
	if pending == 0 {
		return false
	}
	if s.IsRequestsStopped {
		return true
	}
	if pending < s.ChunkSize {
		return false
	}
	return s.IsInitialRender || NearEnd(s)
}

// NearEnd reports whether the viewed position is within PreloadAmount children
// of the end. An empty list is always near its end; a list nobody has looked
// at yet is not.
func NearEnd[T any](s state.Snapshot[T]) bool {
	if len(s.ChildList) == 0 {
		return true
	}
	if s.RemainingChildren == nil {
		return false
	}
	return *s.RemainingChildren <= s.PreloadAmount
}
