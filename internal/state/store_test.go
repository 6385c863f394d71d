package state

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/vscroll/internal/domain"
)

func children(types ...domain.ItemType) []domain.MountedChild {
	out := make([]domain.MountedChild, len(types))
	for i, t := range types {
		out[i] = domain.MountedChild{ComponentItem: domain.ComponentItem{Key: string(rune('a' + i)), Type: t}}
	}
	return out
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

func TestInitialSnapshot(t *testing.T) {
	s := NewStore[int](Options{})
	snap := s.Compile()

	if !snap.IsInitialLoading || !snap.IsInitialRender {
		t.Fatal("new store should be initial-loading and initial-render")
	}
	if snap.Data == nil || snap.ChildList == nil {
		t.Fatal("collections should be empty, not nil")
	}
	if snap.MaxViewedItem != nil || snap.RemainingChildren != nil {
		t.Fatal("viewed indexes should be unset")
	}
}

func TestUpdateData(t *testing.T) {
	s := NewStore[int](Options{})
	s.UpdateData("raw1", []int{1, 2}, true)
	s.UpdateData("raw2", []int{3}, false)

	snap := s.Compile()
	if diff := cmp.Diff([]int{1, 2, 3}, snap.Data); diff != "" {
		t.Fatalf("Data (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3}, snap.LastLoadedData); diff != "" {
		t.Fatalf("LastLoadedData (-want +got):\n%s", diff)
	}
	if snap.LastLoadedRawData != "raw2" || snap.IsInitialLoading || snap.IsLastEmpty {
		t.Fatalf("unexpected flags: %+v", snap)
	}

	s.UpdateData(nil, nil, false)
	s.SetIsLastEmpty(true)
	if !s.Compile().IsLastEmpty {
		t.Fatal("SetIsLastEmpty(true) should set IsLastEmpty")
	}
	s.UpdateData(nil, []int{4}, false)
	if s.Compile().IsLastEmpty {
		t.Fatal("UpdateData should clear IsLastEmpty")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := NewStore[int](Options{})
	s.UpdateData(nil, []int{1, 2}, true)

	snap := s.Compile()
	_ = append(snap.Data, 99)
	s.UpdateData(nil, []int{3}, false)

	if diff := cmp.Diff([]int{1, 2}, snap.Data); diff != "" {
		t.Fatalf("old snapshot changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, s.Compile().Data); diff != "" {
		t.Fatalf("store corrupted by snapshot append (-want +got):\n%s", diff)
	}
}

func TestUpdateMountedIndexes(t *testing.T) {
	s := NewStore[int](Options{})
	out := s.UpdateMounted(children(domain.ItemTypeSeparator, domain.ItemTypeItem, domain.ItemTypeItem))
	out = append(out, s.UpdateMounted(children(domain.ItemTypeSeparator, domain.ItemTypeItem))...)

	type idx struct{ Child, Item int }
	var got []idx
	for _, c := range out {
		got = append(got, idx{c.ChildIndex, c.ItemIndex})
	}
	want := []idx{{0, -1}, {1, 0}, {2, 1}, {3, -1}, {4, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("indexes (-want +got):\n%s", diff)
	}

	snap := s.Compile()
	if len(snap.ChildList) != 5 || len(snap.Items) != 3 {
		t.Fatalf("ChildList=%d Items=%d, want 5 and 3", len(snap.ChildList), len(snap.Items))
	}
}

func TestMaxViewedOnlyAdvances(t *testing.T) {
	s := NewStore[int](Options{})
	mounted := s.UpdateMounted(children(domain.ItemTypeItem, domain.ItemTypeItem, domain.ItemTypeItem, domain.ItemTypeItem))

	s.SetMaxViewedIndex(mounted[2])
	s.SetMaxViewedIndex(mounted[0])

	snap := s.Compile()
	if deref(snap.MaxViewedItem) != 2 || deref(snap.MaxViewedChild) != 2 {
		t.Fatalf("MaxViewed item=%d child=%d, want 2", deref(snap.MaxViewedItem), deref(snap.MaxViewedChild))
	}
	if deref(snap.RemainingChildren) != 1 || deref(snap.RemainingItems) != 1 {
		t.Fatalf("Remaining children=%d items=%d, want 1", deref(snap.RemainingChildren), deref(snap.RemainingItems))
	}

	// Mounting more children grows the remainder
	s.UpdateMounted(children(domain.ItemTypeItem))
	if got := deref(s.Compile().RemainingChildren); got != 2 {
		t.Fatalf("RemainingChildren = %d, want 2", got)
	}
}

func TestSeparatorViewing(t *testing.T) {
	tests := []struct {
		name     string
		advance  bool
		wantItem int
	}{
		{"separators only advance children", false, -1},
		{"separators advance preceding item", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore[int](Options{SeparatorsAdvanceItems: tt.advance})
			mounted := s.UpdateMounted(children(domain.ItemTypeItem, domain.ItemTypeSeparator, domain.ItemTypeItem))

			s.SetMaxViewedIndex(mounted[1])
			snap := s.Compile()
			if deref(snap.MaxViewedChild) != 1 {
				t.Fatalf("MaxViewedChild = %d, want 1", deref(snap.MaxViewedChild))
			}
			if got := deref(snap.MaxViewedItem); got != tt.wantItem {
				t.Fatalf("MaxViewedItem = %d, want %d", got, tt.wantItem)
			}
		})
	}
}

func TestRenderPageNeverPassesLoadPage(t *testing.T) {
	s := NewStore[int](Options{})
	s.IncrementRenderPage()
	if s.Compile().RenderPage != 0 {
		t.Fatal("RenderPage advanced past LoadPage")
	}

	s.IncrementLoadPage()
	s.IncrementRenderPage()
	s.IncrementRenderPage()
	snap := s.Compile()
	if snap.RenderPage != 1 || snap.IsInitialRender {
		t.Fatalf("RenderPage=%d IsInitialRender=%v, want 1 false", snap.RenderPage, snap.IsInitialRender)
	}
}

func TestDataCursorClamped(t *testing.T) {
	s := NewStore[int](Options{})
	s.UpdateData(nil, []int{1, 2, 3}, true)
	s.AdvanceDataCursor(2)
	if got := s.Compile().PendingData(); got != 1 {
		t.Fatalf("PendingData() = %d, want 1", got)
	}
	s.AdvanceDataCursor(10)
	if got := s.Compile().DataCursor; got != 3 {
		t.Fatalf("DataCursor = %d, want 3", got)
	}
}

func TestStopAndDoneAreSticky(t *testing.T) {
	s := NewStore[int](Options{})
	s.SetIsLifecycleDone(true)
	snap := s.Compile()
	if !snap.IsRequestsStopped {
		t.Fatal("done should imply requests stopped")
	}

	s.SetIsRequestsStopped(false)
	if !s.Compile().IsRequestsStopped {
		t.Fatal("IsRequestsStopped cleared without Reset")
	}
}

func TestResetAdvancesEpoch(t *testing.T) {
	s := NewStore[int](Options{})
	s.UpdateData(nil, []int{1}, true)
	s.SetIsLifecycleDone(true)
	before := s.Compile()

	s.Reset()
	after := s.Compile()
	if after.Epoch != before.Epoch+1 {
		t.Fatalf("Epoch = %d, want %d", after.Epoch, before.Epoch+1)
	}
	if len(after.Data) != 0 || after.IsLifecycleDone || after.IsRequestsStopped || !after.IsInitialLoading {
		t.Fatalf("Reset() left state behind: %+v", after)
	}
	if after.Version <= before.Version {
		t.Fatal("Version should keep increasing across Reset")
	}
}

func TestSubscribe(t *testing.T) {
	s := NewStore[int](Options{})
	var versions []uint64
	unsub := s.Subscribe(func(snap Snapshot[int]) {
		versions = append(versions, snap.Version)
	})

	s.SetIsLoadingInProgress(true)
	s.SetIsLoadingInProgress(true) // no change, no notification
	s.SetIsLoadingInProgress(false)
	unsub()
	s.SetIsLoadingInProgress(true)

	if len(versions) != 2 || versions[1] <= versions[0] {
		t.Fatalf("versions = %v, want two increasing values", versions)
	}
}
