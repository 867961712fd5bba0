package engine

import (
	"testing"

	"github.com/sentinelops/lewsboard/model"
)

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	if h.Len() != 0 || h.Latest() != nil {
		t.Fatal("fresh history not empty")
	}

	for i := 0; i < 5; i++ {
		h.Push(model.Cycle{Err: string(rune('a' + i))})
	}
	if h.Len() != 3 {
		t.Errorf("len = %d, want capacity 3", h.Len())
	}
	if got := h.Latest(); got == nil || got.Err != "e" {
		t.Errorf("latest = %+v", got)
	}
	if got := h.Get(0); got == nil || got.Err != "c" {
		t.Errorf("oldest = %+v", got)
	}
	if h.Get(3) != nil || h.Get(-1) != nil {
		t.Error("out-of-range Get returned a cycle")
	}
}
