package scheduling

import (
	"sort"
	"testing"
	"time"
)

// The queue day is the UTC day regardless of the wall clock's zone; a late
// evening in a western timezone is already the next day in UTC.
func TestQueueDayUsesUTC(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	late := time.Date(2026, 8, 29, 22, 30, 0, 0, zone) // 03:30 UTC on the 30th

	got := QueueDay(late)
	want := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("QueueDay = %v, want %v", got, want)
	}
}

func TestQueueStatusRank(t *testing.T) {
	if QueueStatusRank(QueueConsulting) >= QueueStatusRank(QueueWaiting) {
		t.Fatal("consulting must sort before waiting")
	}
	if QueueStatusRank(QueueWaiting) >= QueueStatusRank(QueueCompleted) {
		t.Fatal("waiting must sort before completed")
	}
	if QueueStatusRank("anything-else") != QueueStatusRank(QueueCompleted) {
		t.Fatal("unknown statuses sort with completed")
	}
}

// The display order must not depend on how the status strings collate.
func TestQueueOrderingIsByRankThenPosition(t *testing.T) {
	entries := []*QueueEntry{
		{Position: 2, Status: QueueCompleted},
		{Position: 3, Status: QueueWaiting},
		{Position: 1, Status: QueueConsulting},
		{Position: 4, Status: QueueWaiting},
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ri, rj := QueueStatusRank(entries[i].Status), QueueStatusRank(entries[j].Status)
		if ri != rj {
			return ri < rj
		}
		return entries[i].Position < entries[j].Position
	})

	wantPositions := []int{1, 3, 4, 2}
	for i, e := range entries {
		if e.Position != wantPositions[i] {
			t.Fatalf("order[%d] = position %d, want %d", i, e.Position, wantPositions[i])
		}
	}
}
