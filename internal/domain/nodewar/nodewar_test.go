package nodewar

import (
	"errors"
	"fmt"
	"testing"
)

func roster(statuses ...string) []Entry {
	entries := make([]Entry, len(statuses))
	for i, s := range statuses {
		entries[i] = Entry{MessageID: "m1", UserID: fmt.Sprintf("u%d", i+1), Position: i + 1, Status: s}
	}
	return entries
}

func repeat(status string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = status
	}
	return out
}

func TestValidateCap(t *testing.T) {
	for _, c := range []int{1, 100, 200} {
		if err := ValidateCap(c); err != nil {
			t.Errorf("ValidateCap(%d) = %v", c, err)
		}
	}
	for _, c := range []int{0, -1, 201} {
		var capErr *CapError
		if err := ValidateCap(c); !errors.As(err, &capErr) {
			t.Errorf("ValidateCap(%d) = %v, want *CapError", c, err)
		}
	}
}

func TestNextPosition(t *testing.T) {
	if got := NextPosition(nil); got != 1 {
		t.Errorf("empty roster NextPosition = %d, want 1", got)
	}
	entries := []Entry{{Position: 3}, {Position: 7}, {Position: 5}}
	if got := NextPosition(entries); got != 8 {
		t.Errorf("NextPosition = %d, want 8", got)
	}
}

func TestJoinStatus(t *testing.T) {
	if got := JoinStatus(roster(StatusSigned, StatusSigned), 3); got != StatusSigned {
		t.Errorf("below cap = %s, want signed", got)
	}
	if got := JoinStatus(roster(StatusSigned, StatusSigned, StatusSigned), 3); got != StatusWaitlist {
		t.Errorf("at cap = %s, want waitlist", got)
	}
}

func TestPromotionAfterLeave_FIFO(t *testing.T) {
	// Full roster of 2 with waitlisters at positions 3, 4, 5 (joined in that order).
	entries := roster(StatusSigned, StatusSigned, StatusWaitlist, StatusWaitlist, StatusWaitlist)
	var promotedOrder []string

	for i := 0; i < 3; i++ {
		removed := entries[0]
		entries = entries[1:]
		promoted, ok := PromotionAfterLeave(entries, removed, 2)
		if !ok {
			t.Fatalf("round %d: expected a promotion", i)
		}
		promotedOrder = append(promotedOrder, promoted.UserID)
		for j := range entries {
			if entries[j].UserID == promoted.UserID {
				entries[j].Status = StatusSigned
			}
		}
		if CountSigned(entries) > 2 {
			t.Fatalf("round %d: signed count %d exceeds cap", i, CountSigned(entries))
		}
	}

	want := []string{"u3", "u4", "u5"}
	for i := range want {
		if promotedOrder[i] != want[i] {
			t.Fatalf("promotion order = %v, want %v", promotedOrder, want)
		}
	}
}

func TestPromotionAfterLeave_WaitlisterLeaving(t *testing.T) {
	entries := roster(StatusSigned, StatusWaitlist, StatusWaitlist)
	removed := entries[1]
	remaining := []Entry{entries[0], entries[2]}
	if _, ok := PromotionAfterLeave(remaining, removed, 1); ok {
		t.Error("a waitlisted departure must not promote anyone")
	}
}

func TestPromotionAfterLeave_EmptyWaitlist(t *testing.T) {
	entries := roster(StatusSigned, StatusSigned)
	if _, ok := PromotionAfterLeave(entries[1:], entries[0], 2); ok {
		t.Error("no promotion expected without waitlisters")
	}
}

func TestApplyCap_LowerThenRaise(t *testing.T) {
	entries := roster(repeat(StatusSigned, 10)...)

	lowered := ApplyCap(entries, 6)
	if lowered.Demoted != 4 || lowered.Promoted != 0 {
		t.Fatalf("lowering to 6 = {demoted: %d, promoted: %d}, want {4, 0}", lowered.Demoted, lowered.Promoted)
	}
	for _, c := range lowered.Changed {
		if c.Position < 7 || c.Status != StatusWaitlist {
			t.Errorf("unexpected change %+v", c)
		}
		entries[c.Position-1].Status = c.Status
	}

	raised := ApplyCap(entries, 10)
	if raised.Demoted != 0 || raised.Promoted != 4 {
		t.Fatalf("raising to 10 = {demoted: %d, promoted: %d}, want {0, 4}", raised.Demoted, raised.Promoted)
	}
	for _, c := range raised.Changed {
		entries[c.Position-1].Status = c.Status
	}
	if CountSigned(entries) != 10 {
		t.Errorf("signed after raise = %d, want 10", CountSigned(entries))
	}
}

func TestApplyCap_UsesPositionNotSliceOrder(t *testing.T) {
	entries := []Entry{
		{UserID: "late", Position: 9, Status: StatusSigned},
		{UserID: "early", Position: 2, Status: StatusWaitlist},
	}
	got := ApplyCap(entries, 1)
	if got.Promoted != 1 || got.Demoted != 1 {
		t.Fatalf("got %+v, want one promotion and one demotion", got)
	}
	for _, c := range got.Changed {
		if c.UserID == "early" && c.Status != StatusSigned {
			t.Error("lowest position should be signed")
		}
		if c.UserID == "late" && c.Status != StatusWaitlist {
			t.Error("highest position should be waitlisted")
		}
	}
}

func TestPartition(t *testing.T) {
	entries := []Entry{
		{UserID: "c", Position: 3, Status: StatusWaitlist},
		{UserID: "a", Position: 1, Status: StatusSigned},
		{UserID: "d", Position: 4, Status: StatusWaitlist},
		{UserID: "b", Position: 2, Status: StatusSigned},
	}
	signed, waitlist := Partition(entries)
	if len(signed) != 2 || signed[0].UserID != "a" || signed[1].UserID != "b" {
		t.Errorf("signed = %+v", signed)
	}
	if len(waitlist) != 2 || waitlist[0].UserID != "c" || waitlist[1].UserID != "d" {
		t.Errorf("waitlist = %+v", waitlist)
	}
}
