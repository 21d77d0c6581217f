package internal

import (
	"context"
	"errors"
	"testing"
)

func newTestRunner(api RiotAPI, matches MatchStore, progress ProgressStore, maxIterations, maxPages int) *QueryRunner {
	g := newTestGatherer(api, matches, progress)
	return NewQueryRunner(api, g, createTestLogger(), maxIterations, maxPages)
}

func TestQueryMatches_ZeroTargetReturnsImmediately(t *testing.T) {
	api := &fakeRiotAPI{
		challengerRoster: &RosterPage{Tier: "CHALLENGER", Players: []string{"p1"}},
	}
	runner := newTestRunner(api, newMemMatchStore(), newMemProgressStore(), 10, 10)

	processed, err := runner.QueryMatches(context.Background(), "NA1", RankChallenger, "2024-01-01", "2024-01-02", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 0 {
		t.Errorf("expected 0 processed, got %d", processed)
	}
	if api.challengerCalls != 0 {
		t.Errorf("expected no roster fetches for zero target, got %d", api.challengerCalls)
	}
}

func TestQueryMatches_InvalidRank(t *testing.T) {
	runner := newTestRunner(&fakeRiotAPI{}, newMemMatchStore(), newMemProgressStore(), 10, 10)

	_, err := runner.QueryMatches(context.Background(), "NA1", Rank(99), "2024-01-01", "2024-01-02", 5)
	if err == nil {
		t.Fatal("expected error for invalid rank")
	}
}

func TestQueryMatches_IterationCap(t *testing.T) {
	// Roster has a player but the player yields no matches, so the loop can
	// only stop at the cap.
	api := &fakeRiotAPI{
		challengerRoster: &RosterPage{Tier: "CHALLENGER", Players: []string{"p1"}},
		idsByPlayer:      map[string][]string{},
	}
	runner := newTestRunner(api, newMemMatchStore(), newMemProgressStore(), 4, 10)

	processed, err := runner.QueryMatches(context.Background(), "NA1", RankChallenger, "2024-01-01", "2024-01-02", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 0 {
		t.Errorf("expected 0 processed, got %d", processed)
	}
	if api.challengerCalls != 4 {
		t.Errorf("expected exactly 4 roster fetches, got %d", api.challengerCalls)
	}
}

func TestQueryMatches_ApexUsesSingleRoster(t *testing.T) {
	api := &fakeRiotAPI{
		challengerRoster: &RosterPage{Tier: "CHALLENGER", Players: []string{"p1", "p2"}},
		idsByPlayer: map[string][]string{
			"p1": {"M1", "M2"},
			"p2": {"M3"},
		},
	}
	runner := newTestRunner(api, newMemMatchStore(), newMemProgressStore(), 10, 10)

	processed, err := runner.QueryMatches(context.Background(), "NA1", RankChallenger, "2024-01-01", "2024-01-02", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 3 {
		t.Errorf("expected 3 processed, got %d", processed)
	}
	if api.challengerCalls != 1 {
		t.Errorf("expected a single roster fetch, got %d", api.challengerCalls)
	}
	if len(api.entriesPages) != 0 {
		t.Errorf("apex tier should not page entries, got pages %v", api.entriesPages)
	}
}

func TestQueryMatches_PageWraparound(t *testing.T) {
	rank, _ := RankFromTier("GOLD", "II")
	api := &fakeRiotAPI{
		entriesByPage: map[int]*RosterPage{
			1: {Tier: "GOLD", Division: "II", Page: 1, Players: []string{"p1"}},
			2: {Tier: "GOLD", Division: "II", Page: 2, Players: []string{"p2"}},
			3: {Tier: "GOLD", Division: "II", Page: 3, Players: []string{"p3"}},
		},
		idsByPlayer: map[string][]string{},
	}
	runner := newTestRunner(api, newMemMatchStore(), newMemProgressStore(), 5, 3)

	_, err := runner.QueryMatches(context.Background(), "NA1", rank, "2024-01-01", "2024-01-02", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []int{1, 2, 3, 1, 2}
	if len(api.entriesPages) != len(expected) {
		t.Fatalf("expected %d entries fetches, got %d", len(expected), len(api.entriesPages))
	}
	for i, page := range expected {
		if api.entriesPages[i] != page {
			t.Errorf("fetch %d: expected page %d, got %d", i, page, api.entriesPages[i])
		}
	}
}

func TestQueryMatches_RosterFailureDoesNotAbort(t *testing.T) {
	api := &fakeRiotAPI{rosterErr: errors.New("simulated roster failure")}
	runner := newTestRunner(api, newMemMatchStore(), newMemProgressStore(), 3, 10)

	processed, err := runner.QueryMatches(context.Background(), "NA1", RankChallenger, "2024-01-01", "2024-01-02", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 0 {
		t.Errorf("expected 0 processed, got %d", processed)
	}
	if api.challengerCalls != 3 {
		t.Errorf("expected roster fetch per iteration up to the cap, got %d", api.challengerCalls)
	}
}

func TestQueryMatches_EmptyRosterSkipsGather(t *testing.T) {
	api := &fakeRiotAPI{
		challengerRoster: &RosterPage{Tier: "CHALLENGER"},
	}
	store := newMemMatchStore()
	runner := newTestRunner(api, store, newMemProgressStore(), 2, 10)

	processed, err := runner.QueryMatches(context.Background(), "NA1", RankChallenger, "2024-01-01", "2024-01-02", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 0 {
		t.Errorf("expected 0 processed, got %d", processed)
	}
	if len(store.upserts) != 0 {
		t.Errorf("expected no upserts for an empty roster, got %d", len(store.upserts))
	}
}

func TestQueryMatches_StoreFailurePropagates(t *testing.T) {
	api := &fakeRiotAPI{
		challengerRoster: &RosterPage{Tier: "CHALLENGER", Players: []string{"p1"}},
		idsByPlayer:      map[string][]string{"p1": {"M1"}},
	}
	store := newMemMatchStore()
	store.failUpsert = true
	runner := newTestRunner(api, store, newMemProgressStore(), 5, 10)

	_, err := runner.QueryMatches(context.Background(), "NA1", RankChallenger, "2024-01-01", "2024-01-02", 10)
	if err == nil {
		t.Fatal("expected store failure to propagate")
	}
}

func TestQueryMatches_UnderDeliveryIsNotAnError(t *testing.T) {
	api := &fakeRiotAPI{
		masterRoster: &RosterPage{Tier: "MASTER", Players: []string{"p1"}},
		idsByPlayer:  map[string][]string{"p1": {"M1"}},
	}
	runner := newTestRunner(api, newMemMatchStore(), newMemProgressStore(), 2, 10)

	processed, err := runner.QueryMatches(context.Background(), "NA1", RankMaster, "2024-01-01", "2024-01-02", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed != 1 {
		t.Errorf("expected 1 processed, got %d", processed)
	}
}
