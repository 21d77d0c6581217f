package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultGatherBatchSize = 20

// Gatherer drives the match-collection pipeline: batched concurrent id
// fetches per player, a novelty filter against the match store, batched
// concurrent detail fetches for unseen ids, and one upsert at the end.
type Gatherer struct {
	api       RiotAPI
	matches   MatchStore
	progress  ProgressStore
	metrics   *MetricsCollector
	logger    *Logger
	batchSize int
}

func NewGatherer(api RiotAPI, matches MatchStore, progress ProgressStore, metrics *MetricsCollector, logger *Logger, batchSize int) *Gatherer {
	if batchSize <= 0 {
		batchSize = defaultGatherBatchSize
	}
	return &Gatherer{
		api:       api,
		matches:   matches,
		progress:  progress,
		metrics:   metrics,
		logger:    logger,
		batchSize: batchSize,
	}
}

// GatherMatches collects match ids for the players inside the time window,
// filters out ids already stored, fetches details for the rest, stamps every
// participant with rank, and persists the batch. It returns the number of
// matches processed by the store.
//
// Individual fetch failures are logged and skipped; store failures and an
// empty players list abort the call.
func (g *Gatherer) GatherMatches(ctx context.Context, platform, startTime, endTime string, targetMatches int, players []string, rank Rank) (int, error) {
	if len(players) == 0 {
		return 0, errors.New("gather: players list is empty")
	}

	startEpoch, err := isoToEpochSeconds(startTime)
	if err != nil {
		return 0, fmt.Errorf("gather: start time: %w", err)
	}
	endEpoch, err := isoToEpochSeconds(endTime)
	if err != nil {
		return 0, fmt.Errorf("gather: end time: %w", err)
	}

	matchesPerPlayer := (targetMatches + len(players) - 1) / len(players)
	// A floor of 2 keeps pagination moving for tiny rosters.
	if matchesPerPlayer < 2 {
		matchesPerPlayer = 2
	}

	started := time.Now()

	ids, err := g.collectIDs(ctx, platform, startTime, endTime, startEpoch, endEpoch, matchesPerPlayer, players)
	if err != nil {
		return 0, err
	}

	unseen, err := g.matches.FilterUnseen(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("gather: filter unseen: %w", err)
	}

	g.logger.Debug("ids_filtered").
		Component("gatherer").
		Operation("gather_matches").
		Phase("filter").
		Game("", platform, rank.Tier()).
		Meta("collected", len(ids)).
		Meta("unseen", len(unseen)).
		Log()

	collected := g.collectDetails(ctx, platform, unseen, rank)

	count, err := g.matches.UpsertMatches(ctx, collected)
	if err != nil {
		return 0, fmt.Errorf("gather: upsert: %w", err)
	}
	g.metrics.RecordMatchesUpserted(count)
	g.metrics.RecordGatherDuration(time.Since(started))

	g.logger.Info("gather_completed").
		Component("gatherer").
		Operation("gather_matches").
		Phase("persist").
		Game("", platform, rank.Tier()).
		Duration(time.Since(started)).
		Meta("players", len(players)).
		Meta("matches_per_player", matchesPerPlayer).
		Meta("processed", count).
		Log()

	return count, nil
}

// collectIDs runs the id-collection phase. Players are processed in batches
// of batchSize; fetches within a batch run concurrently and the batch is a
// barrier. Each player's pagination offset advances by the number of ids
// returned, even zero, before the next batch starts.
func (g *Gatherer) collectIDs(ctx context.Context, platform, startTime, endTime string, startEpoch, endEpoch int64, matchesPerPlayer int, players []string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	var mu sync.Mutex

	for batchStart := 0; batchStart < len(players); batchStart += g.batchSize {
		batchEnd := batchStart + g.batchSize
		if batchEnd > len(players) {
			batchEnd = len(players)
		}

		eg, egCtx := errgroup.WithContext(ctx)
		for _, puuid := range players[batchStart:batchEnd] {
			puuid := puuid
			eg.Go(func() error {
				qc := QueryContext{Platform: platform, StartTime: startTime, EndTime: endTime, PUUID: puuid}

				offset, err := g.progress.GetStartIndex(egCtx, qc)
				if err != nil {
					return fmt.Errorf("gather: progress read: %w", err)
				}

				fetched, err := g.api.GetMatchIDsByPUUID(egCtx, puuid, platform, startEpoch, endEpoch, offset, matchesPerPlayer)
				if err != nil {
					// One player's failure must not abort the batch.
					g.metrics.RecordIDFetchError()
					g.logger.Warn("id_fetch_failed").
						Component("gatherer").
						Operation("collect_ids").
						Phase("ids").
						Game(puuid, platform, "").
						Err(err).
						Log()
					return nil
				}

				if err := g.progress.SetStartIndex(egCtx, qc, offset+len(fetched)); err != nil {
					return fmt.Errorf("gather: progress write: %w", err)
				}

				g.metrics.RecordIDsFetched(len(fetched))

				mu.Lock()
				for _, id := range fetched {
					ids[id] = struct{}{}
				}
				mu.Unlock()
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	return ids, nil
}

// collectDetails runs the detail-collection phase over the unseen ids with
// the same batch barrier as collectIDs. Failed fetches are skipped; every
// participant of a parsed match gets the rank stamp.
func (g *Gatherer) collectDetails(ctx context.Context, platform string, unseen map[string]struct{}, rank Rank) []*Match {
	pending := make([]string, 0, len(unseen))
	for id := range unseen {
		pending = append(pending, id)
	}

	rankNum := int(rank)
	var collected []*Match
	var mu sync.Mutex

	for batchStart := 0; batchStart < len(pending); batchStart += g.batchSize {
		batchEnd := batchStart + g.batchSize
		if batchEnd > len(pending) {
			batchEnd = len(pending)
		}

		eg, egCtx := errgroup.WithContext(ctx)
		for _, matchID := range pending[batchStart:batchEnd] {
			matchID := matchID
			eg.Go(func() error {
				match, err := g.api.GetMatchByID(egCtx, matchID, platform)
				if err != nil {
					g.metrics.RecordDetailError()
					g.logger.Warn("detail_fetch_failed").
						Component("gatherer").
						Operation("collect_details").
						Phase("details").
						Match(matchID).
						Game("", platform, "").
						Err(err).
						Log()
					return nil
				}
				g.metrics.RecordDetailFetch()

				for i := range match.Participants {
					match.Participants[i].RankNum = &rankNum
				}

				mu.Lock()
				collected = append(collected, match)
				mu.Unlock()
				return nil
			})
		}
		// Tasks only return nil; Wait is the batch barrier.
		eg.Wait()
	}

	return collected
}

// isoToEpochSeconds accepts an RFC 3339 timestamp or a bare date and returns
// epoch seconds, the form the match-v5 endpoint expects.
func isoToEpochSeconds(value string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Unix(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return 0, fmt.Errorf("invalid ISO-8601 time %q", value)
	}
	return t.Unix(), nil
}
