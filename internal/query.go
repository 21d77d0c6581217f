package internal

import (
	"context"
	"fmt"
)

const (
	defaultMaxIterations  = 10
	defaultMaxRosterPages = 10
)

// QueryRunner pages through a ranked tier's rosters and feeds them to the
// gatherer until the target match count is reached or the iteration cap
// hits. One roster page rarely carries enough match density by itself.
type QueryRunner struct {
	api            RiotAPI
	gatherer       *Gatherer
	logger         *Logger
	maxIterations  int
	maxRosterPages int
}

func NewQueryRunner(api RiotAPI, gatherer *Gatherer, logger *Logger, maxIterations, maxRosterPages int) *QueryRunner {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if maxRosterPages <= 0 {
		maxRosterPages = defaultMaxRosterPages
	}
	return &QueryRunner{
		api:            api,
		gatherer:       gatherer,
		logger:         logger,
		maxIterations:  maxIterations,
		maxRosterPages: maxRosterPages,
	}
}

// QueryMatches gathers matches for the rank until targetMatches are
// processed or maxIterations roster fetches have run. Apex tiers have a
// single roster page; divided tiers page through entries with the page
// cursor wrapping at maxRosterPages, so early pages can repeat on large
// leagues. Returns the processed count, which may fall short of the target
// when the roster or time window is exhausted.
func (q *QueryRunner) QueryMatches(ctx context.Context, platform string, rank Rank, startTime, endTime string, targetMatches int) (int, error) {
	if !rank.Valid() {
		return 0, fmt.Errorf("query: invalid rank %d", int(rank))
	}

	processed := 0
	page := 1

	for iteration := 0; processed < targetMatches && iteration < q.maxIterations; iteration++ {
		var roster *RosterPage
		var err error

		if rank.IsApex() {
			roster, err = q.fetchApexRoster(ctx, platform, rank)
		} else {
			roster, err = q.api.GetLeagueEntries(ctx, platform, rank.Tier(), rank.Division(), page)
			page = page%q.maxRosterPages + 1
		}
		if err != nil {
			q.logger.Warn("roster_fetch_failed").
				Component("query").
				Operation("query_matches").
				Game("", platform, rank.Tier()).
				Meta("iteration", iteration).
				Err(err).
				Log()
			continue
		}
		if len(roster.Players) == 0 {
			q.logger.Warn("roster_empty").
				Component("query").
				Operation("query_matches").
				Game("", platform, rank.Tier()).
				Meta("iteration", iteration).
				Log()
			continue
		}

		count, err := q.gatherer.GatherMatches(ctx, platform, startTime, endTime, targetMatches-processed, roster.Players, rank)
		if err != nil {
			return processed, fmt.Errorf("query: gather: %w", err)
		}
		processed += count

		q.logger.Info("query_iteration_completed").
			Component("query").
			Operation("query_matches").
			Game("", platform, rank.Tier()).
			Meta("iteration", iteration).
			Meta("processed", processed).
			Meta("target", targetMatches).
			Log()
	}

	return processed, nil
}

func (q *QueryRunner) fetchApexRoster(ctx context.Context, platform string, rank Rank) (*RosterPage, error) {
	switch rank {
	case RankChallenger:
		return q.api.GetChallengerLeague(ctx, platform)
	case RankGrandmaster:
		return q.api.GetGrandmasterLeague(ctx, platform)
	default:
		return q.api.GetMasterLeague(ctx, platform)
	}
}
