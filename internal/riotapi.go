package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const rankedSoloQueue = "RANKED_SOLO_5x5"

type RequestError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("riot api request to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

type RiotAPIClient struct {
	APIKey  string
	Client  *http.Client
	Cache   *CacheManager
	Limiter RateLimiterInterface
	Metrics *MetricsCollector
	logger  *Logger
}

func NewRiotAPIClient(cfg *Config, cache *CacheManager, limiter RateLimiterInterface, metrics *MetricsCollector, logger *Logger) *RiotAPIClient {
	return &RiotAPIClient{
		APIKey:  cfg.RiotAPIKey,
		Cache:   cache,
		Limiter: limiter,
		Metrics: metrics,
		logger:  logger,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// League endpoints route to the platform host, match endpoints to the
// regional host, per Riot's routing scheme.
func platformHost(platform string) string {
	return fmt.Sprintf("https://%s.api.riotgames.com", strings.ToLower(platform))
}

func regionHost(platform string) string {
	switch strings.ToUpper(platform) {
	case "BR1", "LA1", "LA2", "NA1":
		return "https://americas.api.riotgames.com"
	case "EUW1", "EUN1", "TR1", "RU", "ME1":
		return "https://europe.api.riotgames.com"
	case "JP1", "KR":
		return "https://asia.api.riotgames.com"
	case "OC1", "SG2", "TW2", "VN2":
		return "https://sea.api.riotgames.com"
	default:
		return "https://americas.api.riotgames.com"
	}
}

func (c *RiotAPIClient) doRequest(ctx context.Context, requestURL string) ([]byte, error) {
	allowed, err := c.Limiter.Allow(ctx, "riot")
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		return nil, &RequestError{URL: requestURL, StatusCode: http.StatusTooManyRequests, Body: "local rate limit exceeded"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Riot-Token", c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{URL: requestURL, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// GetMatchIDsByPUUID lists up to count match ids for the player inside the
// epoch-second window, starting at the given pagination offset. Not cached;
// the progress store makes every page request unique.
func (c *RiotAPIClient) GetMatchIDsByPUUID(ctx context.Context, puuid, platform string, startEpoch, endEpoch int64, start, count int) ([]string, error) {
	params := url.Values{}
	params.Set("startTime", strconv.FormatInt(startEpoch, 10))
	params.Set("endTime", strconv.FormatInt(endEpoch, 10))
	params.Set("start", strconv.Itoa(start))
	params.Set("count", strconv.Itoa(count))

	requestURL := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?%s",
		regionHost(platform), url.PathEscape(puuid), params.Encode())

	data, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetMatchByID fetches and parses one match. Matches are immutable, so
// parsed results cache without expiry.
func (c *RiotAPIClient) GetMatchByID(ctx context.Context, matchID, platform string) (*Match, error) {
	cacheKey := c.Cache.Key("match", platform, matchID)

	var cached Match
	if err := c.Cache.Get(ctx, cacheKey, &cached); err == nil {
		c.Metrics.RecordCacheHit(cacheKey)
		return &cached, nil
	}
	c.Metrics.RecordCacheMiss(cacheKey)

	requestURL := fmt.Sprintf("%s/lol/match/v5/matches/%s", regionHost(platform), url.PathEscape(matchID))
	data, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	match, err := ParseMatch(data)
	if err != nil {
		return nil, err
	}

	c.Cache.Set(ctx, cacheKey, match, 0)
	return match, nil
}

func (c *RiotAPIClient) GetChallengerLeague(ctx context.Context, platform string) (*RosterPage, error) {
	return c.getApexLeague(ctx, platform, "challengerleagues")
}

func (c *RiotAPIClient) GetGrandmasterLeague(ctx context.Context, platform string) (*RosterPage, error) {
	return c.getApexLeague(ctx, platform, "grandmasterleagues")
}

func (c *RiotAPIClient) GetMasterLeague(ctx context.Context, platform string) (*RosterPage, error) {
	return c.getApexLeague(ctx, platform, "masterleagues")
}

func (c *RiotAPIClient) getApexLeague(ctx context.Context, platform, league string) (*RosterPage, error) {
	cacheKey := c.Cache.Key("roster", platform, league)

	var cached RosterPage
	if err := c.Cache.Get(ctx, cacheKey, &cached); err == nil {
		c.Metrics.RecordCacheHit(cacheKey)
		return &cached, nil
	}
	c.Metrics.RecordCacheMiss(cacheKey)

	requestURL := fmt.Sprintf("%s/lol/league/v4/%s/by-queue/%s", platformHost(platform), league, rankedSoloQueue)
	data, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	roster, err := ParseApexRoster(data)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("apex_roster_fetched").
		Component("riot_api").
		Operation("get_apex_league").
		Game("", platform, roster.Tier).
		Meta("players", len(roster.Players)).
		Log()

	c.Cache.Set(ctx, cacheKey, roster, 30*time.Minute)
	return roster, nil
}

func (c *RiotAPIClient) GetLeagueEntries(ctx context.Context, platform, tier, division string, page int) (*RosterPage, error) {
	cacheKey := c.Cache.Key("roster", platform, tier, division, strconv.Itoa(page))

	var cached RosterPage
	if err := c.Cache.Get(ctx, cacheKey, &cached); err == nil {
		c.Metrics.RecordCacheHit(cacheKey)
		return &cached, nil
	}
	c.Metrics.RecordCacheMiss(cacheKey)

	requestURL := fmt.Sprintf("%s/lol/league/v4/entries/%s/%s/%s?page=%d",
		platformHost(platform), rankedSoloQueue, tier, division, page)
	data, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	roster, err := ParseEntriesRoster(data, page)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("entries_roster_fetched").
		Component("riot_api").
		Operation("get_league_entries").
		Game("", platform, tier).
		Meta("division", division).
		Meta("page", page).
		Meta("players", len(roster.Players)).
		Log()

	c.Cache.Set(ctx, cacheKey, roster, 30*time.Minute)
	return roster, nil
}
