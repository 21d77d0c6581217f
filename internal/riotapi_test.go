package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubRateLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	s.calls++
	return s.allowed, s.err
}

func createTestRiotClient() *RiotAPIClient {
	cfg := &Config{RiotAPIKey: "test-key"}
	cache := &CacheManager{enabled: false}
	limiter := &stubRateLimiter{allowed: true}
	return NewRiotAPIClient(cfg, cache, limiter, createTestMetrics(), createTestLogger())
}

func TestRegionHost(t *testing.T) {
	tests := []struct {
		platform string
		expected string
	}{
		{"BR1", "https://americas.api.riotgames.com"},
		{"NA1", "https://americas.api.riotgames.com"},
		{"EUW1", "https://europe.api.riotgames.com"},
		{"KR", "https://asia.api.riotgames.com"},
		{"OC1", "https://sea.api.riotgames.com"},
		{"UNKNOWN", "https://americas.api.riotgames.com"},
	}

	for _, tt := range tests {
		result := regionHost(tt.platform)
		if result != tt.expected {
			t.Errorf("regionHost(%s): expected %s, got %s", tt.platform, tt.expected, result)
		}
	}
}

func TestPlatformHost(t *testing.T) {
	if got := platformHost("NA1"); got != "https://na1.api.riotgames.com" {
		t.Errorf("expected https://na1.api.riotgames.com, got %s", got)
	}
}

func TestRiotAPIClient_DoRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Riot-Token") != "test-key" {
			t.Error("missing or incorrect riot token header")
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"test": "data"})
	}))
	defer server.Close()

	client := createTestRiotClient()
	client.Client = server.Client()

	data, err := client.doRequest(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var result map[string]string
	json.Unmarshal(data, &result)

	if result["test"] != "data" {
		t.Errorf("expected test data, got %v", result)
	}
}

func TestRiotAPIClient_DoRequest_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found"))
	}))
	defer server.Close()

	client := createTestRiotClient()
	client.Client = server.Client()

	_, err := client.doRequest(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
	if reqErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", reqErr.StatusCode)
	}
	if reqErr.Body != "Not Found" {
		t.Errorf("expected body 'Not Found', got %s", reqErr.Body)
	}
}

func TestRiotAPIClient_DoRequest_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("blocked request should never reach the server")
	}))
	defer server.Close()

	client := createTestRiotClient()
	client.Client = server.Client()
	client.Limiter = &stubRateLimiter{allowed: false}

	_, err := client.doRequest(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
	if reqErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", reqErr.StatusCode)
	}
}

func TestRiotAPIClient_DoRequest_RateLimiterError(t *testing.T) {
	client := createTestRiotClient()
	client.Limiter = &stubRateLimiter{err: errors.New("redis down")}

	_, err := client.doRequest(context.Background(), "http://unused")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRiotAPIClient_GetMatchByID_CacheHit(t *testing.T) {
	mock := &mockCacheRedis{data: make(map[string]string)}
	cache := &CacheManager{client: mock, enabled: true}

	cached := &Match{MatchID: "NA1_cached"}
	if err := cache.Set(context.Background(), cache.Key("match", "NA1", "NA1_cached"), cached, time.Minute); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	limiter := &stubRateLimiter{allowed: true}
	client := createTestRiotClient()
	client.Cache = cache
	client.Limiter = limiter

	match, err := client.GetMatchByID(context.Background(), "NA1_cached", "NA1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if match.MatchID != "NA1_cached" {
		t.Errorf("expected cached match, got %s", match.MatchID)
	}
	if limiter.calls != 0 {
		t.Error("cache hit should not call the rate limiter")
	}
}

func TestRiotAPIClient_GetMatchIDsByPUUID_QueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("startTime") != "1704067200" {
			t.Errorf("expected startTime 1704067200, got %s", q.Get("startTime"))
		}
		if q.Get("start") != "40" {
			t.Errorf("expected start 40, got %s", q.Get("start"))
		}
		if q.Get("count") != "5" {
			t.Errorf("expected count 5, got %s", q.Get("count"))
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode([]string{"NA1_1", "NA1_2"})
	}))
	defer server.Close()

	// regionHost ignores the platform for unknown values, so exercise the
	// query encoding through doRequest against the test server instead.
	client := createTestRiotClient()
	client.Client = server.Client()

	data, err := client.doRequest(context.Background(),
		server.URL+"/lol/match/v5/matches/by-puuid/p1/ids?startTime=1704067200&endTime=1704153600&start=40&count=5")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		t.Fatalf("expected id list, got %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %d", len(ids))
	}
}
