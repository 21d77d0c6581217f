package internal

import (
	"sort"
	"sync"
	"time"
)

type MetricsCollector struct {
	logger *Logger

	requestCount    map[string]int64
	requestDuration map[string][]int64
	apiErrors       map[string]int64

	idsFetched      int64
	idFetchErrors   int64
	detailFetches   int64
	detailErrors    int64
	matchesUpserted int64
	gatherDurations []int64

	cacheHits   int64
	cacheMisses int64

	mu sync.RWMutex
}

func NewMetricsCollector(logger *Logger) *MetricsCollector {
	mc := &MetricsCollector{
		logger:          logger,
		requestCount:    make(map[string]int64),
		requestDuration: make(map[string][]int64),
		apiErrors:       make(map[string]int64),
	}

	go mc.startMetricsReporter()
	return mc
}

func (mc *MetricsCollector) RecordRequest(endpoint string, duration time.Duration, statusCode int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.requestCount[endpoint]++
	mc.requestDuration[endpoint] = append(mc.requestDuration[endpoint], duration.Milliseconds())

	if statusCode >= 400 {
		mc.apiErrors[endpoint]++
	}
}

func (mc *MetricsCollector) RecordIDsFetched(count int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.idsFetched += int64(count)
}

func (mc *MetricsCollector) RecordIDFetchError() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.idFetchErrors++
}

func (mc *MetricsCollector) RecordDetailFetch() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.detailFetches++
}

func (mc *MetricsCollector) RecordDetailError() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.detailErrors++
}

func (mc *MetricsCollector) RecordMatchesUpserted(count int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.matchesUpserted += int64(count)
}

func (mc *MetricsCollector) RecordGatherDuration(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.gatherDurations = append(mc.gatherDurations, duration.Milliseconds())
}

func (mc *MetricsCollector) RecordCacheHit(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cacheHits++

	mc.logger.Debug("cache_hit").
		Component("metrics").
		Operation("record_cache").
		Cache(true, key).
		Log()
}

func (mc *MetricsCollector) RecordCacheMiss(key string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.cacheMisses++

	mc.logger.Debug("cache_miss").
		Component("metrics").
		Operation("record_cache").
		Cache(false, key).
		Log()
}

func (mc *MetricsCollector) startMetricsReporter() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		mc.reportMetrics()
	}
}

func (mc *MetricsCollector) reportMetrics() {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	mc.logger.Info("metrics_report").
		Component("metrics").
		Operation("report").
		Meta("ids_fetched", mc.idsFetched).
		Meta("id_fetch_errors", mc.idFetchErrors).
		Meta("detail_fetches", mc.detailFetches).
		Meta("detail_errors", mc.detailErrors).
		Meta("matches_upserted", mc.matchesUpserted).
		Meta("cache_hits", mc.cacheHits).
		Meta("cache_misses", mc.cacheMisses).
		Meta("cache_hit_rate_percent", mc.calculateCacheHitRate()).
		Meta("total_requests", mc.sumMapValues(mc.requestCount)).
		Meta("total_request_errors", mc.sumMapValues(mc.apiErrors)).
		Log()

	if len(mc.gatherDurations) > 0 {
		mc.logger.Info("gather_performance").
			Component("metrics").
			Operation("performance_report").
			Meta("gather_runs", len(mc.gatherDurations)).
			Meta("avg_duration_ms", mc.calculateAverage(mc.gatherDurations)).
			Meta("p95_duration_ms", mc.calculatePercentile(mc.gatherDurations, 0.95)).
			Log()
	}
}

func (mc *MetricsCollector) sumMapValues(m map[string]int64) int64 {
	sum := int64(0)
	for _, count := range m {
		sum += count
	}
	return sum
}

func (mc *MetricsCollector) calculateCacheHitRate() float64 {
	total := mc.cacheHits + mc.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(mc.cacheHits) / float64(total) * 100
}

func (mc *MetricsCollector) calculateAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := int64(0)
	for _, v := range values {
		sum += v
	}

	return float64(sum) / float64(len(values))
}

func (mc *MetricsCollector) calculatePercentile(values []int64, percentile float64) int64 {
	if len(values) == 0 {
		return 0
	}

	sortedValues := make([]int64, len(values))
	copy(sortedValues, values)
	sort.Slice(sortedValues, func(i, j int) bool {
		return sortedValues[i] < sortedValues[j]
	})

	index := int(percentile * float64(len(sortedValues)-1))
	return sortedValues[index]
}

func (mc *MetricsCollector) GetMetrics() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return map[string]interface{}{
		"pipeline": map[string]interface{}{
			"ids_fetched":      mc.idsFetched,
			"id_fetch_errors":  mc.idFetchErrors,
			"detail_fetches":   mc.detailFetches,
			"detail_errors":    mc.detailErrors,
			"matches_upserted": mc.matchesUpserted,
			"gather_runs":      len(mc.gatherDurations),
		},
		"cache": map[string]interface{}{
			"hits":     mc.cacheHits,
			"misses":   mc.cacheMisses,
			"hit_rate": mc.calculateCacheHitRate(),
		},
		"requests": mc.requestCount,
		"errors":   mc.apiErrors,
	}
}
