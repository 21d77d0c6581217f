package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type cacheRedis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type CacheManager struct {
	client  cacheRedis
	enabled bool
}

func NewCacheManager(cfg *Config) *CacheManager {
	redisDB, _ := strconv.Atoi(cfg.RedisDB)
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       redisDB,
	})

	return &CacheManager{
		client:  client,
		enabled: cfg.CacheEnabled,
	}
}

func (cm *CacheManager) Get(ctx context.Context, key string, result interface{}) error {
	if !cm.enabled {
		return redis.Nil
	}

	data, err := cm.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), result)
}

func (cm *CacheManager) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	if !cm.enabled {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return cm.client.Set(ctx, key, jsonData, ttl).Err()
}

func (cm *CacheManager) Key(prefix, platform string, params ...string) string {
	key := fmt.Sprintf("lol:%s:%s", prefix, platform)
	for _, param := range params {
		key = fmt.Sprintf("%s:%s", key, param)
	}
	return key
}

func (cm *CacheManager) DeletePattern(ctx context.Context, pattern string) error {
	if !cm.enabled {
		return nil
	}

	keys, err := cm.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return cm.client.Del(ctx, keys...).Err()
	}

	return nil
}
