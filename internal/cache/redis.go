package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cache:travel:"

// RedisCache keeps catalogue reads for a short TTL. Seat counts in cached
// results are advisory; the ledger is the only authority on availability.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) GetTravelOptions(ctx context.Context, filter domain.TravelSearch) ([]domain.TravelOption, error) {
	var options []domain.TravelOption
	found, err := c.get(ctx, SearchKey(filter), &options)
	if err != nil || !found {
		return nil, err
	}
	return options, nil
}

func (c *RedisCache) SetTravelOptions(ctx context.Context, filter domain.TravelSearch, options []domain.TravelOption) error {
	return c.set(ctx, SearchKey(filter), options)
}

func (c *RedisCache) GetCities(ctx context.Context, query string) ([]string, error) {
	var cities []string
	found, err := c.get(ctx, CitiesKey(query), &cities)
	if err != nil || !found {
		return nil, err
	}
	return cities, nil
}

func (c *RedisCache) SetCities(ctx context.Context, query string, cities []string) error {
	return c.set(ctx, CitiesKey(query), cities)
}

// Invalidate drops every cached catalogue entry.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// SearchKey normalizes the filter so equivalent searches share an entry.
func SearchKey(filter domain.TravelSearch) string {
	date := ""
	if !filter.DepartureDate.IsZero() {
		date = filter.DepartureDate.Format(time.DateOnly)
	}
	return fmt.Sprintf("%ssearch:%s|%s|%s|%s", keyPrefix,
		normalize(filter.Source), normalize(filter.Destination), filter.Type, date)
}

func CitiesKey(query string) string {
	return keyPrefix + "cities:" + normalize(query)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
