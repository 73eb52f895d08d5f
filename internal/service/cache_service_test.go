package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

type cacheRepoStub struct {
	values   map[string]interface{}
	getErr   error
	deleted  []string
	patterns []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{values: map[string]interface{}{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if ptr, ok := dest.(*[]string); ok {
		*ptr = value.([]string)
	}
	return nil
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.values[key] = value
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var out []string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", []string{"a"}, 0))
	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, out)

	body := scrape(t, metrics)
	assert.Contains(t, body, "cache_hits_total 1")
	assert.Contains(t, body, "cache_misses_total 1")
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", []string{"a"}, 0))
	assert.Empty(t, repo.values)
	svc.Evict(context.Background(), "k")
	assert.Empty(t, repo.deleted)
}

func TestCacheServiceGetError(t *testing.T) {
	repo := newCacheRepoStub()
	repo.getErr = errors.New("redis down")
	svc := NewCacheService(repo, nil, 0, nil, true)

	var out []string
	hit, err := svc.Get(context.Background(), "k", &out)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceEvictAndInvalidate(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewCacheService(repo, nil, 0, nil, true)

	svc.Evict(context.Background(), "a", "b")
	require.NoError(t, svc.Invalidate(context.Background(), "lecture-booking:schedules:*"))

	assert.Equal(t, []string{"a", "b"}, repo.deleted)
	assert.Equal(t, []string{"lecture-booking:schedules:*"}, repo.patterns)
}
