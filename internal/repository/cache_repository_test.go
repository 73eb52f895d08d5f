package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/lecture-booking-api/pkg/errors"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "lecture-booking:schedules:active", Key("schedules", "active"))
}

func TestCacheWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest []string

	assert.ErrorIs(t, repo.Get(context.Background(), Key("x"), &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), Key("x"), []string{"a"}, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), Key("x")))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), Key("*")))
	assert.NoError(t, repo.Close())
}
