package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "lecture_booking", cfg.Database.Name)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.True(t, cfg.Schedules.ExpiryEnabled)
	assert.Equal(t, time.Hour, cfg.Schedules.ExpiryInterval)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, time.UTC, cfg.Booking.Location())
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	v.Set("SCHEDULE_EXPIRY_INTERVAL", "not-a-duration")
	v.Set("BOOKING_TIMEZONE", "Asia/Jakarta")
	cfg := fromViper(v)

	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.Schedules.ExpiryInterval)
	assert.Equal(t, "Asia/Jakarta", cfg.Booking.Location().String())
}

func TestBookingLocationFallsBack(t *testing.T) {
	assert.Equal(t, time.UTC, BookingConfig{Timezone: "Mars/Olympus"}.Location())
}
