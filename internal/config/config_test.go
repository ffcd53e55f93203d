package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHAT_PAGE_SIZE", "")
	t.Setenv("WS_PONG_WAIT", "not-a-duration")

	cfg := Load()

	assert.Equal(t, 30, cfg.Chat.PageSize)
	assert.Equal(t, 100, cfg.Chat.MaxPageSize)
	assert.Equal(t, 60*time.Second, cfg.WS.PongWait)
	assert.Equal(t, int64(4096), cfg.WS.MaxMessageBytes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHAT_PAGE_SIZE", "10")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("REDIS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, 10, cfg.Chat.PageSize)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.Origins)
	assert.False(t, cfg.Redis.Enabled)
}

func TestDBConfig_URL(t *testing.T) {
	d := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", d.URL())
	assert.Contains(t, d.DSN(), "dbname=n")
}
