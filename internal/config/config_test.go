package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load("")

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []int{2018, 2019, 2020, 2021, 2022, 2023}, cfg.Years.List())
	assert.Equal(t, 0.05, cfg.Analysis.SignificanceLevel)
	assert.Equal(t, 32, cfg.TrendModel.BatchSize)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "ddw", cfg.Sites[0].Scanner)
}

func TestLoadFileMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
logging:
  level: debug
years:
  from: 2019
  to: 2020
analysis:
  covidStartDate: "2020-04-01"
sites:
  - name: mirror
    scanner: ddw
    categories:
      - name: abstracts
        url: https://mirror.example.org/abstracts
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg := Load(path)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []int{2019, 2020}, cfg.Years.List())
	assert.Equal(t, time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC), cfg.Analysis.CovidStart())
	// Untouched sections keep defaults.
	assert.Equal(t, 0.05, cfg.Analysis.SignificanceLevel)
	require.Len(t, cfg.Sites, 1)
	assert.Equal(t, "mirror", cfg.Sites[0].Name)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://env-dsn")
	t.Setenv("TRENDMODEL_API_KEY", "env-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")

	cfg := Load("")

	assert.Equal(t, "postgres://env-dsn", cfg.Database.DSN)
	assert.Equal(t, "env-key", cfg.TrendModel.APIKey)
	assert.Equal(t, "env-token", cfg.Notifications.Telegram.BotToken)
}

func TestCovidStartFallsBack(t *testing.T) {
	a := AnalysisConfig{CovidStartDate: "not a date"}
	assert.Equal(t, time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC), a.CovidStart())
}

func TestYearsListEmptyWhenInverted(t *testing.T) {
	assert.Nil(t, YearsConfig{From: 2023, To: 2018}.List())
}
