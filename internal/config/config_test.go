package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacancy-vault/internal/parking"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 20, cfg.Lot.Capacity)
	assert.Equal(t, 24, cfg.Lot.MaxDurationHours)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "data", cfg.Store.Dir)
	assert.Equal(t, "http://localhost:8000", cfg.Detection.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Detection.StartTimeout)
	assert.False(t, cfg.Pricing.HolidayRush)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	rt, err := cfg.Pricing.RateTable()
	require.NoError(t, err)
	assert.Equal(t, parking.DefaultRateTable(), rt)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `server:
  port: "9090"
  shutdown_timeout: 3s
lot:
  capacity: 30
  timezone: UTC
store:
  backend: redis
  redis:
    addr: "redis:6379"
    db: 2
pricing:
  holiday_rush: true
  night_start_hour: 0
  night_end_hour: 6
  rates:
    Car:
      base: 180
      rush_surcharge: 40
  rush_windows:
    - weekday: Fri
      from: 18
      to: 22
detection:
  base_url: "http://oracle:8000"
  poll_interval: 250ms
logging:
  level: debug
sentry:
  environment: staging
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30, cfg.Lot.Capacity)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, "parking", cfg.Store.Redis.KeyPrefix)
	assert.True(t, cfg.Pricing.HolidayRush)
	assert.Equal(t, "http://oracle:8000", cfg.Detection.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Detection.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "staging", cfg.Sentry.Environment)

	rt, err := cfg.Pricing.RateTable()
	require.NoError(t, err)
	assert.Equal(t, parking.Rate{BasePerHour: 180, RushSurcharge: 40}, rt.Rates[parking.VehicleCar])
	assert.Equal(t, parking.Rate{BasePerHour: 200, RushSurcharge: 50}, rt.Rates[parking.VehicleBike])
	assert.Equal(t, 0, rt.NightStartHour)
	assert.Equal(t, 6, rt.NightEndHour)
	require.Len(t, rt.RushWindows, 1)
	assert.Equal(t, parking.RushWindow{Weekday: time.Friday, FromHour: 18, ToHour: 22}, rt.RushWindows[0])
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"server": {"port": "7000"}, "lot": {"capacity": 10}}`)
	t.Setenv("PARKING_SERVER__PORT", "7001")
	t.Setenv("PARKING_LOT__MAX_DURATION_HOURS", "12")
	t.Setenv("PARKING_PRICING__HOLIDAY_RUSH", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Lot.Capacity)
	assert.Equal(t, 12, cfg.Lot.MaxDurationHours)
	assert.True(t, cfg.Pricing.HolidayRush)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", "port = 1"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", "store:\n  backend: sqlite\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", "pricing:\n  rush_windows:\n    - weekday: Funday\n      from: 1\n      to: 2\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", "pricing:\n  rates:\n    car:\n      base: -1\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", "lot:\n  timezone: Mars/Olympus\n"))
	assert.Error(t, err)
}

func TestRateTableRejectsDuplicateTypes(t *testing.T) {
	p := DefaultPricing()
	p.Rates["CAR"] = RateConfig{Base: 1}
	_, err := p.RateTable()
	assert.Error(t, err)
}
