package logic

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampFloat(v, minV, maxV float64) float64 {
	if math.IsNaN(v) {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// ClampGameConfig enforces hard safety bounds for room configs.
// It mutates cfg in-place so callers can accept user-provided values while guaranteeing sane limits.
func ClampGameConfig(cfg *GameConfig) {
	if cfg == nil {
		return
	}

	// --- server ---
	cfg.Server.TickRateHz = clampInt(cfg.Server.TickRateHz, 1, 120)
	cfg.Server.ConnectionTimeoutMs = clampInt(cfg.Server.ConnectionTimeoutMs, 100, 600000)
	cfg.Server.MaxActors = clampInt(cfg.Server.MaxActors, 1, 256)
	cfg.Server.BroadcastEvery = clampInt(cfg.Server.BroadcastEvery, 1, cfg.Server.TickRateHz)
	cfg.Server.DisconnectGraceMs = clampInt(cfg.Server.DisconnectGraceMs, 0, 3600000)

	// --- map ---
	// Width and height stay even so the map center lands on an even-row tile.
	cfg.Map.Width = clampInt(cfg.Map.Width, 8, 1024) &^ 1
	cfg.Map.Height = clampInt(cfg.Map.Height, 8, 1024) &^ 1
	if (cfg.Map.Height/2)%2 != 0 {
		cfg.Map.Height += 2
	}
	cfg.Map.TileSpacingX = clampFloat(cfg.Map.TileSpacingX, 0.01, 100)
	cfg.Map.TileSpacingY = clampFloat(cfg.Map.TileSpacingY, 0.01, 100)
	cfg.Map.SafeSpawnMarginPct = clampFloat(cfg.Map.SafeSpawnMarginPct, 0, 0.45)
	cfg.Map.BoundsTolerance = clampFloat(cfg.Map.BoundsTolerance, 0, 10)

	// --- gameplay ---
	cfg.Gameplay.MoveSpeed = clampFloat(cfg.Gameplay.MoveSpeed, 0.1, 100)
	cfg.Gameplay.DefaultBaseRadius = clampInt(cfg.Gameplay.DefaultBaseRadius, 1, 16)
	cfg.Gameplay.FollowStep = clampFloat(cfg.Gameplay.FollowStep, 0.01, 10)
	cfg.Gameplay.FollowGap = clampFloat(cfg.Gameplay.FollowGap, 0, 10)
	cfg.Gameplay.MaxPickupDistance = clampFloat(cfg.Gameplay.MaxPickupDistance, 0.1, 50)

	// --- objects ---
	cfg.Objects.TargetCount = clampInt(cfg.Objects.TargetCount, 0, 5000)
	cfg.Objects.SpawnIntervalTicks = clampInt(cfg.Objects.SpawnIntervalTicks, 1, 100000)
	cfg.Objects.PesticideWeight = clampFloat(cfg.Objects.PesticideWeight, 0, 1)
	cfg.Objects.FlowerCount = clampInt(cfg.Objects.FlowerCount, 0, 256)
	cfg.Objects.FlowerSpawnIntervalTicks = clampInt(cfg.Objects.FlowerSpawnIntervalTicks, 1, 100000)
	cfg.Objects.FlowerSlotRadius = clampFloat(cfg.Objects.FlowerSlotRadius, 0.1, 20)
	cfg.Objects.PollenCredit = clampInt(cfg.Objects.PollenCredit, 0, 1000)
	cfg.Objects.PesticideFuseTicks = clampInt(cfg.Objects.PesticideFuseTicks, 1, 100000)
	cfg.Objects.ExplosionRadiusMin = clampInt(cfg.Objects.ExplosionRadiusMin, 1, 32)
	cfg.Objects.ExplosionRadiusMax = clampInt(cfg.Objects.ExplosionRadiusMax, cfg.Objects.ExplosionRadiusMin, 32)

	// --- client ---
	cfg.Client.CacheSize = clampInt(cfg.Client.CacheSize, 8, 65536)
	cfg.Client.ReconcileTolerance = clampFloat(cfg.Client.ReconcileTolerance, 0, 10)

	// --- transport ---
	switch strings.ToLower(cfg.Transport.Codec) {
	case "json", "msgpack":
		cfg.Transport.Codec = strings.ToLower(cfg.Transport.Codec)
	default:
		cfg.Transport.Codec = "json"
	}
	cfg.Transport.CompressThreshold = clampInt(cfg.Transport.CompressThreshold, 0, 1<<24)
	cfg.Transport.InputRateHz = clampInt(cfg.Transport.InputRateHz, cfg.Server.TickRateHz, 1000)

	// --- storage ---
	switch cfg.Storage.Driver {
	case "sqlite", "sqlite3", "":
	default:
		cfg.Storage.Driver = "sqlite"
	}
}

// LoadConfig overlays the file at path on DefaultConfig and clamps the result.
// JSON files are accepted too since yaml.v3 parses them.
func LoadConfig(path string) (GameConfig, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	ClampGameConfig(&cfg)
	return cfg, nil
}
