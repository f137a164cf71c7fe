package logic

import "math"

// Vector2 represents a 2D world position
type Vector2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

func (v Vector2) Add(o Vector2) Vector2 { return Vector2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vector2) Sub(o Vector2) Vector2 { return Vector2{X: v.X - o.X, Y: v.Y - o.Y} }

// Distance helper
func Distance(p1, p2 Vector2) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// ActorID is stable for the lifetime of a room and never reused.
type ActorID int32

// ObjectID identifies a NetworkObject within one room.
type ObjectID int32

// Config structs (mirrors config.yaml)
type GameConfig struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Map       MapConfig       `yaml:"map" json:"map"`
	Gameplay  GameplayConfig  `yaml:"gameplay" json:"gameplay"`
	Objects   ObjectsConfig   `yaml:"objects" json:"objects"`
	Client    ClientConfig    `yaml:"client" json:"client"`
	Transport TransportConfig `yaml:"transport" json:"transport"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Journal   JournalConfig   `yaml:"journal" json:"journal"`
}

type ServerConfig struct {
	TickRateHz          int `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	ConnectionTimeoutMs int `yaml:"connection_timeout_ms" json:"connection_timeout_ms"`
	MaxActors           int `yaml:"max_actors_per_room" json:"max_actors_per_room"`
	BroadcastEvery      int `yaml:"broadcast_every" json:"broadcast_every"`
	// DisconnectGraceMs is how long a paused actor without a connection survives before removal.
	DisconnectGraceMs   int `yaml:"disconnect_grace_ms" json:"disconnect_grace_ms"`
}

// MapConfig must match bit-for-bit between server and clients.
type MapConfig struct {
	Width              int     `yaml:"width" json:"width"`
	Height             int     `yaml:"height" json:"height"`
	TileSpacingX       float64 `yaml:"tile_spacing_x" json:"tile_spacing_x"`
	TileSpacingY       float64 `yaml:"tile_spacing_y" json:"tile_spacing_y"`
	SafeSpawnMarginPct float64 `yaml:"safe_spawn_margin_pct" json:"safe_spawn_margin_pct"`
	BoundsTolerance    float64 `yaml:"bounds_tolerance" json:"bounds_tolerance"`
}

type GameplayConfig struct {
	MoveSpeed         float64 `yaml:"move_speed" json:"move_speed"`
	DefaultBaseRadius int     `yaml:"default_base_radius" json:"default_base_radius"`
	FollowStep        float64 `yaml:"follow_step" json:"follow_step"`
	FollowGap         float64 `yaml:"follow_gap" json:"follow_gap"`
	MaxPickupDistance float64 `yaml:"max_pickup_distance" json:"max_pickup_distance"`
}

type ObjectsConfig struct {
	TargetCount              int     `yaml:"target_count" json:"target_count"`
	SpawnIntervalTicks       int     `yaml:"spawn_interval_ticks" json:"spawn_interval_ticks"`
	PesticideWeight          float64 `yaml:"pesticide_weight" json:"pesticide_weight"`
	FlowerCount              int     `yaml:"flower_count" json:"flower_count"`
	FlowerSpawnIntervalTicks int     `yaml:"flower_spawn_interval_ticks" json:"flower_spawn_interval_ticks"`
	FlowerSlotRadius         float64 `yaml:"flower_slot_radius" json:"flower_slot_radius"`
	PollenCredit             int     `yaml:"pollen_credit" json:"pollen_credit"`
	PesticideFuseTicks       int     `yaml:"pesticide_fuse_ticks" json:"pesticide_fuse_ticks"`
	ExplosionRadiusMin       int     `yaml:"explosion_radius_min" json:"explosion_radius_min"`
	ExplosionRadiusMax       int     `yaml:"explosion_radius_max" json:"explosion_radius_max"`
	Seed                     int64   `yaml:"seed" json:"seed"`
}

type ClientConfig struct {
	CacheSize          int     `yaml:"cache_size" json:"cache_size"`
	ReconcileTolerance float64 `yaml:"reconcile_tolerance" json:"reconcile_tolerance"`
}

type TransportConfig struct {
	Codec             string `yaml:"codec" json:"codec"`
	CompressThreshold int    `yaml:"compress_threshold" json:"compress_threshold"`
	InputRateHz       int    `yaml:"input_rate_hz" json:"input_rate_hz"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Dir     string `yaml:"dir" json:"dir"`
}

// DefaultConfig returns the shipped tuning. Map constants here are what clients compile against.
func DefaultConfig() GameConfig {
	return GameConfig{
		Server: ServerConfig{
			TickRateHz:          20,
			ConnectionTimeoutMs: 5000,
			MaxActors:           16,
			BroadcastEvery:      1,
			DisconnectGraceMs:   30000,
		},
		Map: MapConfig{
			Width:              100,
			Height:             100,
			TileSpacingX:       1.0,
			TileSpacingY:       0.866,
			SafeSpawnMarginPct: 0.1,
			BoundsTolerance:    0.5,
		},
		Gameplay: GameplayConfig{
			MoveSpeed:         4.0,
			DefaultBaseRadius: 3,
			FollowStep:        0.25,
			FollowGap:         0.6,
			MaxPickupDistance: 1.5,
		},
		Objects: ObjectsConfig{
			TargetCount:              60,
			SpawnIntervalTicks:       20,
			PesticideWeight:          0.2,
			FlowerCount:              6,
			FlowerSpawnIntervalTicks: 100,
			FlowerSlotRadius:         1.2,
			PollenCredit:             6,
			PesticideFuseTicks:       60,
			ExplosionRadiusMin:       2,
			ExplosionRadiusMax:       4,
		},
		Client: ClientConfig{
			CacheSize:          128,
			ReconcileTolerance: 0.05,
		},
		Transport: TransportConfig{
			Codec:             "json",
			CompressThreshold: 4096,
			InputRateHz:       40,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "./data/hexarena.db",
		},
		Journal: JournalConfig{
			Enabled: false,
			Dir:     "./data/journal",
		},
	}
}

// TickInterval is the simulated seconds one tick advances.
func (c *GameConfig) TickInterval() float64 {
	return 1.0 / float64(c.Server.TickRateHz)
}
