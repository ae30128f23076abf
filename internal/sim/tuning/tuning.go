package tuning

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz     int     `yaml:"tick_rate_hz"`
	MapSwitchTicks int     `yaml:"map_switch_ticks"`
	KillPlaneY     float64 `yaml:"kill_plane_y"`
	PortalCooldown int     `yaml:"portal_cooldown_ticks"`

	Physics Physics `yaml:"physics"`
	Combat  Combat  `yaml:"combat"`
	Grenade Grenade `yaml:"grenade"`
	Danmaku Danmaku `yaml:"danmaku"`
	Search  Search  `yaml:"search"`
}

type Physics struct {
	Gravity      float64 `yaml:"gravity"`
	JumpSpeed    float64 `yaml:"jump_speed"`
	WalkSpeed    float64 `yaml:"walk_speed"`
	RunSpeed     float64 `yaml:"run_speed"`
	FreeSpeed    float64 `yaml:"free_speed"`
	MaxFallSpeed float64 `yaml:"max_fall_speed"`
}

type Combat struct {
	ProjectileSpeed float64 `yaml:"projectile_speed"`
	ProjectileTTL   int     `yaml:"projectile_ttl"`
	ProjectileSize  float64 `yaml:"projectile_size"`
}

type Grenade struct {
	FuseTicks   int     `yaml:"fuse_ticks"`
	BlastRadius float64 `yaml:"blast_radius"`
	Damage      float64 `yaml:"damage"`
}

type Danmaku struct {
	BulletSpeed  float64 `yaml:"bullet_speed"`
	BulletTTL    int     `yaml:"bullet_ttl"`
	BulletDamage float64 `yaml:"bullet_damage"`
	Spread       float64 `yaml:"spread"`
}

type Search struct {
	Granularity     float64 `yaml:"granularity"`
	MaxGranularity  float64 `yaml:"max_granularity"`
	CoarsenDistance float64 `yaml:"coarsen_distance"`
	PressingLength  int     `yaml:"pressing_length"`
	TimeoutMs       int     `yaml:"timeout_ms"`
	DamageThreshold float64 `yaml:"damage_threshold"`
}

func (s Search) Timeout() time.Duration { return time.Duration(s.TimeoutMs) * time.Millisecond }

// Default returns the values the game ships with. Load overlays a yaml file
// on top of them.
func Default() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      60,
		MapSwitchTicks:  30,
		KillPlaneY:      -1000,
		PortalCooldown:  60,
		Physics: Physics{
			Gravity:      0.5,
			JumpSpeed:    8,
			WalkSpeed:    2,
			RunSpeed:     4,
			FreeSpeed:    3,
			MaxFallSpeed: 12,
		},
		Combat: Combat{
			ProjectileSpeed: 3,
			ProjectileTTL:   120,
			ProjectileSize:  4,
		},
		Grenade: Grenade{
			FuseTicks:   90,
			BlastRadius: 40,
			Damage:      30,
		},
		Danmaku: Danmaku{
			BulletSpeed:  2,
			BulletTTL:    240,
			BulletDamage: 5,
			Spread:       0.3,
		},
		Search: Search{
			Granularity:     16,
			MaxGranularity:  64,
			CoarsenDistance: 400,
			PressingLength:  5,
			TimeoutMs:       5000,
			DamageThreshold: 10,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, errors.New("tick_rate_hz must be positive"))
	}
	if t.MapSwitchTicks < 0 {
		errs = append(errs, errors.New("map_switch_ticks must not be negative"))
	}
	if t.Physics.Gravity < 0 {
		errs = append(errs, errors.New("physics.gravity must not be negative"))
	}
	if t.Search.Granularity <= 0 {
		errs = append(errs, errors.New("search.granularity must be positive"))
	}
	if t.Search.MaxGranularity < t.Search.Granularity {
		errs = append(errs, errors.New("search.max_granularity must be >= granularity"))
	}
	if t.Search.PressingLength <= 0 {
		errs = append(errs, errors.New("search.pressing_length must be positive"))
	}
	if t.Search.TimeoutMs <= 0 {
		errs = append(errs, errors.New("search.timeout_ms must be positive"))
	}
	return errors.Join(errs...)
}
