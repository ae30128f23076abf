// Package danmaku runs boss fights: the boss fires rings of bullets and the
// player shoots back with SPACE.
package danmaku

import (
	"fmt"
	"math"

	"timewarp.dev/internal/sim/entity"
	"timewarp.dev/internal/sim/snapshot"
	"timewarp.dev/internal/sim/tuning"
	"timewarp.dev/internal/sim/world/rng"
)

const (
	ringEvery    = 20
	ringSize     = 8
	bulletSize   = 4
	playerSpeedK = 3
	playerDamage = 2
)

type Bullet struct {
	noCopy snapshot.NoCopy

	Body   *entity.Object `snap:"-"`
	TTL    int
	Damage float64
}

type BulletSnapshot struct {
	Props snapshot.Properties
	Body  entity.Snapshot
}

func (b *Bullet) Backup() BulletSnapshot {
	snapshot.Must(b.Body != nil, "danmaku", "bullet without body")
	return BulletSnapshot{Props: snapshot.Capture(b), Body: b.Body.Backup()}
}

func (b *Bullet) Restore(s BulletSnapshot) {
	snapshot.Apply(b, s.Props)
	b.Body.Restore(s.Body)
}

type System struct {
	noCopy snapshot.NoCopy

	Bullets       []*Bullet      `snap:"-"`
	PlayerBullets []*Bullet      `snap:"-"`
	GUI           map[string]int `snap:"-"`

	Timer  int
	Angle  float64
	NextID int

	boss   *entity.Object
	params tuning.Danmaku
	rng    *rng.System
}

func New(params tuning.Danmaku, r *rng.System, boss *entity.Object) *System {
	return &System{params: params, rng: r, boss: boss, GUI: map[string]int{}}
}

func (s *System) Boss() *entity.Object { return s.boss }

// Step advances one tick. fire is true on the tick SPACE was pressed.
func (s *System) Step(player *entity.Object, fire bool) {
	if s.boss != nil && !s.boss.Dead {
		s.Timer++
		if s.Timer%ringEvery == 0 {
			s.ring()
		}
		s.GUI["boss_hp"] = int(math.Ceil(s.boss.Health))
	}
	if fire && player != nil && !player.Dead {
		s.PlayerBullets = append(s.PlayerBullets, s.spawn("p", player.X, player.Y+player.Hitbox().Height()/2, 0, s.params.BulletSpeed*playerSpeedK, playerDamage))
		s.GUI["shots"]++
	}

	s.Bullets = s.advance(s.Bullets, player, "hits_taken")
	s.PlayerBullets = s.advance(s.PlayerBullets, s.boss, "boss_hits")
	if s.boss != nil && s.boss.Dead {
		s.GUI["boss_hp"] = 0
	}
}

func (s *System) ring() {
	s.Angle += (s.rng.Pattern.Float64()*2 - 1) * s.params.Spread
	for i := 0; i < ringSize; i++ {
		a := s.Angle + 2*math.Pi*float64(i)/ringSize
		vx, vy := math.Cos(a)*s.params.BulletSpeed, math.Sin(a)*s.params.BulletSpeed
		s.Bullets = append(s.Bullets, s.spawn("b", s.boss.X, s.boss.Y, vx, vy, s.params.BulletDamage))
	}
}

func (s *System) spawn(prefix string, x, y, vx, vy, damage float64) *Bullet {
	s.NextID++
	body := entity.New(fmt.Sprintf("%s-bullet-%d", prefix, s.NextID), entity.KindBullet, x, y, bulletSize, bulletSize)
	body.VX, body.VY = vx, vy
	body.Damage = damage
	return &Bullet{Body: body, TTL: s.params.BulletTTL, Damage: damage}
}

func (s *System) advance(list []*Bullet, target *entity.Object, counter string) []*Bullet {
	live := list[:0]
	for _, b := range list {
		b.Body.Move(b.Body.VX, b.Body.VY)
		b.TTL--
		if target != nil && !target.Dead && b.Body.Touches(target) {
			target.Hurt(b.Damage)
			s.GUI[counter]++
			continue
		}
		if b.TTL > 0 {
			live = append(live, b)
		}
	}
	clear(list[len(live):])
	return live
}

type Snapshot struct {
	Props         snapshot.Properties
	GUI           map[string]int
	Bullets       []*snapshot.Held[*Bullet, BulletSnapshot]
	PlayerBullets []*snapshot.Held[*Bullet, BulletSnapshot]
}

func (s *System) Backup() Snapshot {
	snapshot.Must(s.GUI != nil, "danmaku", "gui counters not initialised")
	return Snapshot{
		Props:         snapshot.Capture(s),
		GUI:           snapshot.Dup(s.GUI),
		Bullets:       snapshot.HoldAll[*Bullet, BulletSnapshot](s.Bullets),
		PlayerBullets: snapshot.HoldAll[*Bullet, BulletSnapshot](s.PlayerBullets),
	}
}

func (s *System) Restore(snap Snapshot) {
	snapshot.Apply(s, snap.Props)
	clear(s.GUI)
	for k, v := range snap.GUI {
		s.GUI[k] = v
	}
	s.Bullets = snapshot.RestoreAll(s.Bullets, snap.Bullets)
	s.PlayerBullets = snapshot.RestoreAll(s.PlayerBullets, snap.PlayerBullets)
}
