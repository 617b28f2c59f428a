package units

import "golang.org/x/exp/constraints"

// AttackType determines damage modifiers against armor types.
type AttackType uint8

const (
	AttackNormal AttackType = iota
	AttackPierce
	AttackSiege
	AttackMagic
	AttackChaos
	AttackHero
)

// ArmorType determines damage taken from attack types.
type ArmorType uint8

const (
	ArmorUnarmored ArmorType = iota
	ArmorLight
	ArmorMedium
	ArmorHeavy
	ArmorFortified
	ArmorHero
)

// Attribute-to-stat scaling.
const (
	HealthPerStrength     = 20.0
	ManaPerIntelligence   = 15.0
	DamagePerStrength     = 1.0
	ArmorPerAgility       = 0.15
	AttackSpeedPerAgility = 0.01
	MoveSpeedPerAgility   = 0.005
)

// Attributes are a unit's primary attributes.
type Attributes struct {
	Strength     float64 `json:"strength"`
	Agility      float64 `json:"agility"`
	Intelligence float64 `json:"intelligence"`
}

// BaseStats are stats before attribute bonuses.
type BaseStats struct {
	Health      float64 `json:"base_health"`
	Mana        float64 `json:"base_mana"`
	Damage      float64 `json:"base_damage"`
	Armor       float64 `json:"base_armor"`
	AttackSpeed float64 `json:"base_attack_speed"`
	MoveSpeed   float64 `json:"base_move_speed"`
}

// DerivedStats are computed by DeriveStats and never set by hand.
type DerivedStats struct {
	MaxHealth   float64 `json:"max_health"`
	MaxMana     float64 `json:"max_mana"`
	Damage      float64 `json:"damage"`
	Armor       float64 `json:"armor"`
	AttackSpeed float64 `json:"attack_speed"`
	MoveSpeed   float64 `json:"move_speed"`
}

// DeriveStats is the attribute-to-stat transform.
func DeriveStats(a Attributes, b BaseStats) DerivedStats {
	return DerivedStats{
		MaxHealth:   b.Health + a.Strength*HealthPerStrength,
		MaxMana:     b.Mana + a.Intelligence*ManaPerIntelligence,
		Damage:      b.Damage + a.Strength*DamagePerStrength,
		Armor:       b.Armor + a.Agility*ArmorPerAgility,
		AttackSpeed: b.AttackSpeed + a.Agility*AttackSpeedPerAgility,
		MoveSpeed:   b.MoveSpeed + a.Agility*MoveSpeedPerAgility,
	}
}

// Statsheet holds every number describing a unit in combat.
//
// Attributes and Base are only changed through SetAttributes and SetBaseStats
// so that Derived never goes stale. Health and Mana stay within
// [0, Derived.MaxHealth] and [0, Derived.MaxMana].
type Statsheet struct {
	Attributes Attributes   `json:"attributes"`
	Base       BaseStats    `json:"base"`
	Derived    DerivedStats `json:"derived"`

	Health float64 `json:"health"`
	Mana   float64 `json:"mana"`

	AttackType  AttackType `json:"attack_type"`
	ArmorType   ArmorType  `json:"armor_type"`
	AttackRange float64    `json:"attack_range"`
	TurnRate    float64    `json:"turn_rate"`
	SightRange  float64    `json:"sight_range"`

	initialized bool
}

// DefaultStatsheet returns the baseline sheet, spawned at full health.
func DefaultStatsheet() Statsheet {
	return NewStatsheet(
		Attributes{Strength: 18, Agility: 18, Intelligence: 18},
		BaseStats{Health: 100, Mana: 0, Damage: 10, Armor: 0, AttackSpeed: 1.0, MoveSpeed: 3.0},
	)
}

// NewStatsheet builds a sheet from attributes and base stats, computes derived
// stats, and fills health and mana.
func NewStatsheet(a Attributes, b BaseStats) Statsheet {
	s := Statsheet{
		Attributes:  a,
		Base:        b,
		AttackType:  AttackNormal,
		ArmorType:   ArmorMedium,
		AttackRange: 1.5,
		TurnRate:    0.5,
		SightRange:  10.0,
	}
	s.CalculateDerivedStats()
	s.Initialize()
	return s
}

// CalculateDerivedStats recomputes derived stats and clamps current health
// and mana to the new maxima. Calling it repeatedly with unchanged inputs
// changes nothing.
func (s *Statsheet) CalculateDerivedStats() {
	s.Derived = DeriveStats(s.Attributes, s.Base)
	s.Health = clamp(s.Health, 0, s.Derived.MaxHealth)
	s.Mana = clamp(s.Mana, 0, s.Derived.MaxMana)
}

// Initialize fills health and mana to their maxima. It only acts the first
// time it is called; later calls are ignored so it can never act as a heal.
func (s *Statsheet) Initialize() bool {
	if s.initialized {
		return false
	}
	s.Health = s.Derived.MaxHealth
	s.Mana = s.Derived.MaxMana
	s.initialized = true
	return true
}

// Spawned reports whether Initialize has already run.
func (s *Statsheet) Spawned() bool {
	return s.initialized
}

// MarkSpawned disables Initialize for a sheet restored from storage.
func (s *Statsheet) MarkSpawned() {
	s.initialized = true
}

// SetAttributes replaces the primary attributes and recomputes.
func (s *Statsheet) SetAttributes(a Attributes) {
	s.Attributes = a
	s.CalculateDerivedStats()
}

// SetBaseStats replaces the base stats and recomputes.
func (s *Statsheet) SetBaseStats(b BaseStats) {
	s.Base = b
	s.CalculateDerivedStats()
}

// SetHealth sets current health within [0, MaxHealth].
func (s *Statsheet) SetHealth(v float64) {
	s.Health = clamp(v, 0, s.Derived.MaxHealth)
}

// SetMana sets current mana within [0, MaxMana].
func (s *Statsheet) SetMana(v float64) {
	s.Mana = clamp(v, 0, s.Derived.MaxMana)
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
