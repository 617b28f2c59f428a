package units

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDeriveStatsExample(t *testing.T) {
	got := DeriveStats(
		Attributes{Strength: 20, Agility: 15, Intelligence: 10},
		BaseStats{Health: 100, Mana: 0, Damage: 10, Armor: 0, AttackSpeed: 1.0, MoveSpeed: 3.0},
	)
	want := DerivedStats{
		MaxHealth:   500,
		MaxMana:     150,
		Damage:      30,
		Armor:       2.25,
		AttackSpeed: 1.15,
		MoveSpeed:   3.075,
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"max_health", got.MaxHealth, want.MaxHealth},
		{"max_mana", got.MaxMana, want.MaxMana},
		{"damage", got.Damage, want.Damage},
		{"armor", got.Armor, want.Armor},
		{"attack_speed", got.AttackSpeed, want.AttackSpeed},
		{"move_speed", got.MoveSpeed, want.MoveSpeed},
	}
	for _, c := range checks {
		if !almostEqual(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestCalculateDerivedStatsIdempotent(t *testing.T) {
	s := WarriorStats()
	s.SetHealth(123)
	s.CalculateDerivedStats()
	first := s
	s.CalculateDerivedStats()
	if s != first {
		t.Errorf("second calculation changed the sheet: %+v -> %+v", first, s)
	}
}

func TestInitializeRunsOnce(t *testing.T) {
	s := Statsheet{
		Attributes: Attributes{Strength: 20, Agility: 15, Intelligence: 10},
		Base:       BaseStats{Health: 100, AttackSpeed: 1, MoveSpeed: 3},
	}
	s.CalculateDerivedStats()
	if !s.Initialize() {
		t.Fatal("first Initialize reported no-op")
	}
	if s.Health != 500 || s.Mana != 150 {
		t.Fatalf("spawned with health=%v mana=%v", s.Health, s.Mana)
	}
	s.SetHealth(40)
	if s.Initialize() {
		t.Error("second Initialize should be ignored")
	}
	if s.Health != 40 {
		t.Errorf("Initialize healed to %v", s.Health)
	}
}

func TestAttributeChangeClampsCurrent(t *testing.T) {
	s := WarriorStats() // 500 hp, 150 mana
	s.SetAttributes(Attributes{Strength: 5, Agility: 15, Intelligence: 2})
	if s.Derived.MaxHealth != 200 || s.Health != 200 {
		t.Errorf("after strength loss: max=%v health=%v", s.Derived.MaxHealth, s.Health)
	}
	if s.Derived.MaxMana != 30 || s.Mana != 30 {
		t.Errorf("after intelligence loss: max=%v mana=%v", s.Derived.MaxMana, s.Mana)
	}

	// Raising the cap does not heal.
	s.SetAttributes(Attributes{Strength: 30, Agility: 15, Intelligence: 2})
	if s.Derived.MaxHealth != 700 || s.Health != 200 {
		t.Errorf("after strength gain: max=%v health=%v", s.Derived.MaxHealth, s.Health)
	}

	s.SetBaseStats(BaseStats{Health: 0, Damage: 1})
	if s.Derived.Damage != 31 || s.Derived.MaxHealth != 600 {
		t.Errorf("after base change: %+v", s.Derived)
	}
}

func TestSetHealthBounds(t *testing.T) {
	s := WarriorStats()
	s.SetHealth(-10)
	if s.Health != 0 {
		t.Errorf("health = %v, want 0", s.Health)
	}
	s.SetHealth(1e6)
	if s.Health != s.Derived.MaxHealth {
		t.Errorf("health = %v, want %v", s.Health, s.Derived.MaxHealth)
	}
}

func TestSetManaBounds(t *testing.T) {
	s := WarriorStats()
	s.SetMana(-5)
	if s.Mana != 0 {
		t.Errorf("mana = %v, want 0", s.Mana)
	}
	s.SetMana(1e6)
	if s.Mana != s.Derived.MaxMana {
		t.Errorf("mana = %v, want %v", s.Mana, s.Derived.MaxMana)
	}
}

func TestDefaultStatsheet(t *testing.T) {
	s := DefaultStatsheet()
	if s.Derived.MaxHealth != 460 || s.Health != 460 {
		t.Errorf("default health %v/%v", s.Health, s.Derived.MaxHealth)
	}
	if s.AttackRange != 1.5 || s.SightRange != 10 || s.ArmorType != ArmorMedium {
		t.Errorf("default combat properties: %+v", s)
	}
}
