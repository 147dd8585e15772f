package localstore

import (
	"context"
	"fmt"
)

// Plan is the simulation plan chosen on the setup screen
type Plan string

const (
	PlanNone  Plan = ""
	PlanBasic Plan = "basic"
	PlanPlus  Plan = "plus"
)

// Valid reports whether p is a known plan. The empty plan is valid.
func (p Plan) Valid() bool {
	return p == PlanNone || p == PlanBasic || p == PlanPlus
}

// Settings reads and writes the offline flag and the simulation plan
type Settings struct {
	slots Slots
}

func NewSettings(slots Slots) *Settings {
	return &Settings{slots: slots}
}

// OfflineMode reports whether the persisted offline flag is "true"
func (s *Settings) OfflineMode(ctx context.Context) (bool, error) {
	v, ok, err := s.slots.Get(ctx, KeyOfflineMode)
	if err != nil || !ok {
		return false, err
	}
	return v == "true", nil
}

// SetOfflineMode writes the flag, or removes it when disabled
func (s *Settings) SetOfflineMode(ctx context.Context, on bool) error {
	if !on {
		return s.slots.Delete(ctx, KeyOfflineMode)
	}
	return s.slots.Set(ctx, KeyOfflineMode, "true")
}

// Plan returns the persisted plan. Unknown values read as PlanNone.
func (s *Settings) Plan(ctx context.Context) (Plan, error) {
	v, ok, err := s.slots.Get(ctx, KeySimulationPlan)
	if err != nil || !ok {
		return PlanNone, err
	}
	if p := Plan(v); p.Valid() {
		return p, nil
	}
	return PlanNone, nil
}

// SetPlan persists p; PlanNone clears the slot
func (s *Settings) SetPlan(ctx context.Context, p Plan) error {
	if !p.Valid() {
		return fmt.Errorf("unknown simulation plan %q", p)
	}
	if p == PlanNone {
		return s.slots.Delete(ctx, KeySimulationPlan)
	}
	return s.slots.Set(ctx, KeySimulationPlan, string(p))
}
