package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"peritagem/internal/localstore"
	"peritagem/internal/model"
)

// SimulationSettings persists the offline flag and plan
type SimulationSettings interface {
	PlanReader
	OfflineMode(ctx context.Context) (bool, error)
	SetOfflineMode(ctx context.Context, on bool) error
	SetPlan(ctx context.Context, p localstore.Plan) error
}

type StartSimulationRequest struct {
	Plan localstore.Plan `json:"plan"`
}

type SimulationStatus struct {
	OfflineMode bool            `json:"offline_mode"`
	Plan        localstore.Plan `json:"plan"`

	// Active reports whether the running process already serves the emulated backend
	Active bool `json:"active"`
}

type SimulationResult struct {
	Seed   *SeedResult      `json:"seed"`
	Status SimulationStatus `json:"status"`
}

type SimulationService interface {
	Start(ctx context.Context, actor Actor, plan localstore.Plan) (*SimulationResult, error)
	Stop(ctx context.Context, actor Actor) (*SimulationStatus, error)
	Status(ctx context.Context) (*SimulationStatus, error)
}

type simulationService struct {
	seeder   SeedService
	settings SimulationSettings
	active   bool
	log      *zap.Logger
}

// NewSimulationService returns a SimulationService. active tells whether the
// current process was started against the emulated backend.
func NewSimulationService(seeder SeedService, settings SimulationSettings, active bool, log *zap.Logger) SimulationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &simulationService{seeder: seeder, settings: settings, active: active, log: log}
}

func (s *simulationService) Start(ctx context.Context, actor Actor, plan localstore.Plan) (*SimulationResult, error) {
	if actor.Role != model.RoleGestor {
		return nil, fmt.Errorf("%w: simulation requires Gestor", ErrForbidden)
	}
	if !plan.Valid() {
		return nil, fmt.Errorf("%w: unknown plan %q", ErrInvalidInput, plan)
	}

	res, err := s.seeder.Seed(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if err := s.settings.SetOfflineMode(ctx, true); err != nil {
		return nil, fmt.Errorf("persist offline flag: %w", err)
	}
	if err := s.settings.SetPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("persist plan: %w", err)
	}
	s.log.Info("simulation configured", zap.String("plan", string(plan)), zap.Int("seeded", res.Total))

	st, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &SimulationResult{Seed: res, Status: *st}, nil
}

func (s *simulationService) Stop(ctx context.Context, actor Actor) (*SimulationStatus, error) {
	if actor.Role != model.RoleGestor {
		return nil, fmt.Errorf("%w: simulation requires Gestor", ErrForbidden)
	}
	if err := s.settings.SetOfflineMode(ctx, false); err != nil {
		return nil, err
	}
	if err := s.settings.SetPlan(ctx, localstore.PlanNone); err != nil {
		return nil, err
	}
	return s.Status(ctx)
}

func (s *simulationService) Status(ctx context.Context) (*SimulationStatus, error) {
	on, err := s.settings.OfflineMode(ctx)
	if err != nil {
		return nil, err
	}
	plan, err := s.settings.Plan(ctx)
	if err != nil {
		return nil, err
	}
	return &SimulationStatus{OfflineMode: on, Plan: plan, Active: s.active}, nil
}
