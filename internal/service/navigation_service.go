package service

import (
	"context"

	"peritagem/internal/localstore"
	"peritagem/internal/model"
)

// MenuItem is one sidebar entry
type MenuItem struct {
	Label string       `json:"label"`
	Path  string       `json:"path"`
	Roles []model.Role `json:"-"`

	// hiddenOnBasic marks entries the basic plan does not include
	hiddenOnBasic bool
}

var (
	allRoles   = []model.Role{model.RoleGestor, model.RolePerito, model.RoleComprador, model.RoleOrcamentista}
	backOffice = []model.Role{model.RoleGestor, model.RoleComprador, model.RoleOrcamentista}

	menu = []MenuItem{
		{Label: "Dashboard", Path: "/", Roles: allRoles},
		{Label: "Todas as Peritagens", Path: "/peritagens", Roles: allRoles},
		{Label: "Linha do Tempo / Status", Path: "/timeline", Roles: backOffice, hiddenOnBasic: true},
		{Label: "Nova Peritagem", Path: "/nova-peritagem", Roles: []model.Role{model.RoleGestor, model.RolePerito}},
		{Label: "Pendente análise do comprador", Path: "/pendentes-compras", Roles: []model.Role{model.RoleGestor, model.RoleComprador}},
		{Label: "Pendentes Orçamento", Path: "/pendentes-orcamento", Roles: []model.Role{model.RoleGestor, model.RoleOrcamentista}},
		{Label: "Relatórios PDF", Path: "/relatorios", Roles: backOffice, hiddenOnBasic: true},
		{Label: "Gestão de Usuários", Path: "/usuarios", Roles: []model.Role{model.RoleGestor}},
	}
)

// Navigation is the menu visible to a caller
type Navigation struct {
	Role  model.Role      `json:"role"`
	Plan  localstore.Plan `json:"plan"`
	Items []MenuItem      `json:"items"`
}

// PlanReader exposes the persisted simulation plan
type PlanReader interface {
	Plan(ctx context.Context) (localstore.Plan, error)
}

type NavigationService interface {
	Menu(ctx context.Context, role model.Role) (*Navigation, error)
}

type navigationService struct {
	plans PlanReader
}

// NewNavigationService returns a NavigationService. A nil plans reader means no plan.
func NewNavigationService(plans PlanReader) NavigationService {
	return &navigationService{plans: plans}
}

func (s *navigationService) Menu(ctx context.Context, role model.Role) (*Navigation, error) {
	plan := localstore.PlanNone
	if s.plans != nil {
		p, err := s.plans.Plan(ctx)
		if err != nil {
			return nil, err
		}
		plan = p
	}
	return &Navigation{Role: role, Plan: plan, Items: MenuFor(role, plan)}, nil
}

// MenuFor filters the sidebar by role and plan
func MenuFor(role model.Role, plan localstore.Plan) []MenuItem {
	out := []MenuItem{}
	for _, item := range menu {
		if plan == localstore.PlanBasic && item.hiddenOnBasic {
			continue
		}
		for _, r := range item.Roles {
			if r == role {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
