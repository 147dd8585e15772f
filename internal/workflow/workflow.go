// Package workflow centralizes the role/stage matrix of the peritagem pipeline:
// which role may move a record forward, and which field groups each role may
// see or edit at each stage.
package workflow

import (
	"errors"
	"fmt"

	"peritagem/internal/model"
)

var (
	ErrUnknownAction     = errors.New("unknown workflow action")
	ErrRoleNotAllowed    = errors.New("role not allowed to perform this action")
	ErrInvalidTransition = errors.New("action not valid from the current stage")
	ErrTerminal          = errors.New("peritagem is already finalized")
)

// Action is a named forward move of the pipeline
type Action string

const (
	ActionFinalizeInspection Action = "finalizar_peritagem"
	ActionSendToPurchasing   Action = "enviar_compras"
	ActionFinalizePurchases  Action = "finalizar_cotacao"
	ActionFinalizeBudget     Action = "finalizar_orcamento"
)

type rule struct {
	from []model.Stage
	to   model.Stage
	role model.Role
}

var rules = map[Action]rule{
	ActionFinalizeInspection: {
		from: []model.Stage{model.StagePeritagemCriada},
		to:   model.StagePeritagemFinalizada,
		role: model.RolePerito,
	},
	ActionSendToPurchasing: {
		from: []model.Stage{model.StagePeritagemFinalizada},
		to:   model.StageAguardandoCompras,
		role: model.RolePerito,
	},
	// Custos Inseridos is never written by the flow but is accepted as a source.
	ActionFinalizePurchases: {
		from: []model.Stage{model.StageAguardandoCompras, model.StageCustosInseridos},
		to:   model.StageAguardandoOrcamento,
		role: model.RoleComprador,
	},
	ActionFinalizeBudget: {
		from: []model.Stage{model.StageAguardandoOrcamento},
		to:   model.StageOrcamentoFinalizado,
		role: model.RoleOrcamentista,
	},
}

// Actions lists the known actions in pipeline order
func Actions() []Action {
	return []Action{ActionFinalizeInspection, ActionSendToPurchasing, ActionFinalizePurchases, ActionFinalizeBudget}
}

// InitialStage is where a record created by role starts. The creation flow
// skips the two inspection stages.
func InitialStage(role model.Role) (model.Stage, error) {
	if role != model.RolePerito && role != model.RoleGestor {
		return 0, fmt.Errorf("%w: %s cannot create peritagens", ErrRoleNotAllowed, role)
	}
	return model.StageAguardandoCompras, nil
}

// Transition is the single validator of stage moves.
// Gestor may act as any role and skip source checks, but only forward.
func Transition(current model.Stage, role model.Role, action Action) (model.Stage, error) {
	r, ok := rules[action]
	if !ok {
		return current, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !current.Valid() {
		return current, fmt.Errorf("%w: stage %d", ErrInvalidTransition, int(current))
	}
	if current.Terminal() {
		return current, ErrTerminal
	}

	if role == model.RoleGestor {
		if r.to <= current {
			return current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, current)
		}
		return r.to, nil
	}

	if role != r.role {
		return current, fmt.Errorf("%w: %s requires %s", ErrRoleNotAllowed, action, r.role)
	}
	for _, from := range r.from {
		if current == from {
			return r.to, nil
		}
	}
	return current, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, current)
}

// AvailableActions returns the actions role may perform on a record at stage
func AvailableActions(stage model.Stage, role model.Role) []Action {
	var out []Action
	for _, a := range Actions() {
		if _, err := Transition(stage, role, a); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// FieldGroup is a set of item fields owned by one role
type FieldGroup string

const (
	GroupInspection FieldGroup = "inspection" // component, anomalies, solution, photos
	GroupCosts      FieldGroup = "costs"
	GroupBudget     FieldGroup = "budget"
)

// CanEdit reports whether role may write group while the record is at stage
func CanEdit(group FieldGroup, role model.Role, stage model.Stage) bool {
	if !stage.Valid() {
		return false
	}
	if role == model.RoleGestor {
		// budget stays writable after finalization for corrections
		return !stage.Terminal() || group == GroupBudget
	}
	switch group {
	case GroupInspection:
		return role == model.RolePerito && stage <= model.StagePeritagemFinalizada
	case GroupCosts:
		return role == model.RoleComprador &&
			(stage == model.StageAguardandoCompras || stage == model.StageCustosInseridos)
	case GroupBudget:
		return role == model.RoleOrcamentista && stage == model.StageAguardandoOrcamento
	}
	return false
}

// CanView reports whether role may read group while the record is at stage
func CanView(group FieldGroup, role model.Role, stage model.Stage) bool {
	switch group {
	case GroupInspection:
		return true
	case GroupCosts:
		if stage < model.StageAguardandoCompras {
			return false
		}
		switch role {
		case model.RoleComprador, model.RoleOrcamentista, model.RoleGestor, model.RolePCP:
			return true
		}
	case GroupBudget:
		if stage < model.StageAguardandoOrcamento {
			return false
		}
		switch role {
		case model.RoleOrcamentista, model.RoleGestor, model.RolePCP:
			return true
		}
	}
	return false
}

// PendingStages lists the stages holding work for role
func PendingStages(role model.Role) []model.Stage {
	switch role {
	case model.RolePerito:
		return []model.Stage{model.StagePeritagemCriada, model.StagePeritagemFinalizada}
	case model.RoleComprador:
		return []model.Stage{model.StageAguardandoCompras, model.StageCustosInseridos}
	case model.RoleOrcamentista:
		return []model.Stage{model.StageAguardandoOrcamento}
	case model.RolePCP:
		return []model.Stage{model.StageAguardandoCompras, model.StageCustosInseridos, model.StageAguardandoOrcamento}
	case model.RoleGestor:
		return []model.Stage{
			model.StagePeritagemCriada, model.StagePeritagemFinalizada, model.StageAguardandoCompras,
			model.StageCustosInseridos, model.StageAguardandoOrcamento,
		}
	}
	return nil
}
