package model

import (
	"encoding/json"
	"fmt"
)

// Role names exactly as stored in profiles and JWT claims
type Role string

const (
	RoleGestor       Role = "Gestor"
	RolePerito       Role = "Perito"
	RoleComprador    Role = "Comprador"
	RoleOrcamentista Role = "Orçamentista"
	RolePCP          Role = "PCP"
)

// AllRoles lists every role accepted at registration
var AllRoles = []Role{RoleGestor, RolePerito, RoleComprador, RoleOrcamentista, RolePCP}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Stage is the pipeline position of a peritagem. It is the only stored stage
// value; the status label is always derived from it.
type Stage int

const (
	StagePeritagemCriada Stage = iota
	StagePeritagemFinalizada
	StageAguardandoCompras
	StageCustosInseridos
	StageAguardandoOrcamento
	StageOrcamentoFinalizado
)

// StageInfo is one row of the stage table
type StageInfo struct {
	Index  Stage  `json:"index"`
	Status string `json:"status"`
	Role   Role   `json:"role"`
}

var stageTable = [...]StageInfo{
	{StagePeritagemCriada, "Peritagem Criada", RolePerito},
	{StagePeritagemFinalizada, "Peritagem Finalizada", RolePerito},
	{StageAguardandoCompras, "Aguardando Compras", RoleComprador},
	{StageCustosInseridos, "Custos Inseridos", RoleComprador},
	{StageAguardandoOrcamento, "Aguardando Orçamento", RoleOrcamentista},
	{StageOrcamentoFinalizado, "Orçamento Finalizado", RoleOrcamentista},
}

// Stages returns the ordered stage table
func Stages() []StageInfo {
	out := make([]StageInfo, len(stageTable))
	copy(out, stageTable[:])
	return out
}

// Valid reports whether s is inside the 0-5 range
func (s Stage) Valid() bool {
	return s >= StagePeritagemCriada && s <= StageOrcamentoFinalizado
}

// Label returns the human-readable status string of the stage
func (s Stage) Label() string {
	if !s.Valid() {
		return ""
	}
	return stageTable[s].Status
}

// ActingRole returns the role expected to act while a record sits in s
func (s Stage) ActingRole() Role {
	if !s.Valid() {
		return ""
	}
	return stageTable[s].Role
}

// Terminal reports whether no further transition exists from s
func (s Stage) Terminal() bool {
	return s == StageOrcamentoFinalizado
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return s.Label()
}

// ParseStage resolves a status label to its stage
func ParseStage(label string) (Stage, bool) {
	for _, info := range stageTable {
		if info.Status == label {
			return info.Index, true
		}
	}
	return 0, false
}

// MarshalJSON writes the status label
func (s Stage) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return json.Marshal(s.Label())
}

// UnmarshalJSON accepts either the status label or the numeric index
func (s *Stage) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		st, ok := ParseStage(label)
		if !ok {
			return fmt.Errorf("unknown status %q", label)
		}
		*s = st
		return nil
	}
	var idx int
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("stage must be a status label or index: %w", err)
	}
	if !Stage(idx).Valid() {
		return fmt.Errorf("stage index %d out of range", idx)
	}
	*s = Stage(idx)
	return nil
}
