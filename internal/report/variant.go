package report

import (
	"errors"
	"fmt"

	"peritagem/internal/model"
)

var ErrUnknownVariant = errors.New("unknown report variant")

// Variant selects which commercial fields a report exposes
type Variant string

const (
	VariantSemCusto     Variant = "sem_custo"
	VariantComprador    Variant = "comprador"
	VariantOrcamentista Variant = "orcamentista"
	VariantCliente      Variant = "cliente"
)

var AllVariants = []Variant{VariantSemCusto, VariantComprador, VariantOrcamentista, VariantCliente}

// ParseVariant accepts the variant names; empty means sem_custo
func ParseVariant(s string) (Variant, error) {
	if s == "" {
		return VariantSemCusto, nil
	}
	for _, v := range AllVariants {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// ShowsCosts reports whether procurement data is printed
func (v Variant) ShowsCosts() bool {
	return v == VariantComprador || v == VariantOrcamentista
}

// ShowsBudget reports whether the sell price is printed
func (v Variant) ShowsBudget() bool {
	return v == VariantOrcamentista || v == VariantCliente
}

// ShowsMargin reports whether the computed margin is printed
func (v Variant) ShowsMargin() bool {
	return v == VariantOrcamentista
}

// Title is printed under the report heading
func (v Variant) Title() string {
	switch v {
	case VariantComprador:
		return "Relatorio de Compras"
	case VariantOrcamentista:
		return "Relatorio de Orcamento"
	case VariantCliente:
		return "Relatorio para o Cliente"
	default:
		return "Relatorio Tecnico de Peritagem Hidraulica"
	}
}

// AllowedVariants lists the variants a role may download
func AllowedVariants(role model.Role) []Variant {
	switch role {
	case model.RoleGestor:
		return AllVariants
	case model.RoleComprador:
		return []Variant{VariantSemCusto, VariantComprador}
	case model.RoleOrcamentista:
		return []Variant{VariantSemCusto, VariantOrcamentista, VariantCliente}
	}
	return nil
}

// Allowed reports whether role may download v
func Allowed(role model.Role, v Variant) bool {
	for _, a := range AllowedVariants(role) {
		if a == v {
			return true
		}
	}
	return false
}

// Filter returns a copy of p holding only the fields v exposes
func Filter(p model.Peritagem, v Variant) model.Peritagem {
	out := p
	out.Items = make(model.Items, len(p.Items))
	for i, it := range p.Items {
		if v.ShowsCosts() && it.Costs != nil {
			c := *it.Costs
			it.Costs = &c
		} else {
			it.Costs = nil
		}
		if v.ShowsBudget() && it.Budget != nil {
			b := *it.Budget
			it.Budget = &b
		} else {
			it.Budget = nil
		}
		it.Photos = append([]string(nil), it.Photos...)
		out.Items[i] = it
	}
	return out
}
