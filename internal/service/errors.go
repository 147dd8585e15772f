package service

import (
	"errors"

	"peritagem/internal/model"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbiddenEdit      = errors.New("field group not editable by this role at the current stage")
	ErrForbidden          = errors.New("operation not allowed for this role")
	ErrStaleRevision      = errors.New("record was modified by someone else")
	ErrReportUnavailable  = errors.New("report is only available once the budget is finalized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAwaitingApproval   = errors.New("Aguardando aprovação do administrador")
	ErrInactive           = errors.New("Usuário inativo. Contate o administrador")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoAuthor           = errors.New("no profile available to author seeded records")
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID   string
	Role model.Role
}
