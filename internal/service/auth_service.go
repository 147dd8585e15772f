package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"peritagem/internal/model"
	"peritagem/internal/repository"
)

const tokenTTL = 24 * time.Hour

// DTOs for Request validation
type RegisterRequest struct {
	Name     string     `json:"name" binding:"required"`
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required,min=6"`
	Role     model.Role `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateStatusRequest struct {
	Status model.ProfileStatus `json:"status" binding:"required"`
}

type UpdateRoleRequest struct {
	Role model.Role `json:"role" binding:"required"`
}

type ProfileResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Role      model.Role          `json:"role"`
	Status    model.ProfileStatus `json:"status"`
	CreatedAt string              `json:"created_at"`
}

type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expires_at"`
	Profile   ProfileResponse `json:"profile"`
}

// AuthService covers registration, login and the Gestor's profile administration
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*ProfileResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Me(ctx context.Context, id string) (*ProfileResponse, error)
	ListProfiles(ctx context.Context, page, limit int) ([]ProfileResponse, int64, error)
	Approve(ctx context.Context, actor Actor, id string) (*ProfileResponse, error)
	SetStatus(ctx context.Context, actor Actor, id string, status model.ProfileStatus) (*ProfileResponse, error)
	SetRole(ctx context.Context, actor Actor, id string, role model.Role) (*ProfileResponse, error)
	BootstrapAdmin(ctx context.Context, name, email, password string) (bool, error)
}

type authService struct {
	repo       repository.ProfileRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	secret     []byte
	invalidate func(id string)
	now        func() time.Time
	log        *zap.Logger
}

// NewAuthService returns an AuthService. invalidate, when set, is called
// after a profile's status or role changes.
func NewAuthService(
	repo repository.ProfileRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	secret []byte,
	invalidate func(id string),
	log *zap.Logger,
) AuthService {
	if invalidate == nil {
		invalidate = func(string) {}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		repo:       repo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		secret:     secret,
		invalidate: invalidate,
		now:        time.Now,
		log:        log,
	}
}

func toProfileResponse(p *model.Profile) *ProfileResponse {
	return &ProfileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		Status:    p.Status,
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*ProfileResponse, error) {
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}
	email := normalizeEmail(req.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	p := &model.Profile{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hashed),
		Role:     req.Role,
		Status:   model.ProfilePendente,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, p); err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return s.auditRepo.Log(txCtx, newAuditEntry(p.ID, model.ActionRegisterProfile, p.ID, p.Name, map[string]any{"role": p.Role}))
	})
	if err != nil {
		return nil, err
	}
	return toProfileResponse(p), nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	p, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := statusError(p.Status); err != nil {
		return nil, err
	}

	now := s.now()
	exp := now.Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  p.ID,
		"role": string(p.Role),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	s.log.Info("login", zap.String("profile_id", p.ID), zap.String("role", string(p.Role)))
	return &LoginResponse{Token: signed, ExpiresAt: exp.Unix(), Profile: *toProfileResponse(p)}, nil
}

// statusError maps non-active statuses to their login errors
func statusError(status model.ProfileStatus) error {
	switch status {
	case model.ProfileAtivo:
		return nil
	case model.ProfileInativo:
		return ErrInactive
	default:
		return ErrAwaitingApproval
	}
}

func (s *authService) Me(ctx context.Context, id string) (*ProfileResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(p), nil
}

func (s *authService) ListProfiles(ctx context.Context, page, limit int) ([]ProfileResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	profiles, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		res = append(res, *toProfileResponse(&profiles[i]))
	}
	return res, total, nil
}

func (s *authService) Approve(ctx context.Context, actor Actor, id string) (*ProfileResponse, error) {
	return s.change(ctx, actor, id, model.ActionApproveProfile, func(txCtx context.Context) error {
		return s.repo.UpdateStatus(txCtx, id, model.ProfileAtivo)
	}, map[string]any{"status": model.ProfileAtivo})
}

func (s *authService) SetStatus(ctx context.Context, actor Actor, id string, status model.ProfileStatus) (*ProfileResponse, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if id == actor.ID && status != model.ProfileAtivo {
		return nil, fmt.Errorf("%w: cannot deactivate your own profile", ErrForbidden)
	}
	return s.change(ctx, actor, id, model.ActionUpdateProfileStatus, func(txCtx context.Context) error {
		return s.repo.UpdateStatus(txCtx, id, status)
	}, map[string]any{"status": status})
}

func (s *authService) SetRole(ctx context.Context, actor Actor, id string, role model.Role) (*ProfileResponse, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if id == actor.ID && role != model.RoleGestor {
		return nil, fmt.Errorf("%w: cannot demote your own profile", ErrForbidden)
	}
	return s.change(ctx, actor, id, model.ActionUpdateProfileRole, func(txCtx context.Context) error {
		return s.repo.UpdateRole(txCtx, id, role)
	}, map[string]any{"role": role})
}

// change applies an update and its audit row in one transaction
func (s *authService) change(ctx context.Context, actor Actor, id, action string, apply func(context.Context) error, details any) (*ProfileResponse, error) {
	if actor.Role != model.RoleGestor {
		return nil, fmt.Errorf("%w: profile administration requires Gestor", ErrForbidden)
	}
	var updated *model.Profile
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := apply(txCtx); err != nil {
			return err
		}
		p, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		updated = p
		return s.auditRepo.Log(txCtx, newAuditEntry(actor.ID, action, p.ID, p.Name, details))
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(id)
	return toProfileResponse(updated), nil
}

// BootstrapAdmin creates an active Gestor when none exists yet
func (s *authService) BootstrapAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	exists, err := s.repo.HasRole(ctx, model.RoleGestor)
	if err != nil || exists {
		return false, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, errors.New("failed to hash password")
	}
	p := &model.Profile{
		Name:     name,
		Email:    normalizeEmail(email),
		Password: string(hashed),
		Role:     model.RoleGestor,
		Status:   model.ProfileAtivo,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return false, fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	s.log.Info("bootstrap Gestor created", zap.String("email", p.Email))
	return true, nil
}
