package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"peritagem/internal/model"
	"peritagem/internal/repository"
)

type AuditLogResponse struct {
	ID         uint   `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	// Record stores an entry; failures are logged, never returned
	Record(ctx context.Context, userID, action, entityID, entityName string, details any)
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
	History(ctx context.Context, entityID string) ([]AuditLogResponse, error)
}

type auditService struct {
	repo repository.AuditRepository
	log  *zap.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository, log *zap.Logger) AuditService {
	if log == nil {
		log = zap.NewNop()
	}
	return &auditService{repo: repo, log: log}
}

func (s *auditService) Record(ctx context.Context, userID, action, entityID, entityName string, details any) {
	entry := newAuditEntry(userID, action, entityID, entityName, details)
	if err := s.repo.Log(ctx, entry); err != nil {
		s.log.Warn("audit log write failed",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

func newAuditEntry(userID, action, entityID, entityName string, details any) *model.AuditLog {
	var raw string
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			raw = string(b)
		}
	}
	return &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    raw,
	}
}

// GetAuditLogs retrieves paginated records with author names resolved
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	res, err := s.toResponses(ctx, logs)
	return res, total, err
}

func (s *auditService) History(ctx context.Context, entityID string) ([]AuditLogResponse, error) {
	logs, err := s.repo.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, logs)
}

func (s *auditService) toResponses(ctx context.Context, logs []model.AuditLog) ([]AuditLogResponse, error) {
	ids := make([]string, 0, len(logs))
	seen := make(map[string]bool)
	for _, l := range logs {
		if l.UserID != "" && !seen[l.UserID] {
			seen[l.UserID] = true
			ids = append(ids, l.UserID)
		}
	}
	names, err := s.repo.ProfileNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		if n, ok := names[l.UserID]; ok {
			username = n
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID,
			UserID:     l.UserID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, nil
}
