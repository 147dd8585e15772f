package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"peritagem/internal/model"
	"peritagem/internal/report"
	"peritagem/internal/repository"
)

type ReportService interface {
	// Generate renders the report of a finalized peritagem
	Generate(ctx context.Context, actor Actor, id string, variant string) (*report.Document, error)
}

type reportService struct {
	repo repository.PeritagemRepository
	log  *zap.Logger
}

func NewReportService(repo repository.PeritagemRepository, log *zap.Logger) ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &reportService{repo: repo, log: log}
}

func (s *reportService) Generate(ctx context.Context, actor Actor, id string, variant string) (*report.Document, error) {
	v, err := report.ParseVariant(variant)
	if errors.Is(err, report.ErrUnknownVariant) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !report.Allowed(actor.Role, v) {
		return nil, fmt.Errorf("%w: variant %s", ErrForbidden, v)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Stage != model.StageOrcamentoFinalizado {
		return nil, ErrReportUnavailable
	}

	doc, err := report.Render(*p, v)
	if err != nil {
		s.log.Error("report render failed", zap.String("peritagem_id", id), zap.String("variant", string(v)), zap.Error(err))
		return nil, err
	}
	return doc, nil
}
