package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"peritagem/internal/model"
	"peritagem/internal/repository"
	"peritagem/internal/workflow"
)

var stageTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "peritagem_stage_transitions_total",
		Help: "Stage transitions applied, by action and target status",
	},
	[]string{"action", "to"},
)

// --- DTOs ---

type CreatePeritagemRequest struct {
	model.Header
	Items model.Items `json:"items"`
}

type ListPeritagensRequest struct {
	Statuses []string
	Page     int
	Limit    int
}

// ItemUpdate changes one existing item. Nil fields are left untouched.
type ItemUpdate struct {
	ID        model.ItemID  `json:"id" binding:"required"`
	Component *string       `json:"component"`
	Anomalies *string       `json:"anomalies"`
	Solution  *string       `json:"solution"`
	Photos    *[]string     `json:"photos"`
	Costs     *model.Costs  `json:"costs"`
	Budget    *model.Budget `json:"budget"`
}

func (u ItemUpdate) touchesInspection() bool {
	return u.Component != nil || u.Anomalies != nil || u.Solution != nil || u.Photos != nil
}

type UpdateItemsRequest struct {
	Header           *model.Header        `json:"header"`
	Items            []ItemUpdate         `json:"items" binding:"dive"`
	NewItems         []model.AnalysisItem `json:"new_items"`
	RemoveItems      []model.ItemID       `json:"remove_items"`
	ExpectedRevision *int                 `json:"expected_revision"`
}

type TransitionRequest struct {
	Action           workflow.Action `json:"action" binding:"required"`
	ExpectedRevision *int            `json:"expected_revision"`
}

// PeritagemDetail is a record with the actions and margins the caller may see
type PeritagemDetail struct {
	Peritagem        model.Peritagem   `json:"peritagem"`
	AvailableActions []workflow.Action `json:"available_actions"`
	Margins          map[string]string `json:"margins,omitempty"`
}

type TimelineStep struct {
	Index   int        `json:"index"`
	Status  string     `json:"status"`
	Role    model.Role `json:"role"`
	Reached bool       `json:"reached"`
	Current bool       `json:"current"`
}

type Timeline struct {
	ID      string             `json:"id"`
	Current string             `json:"current"`
	Steps   []TimelineStep     `json:"steps"`
	History []AuditLogResponse `json:"history"`
}

// --- Interface ---

type PeritagemService interface {
	Create(ctx context.Context, actor Actor, req CreatePeritagemRequest) (*model.Peritagem, error)
	List(ctx context.Context, actor Actor, req ListPeritagensRequest) ([]model.Peritagem, int, error)
	Pending(ctx context.Context, actor Actor) ([]model.Peritagem, error)
	Get(ctx context.Context, actor Actor, id string) (*PeritagemDetail, error)
	Timeline(ctx context.Context, actor Actor, id string) (*Timeline, error)
	UpdateItems(ctx context.Context, actor Actor, id string, req UpdateItemsRequest) (*model.Peritagem, error)
	Advance(ctx context.Context, actor Actor, id string, req TransitionRequest) (*model.Peritagem, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type peritagemService struct {
	repo     repository.PeritagemRepository
	audit    AuditService
	notifier Notifier
	log      *zap.Logger
}

// NewPeritagemService wires the workflow rules onto a repository
func NewPeritagemService(repo repository.PeritagemRepository, audit AuditService, notifier Notifier, log *zap.Logger) PeritagemService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &peritagemService{repo: repo, audit: audit, notifier: notifier, log: log}
}

// --- Implementation ---

func (s *peritagemService) Create(ctx context.Context, actor Actor, req CreatePeritagemRequest) (*model.Peritagem, error) {
	stage, err := workflow.InitialStage(actor.Role)
	if err != nil {
		return nil, err
	}
	if req.Cliente == "" || req.Equipamento == "" {
		return nil, fmt.Errorf("%w: cliente and equipamento are required", ErrInvalidInput)
	}
	items, err := prepareNewItems(nil, req.Items)
	if err != nil {
		return nil, err
	}

	p := &model.Peritagem{
		Header:    req.Header,
		Stage:     stage,
		Items:     items,
		CreatedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create peritagem: %w", err)
	}

	s.record(ctx, actor, model.ActionCreatePeritagem, p, map[string]any{"status": p.Stage.Label(), "items": len(p.Items)})
	s.notifier.Notify(ctx, Event{Type: EventNewPeritagem, Peritagem: *p})

	out := redact(*p, actor.Role)
	return &out, nil
}

// prepareNewItems validates items added to a record, assigns missing ids and
// drops costs and budget, which are only written through their own groups
func prepareNewItems(existing model.Items, added model.Items) (model.Items, error) {
	seen := make(map[model.ItemID]bool, len(existing)+len(added))
	for _, it := range existing {
		seen[it.ID] = true
	}
	out := make(model.Items, 0, len(added))
	for _, it := range added {
		if !model.ValidComponent(it.Component) {
			return nil, fmt.Errorf("%w: unknown component %q", ErrInvalidInput, it.Component)
		}
		if it.ID == "" {
			it.ID = model.ItemID(uuid.NewString())
		}
		if seen[it.ID] {
			return nil, fmt.Errorf("%w: duplicate item id %q", ErrInvalidInput, it.ID)
		}
		seen[it.ID] = true
		if it.Photos == nil {
			it.Photos = []string{}
		}
		it.Costs = nil
		it.Budget = nil
		out = append(out, it)
	}
	return out, nil
}

func (s *peritagemService) List(ctx context.Context, actor Actor, req ListPeritagensRequest) ([]model.Peritagem, int, error) {
	filter := repository.PeritagemFilter{NewestFirst: true}
	for _, label := range req.Statuses {
		stage, ok := model.ParseStage(label)
		if !ok {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, label)
		}
		filter.Stages = append(filter.Stages, stage)
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total := len(rows)

	if req.Limit > 0 {
		page := req.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * req.Limit
		if start > total {
			start = total
		}
		end := start + req.Limit
		if end > total {
			end = total
		}
		rows = rows[start:end]
	}
	return redactAll(rows, actor.Role), total, nil
}

func (s *peritagemService) Pending(ctx context.Context, actor Actor) ([]model.Peritagem, error) {
	stages := workflow.PendingStages(actor.Role)
	if len(stages) == 0 {
		return []model.Peritagem{}, nil
	}
	rows, err := s.repo.List(ctx, repository.PeritagemFilter{Stages: stages, NewestFirst: true})
	if err != nil {
		return nil, err
	}
	return redactAll(rows, actor.Role), nil
}

func (s *peritagemService) Get(ctx context.Context, actor Actor, id string) (*PeritagemDetail, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := redact(*p, actor.Role)

	detail := &PeritagemDetail{
		Peritagem:        view,
		AvailableActions: workflow.AvailableActions(p.Stage, actor.Role),
	}
	if detail.AvailableActions == nil {
		detail.AvailableActions = []workflow.Action{}
	}
	for _, it := range view.Items {
		if m, ok := it.Margin(); ok {
			if detail.Margins == nil {
				detail.Margins = make(map[string]string)
			}
			detail.Margins[string(it.ID)] = m.StringFixed(1)
		}
	}
	return detail, nil
}

func (s *peritagemService) Timeline(ctx context.Context, actor Actor, id string) (*Timeline, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tl := &Timeline{ID: p.ID, Current: p.Stage.Label()}
	for _, info := range model.Stages() {
		tl.Steps = append(tl.Steps, TimelineStep{
			Index:   int(info.Index),
			Status:  info.Status,
			Role:    info.Role,
			Reached: info.Index <= p.Stage,
			Current: info.Index == p.Stage,
		})
	}

	tl.History = []AuditLogResponse{}
	if s.audit != nil {
		history, err := s.audit.History(ctx, p.ID)
		if err != nil {
			s.log.Warn("timeline history unavailable", zap.String("peritagem_id", p.ID), zap.Error(err))
		} else {
			tl.History = history
		}
	}
	return tl, nil
}

func (s *peritagemService) UpdateItems(ctx context.Context, actor Actor, id string, req UpdateItemsRequest) (*model.Peritagem, error) {
	if req.Header == nil && len(req.Items) == 0 && len(req.NewItems) == 0 && len(req.RemoveItems) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(p, req.ExpectedRevision); err != nil {
		return nil, err
	}

	gate := func(group workflow.FieldGroup) error {
		if !workflow.CanEdit(group, actor.Role, p.Stage) {
			return fmt.Errorf("%w: %s by %s at %s", ErrForbiddenEdit, group, actor.Role, p.Stage)
		}
		return nil
	}

	groups := map[workflow.FieldGroup]bool{}
	items := make(model.Items, len(p.Items))
	copy(items, p.Items)

	for _, u := range req.Items {
		idx := items.Find(u.ID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: item %q not found", ErrInvalidInput, u.ID)
		}
		it := items[idx]

		if u.touchesInspection() {
			if err := gate(workflow.GroupInspection); err != nil {
				return nil, err
			}
			groups[workflow.GroupInspection] = true
			if u.Component != nil {
				if !model.ValidComponent(*u.Component) {
					return nil, fmt.Errorf("%w: unknown component %q", ErrInvalidInput, *u.Component)
				}
				it.Component = *u.Component
			}
			if u.Anomalies != nil {
				it.Anomalies = *u.Anomalies
			}
			if u.Solution != nil {
				it.Solution = *u.Solution
			}
			if u.Photos != nil {
				it.Photos = append([]string{}, (*u.Photos)...)
			}
		}
		if u.Costs != nil {
			if err := gate(workflow.GroupCosts); err != nil {
				return nil, err
			}
			groups[workflow.GroupCosts] = true
			c := *u.Costs
			it.Costs = &c
		}
		if u.Budget != nil {
			if err := gate(workflow.GroupBudget); err != nil {
				return nil, err
			}
			groups[workflow.GroupBudget] = true
			b := *u.Budget
			it.Budget = &b
		}
		items[idx] = it
	}

	if len(req.RemoveItems) > 0 {
		if err := gate(workflow.GroupInspection); err != nil {
			return nil, err
		}
		groups[workflow.GroupInspection] = true
		for _, rid := range req.RemoveItems {
			idx := items.Find(rid)
			if idx < 0 {
				return nil, fmt.Errorf("%w: item %q not found", ErrInvalidInput, rid)
			}
			items = append(items[:idx], items[idx+1:]...)
		}
	}

	if len(req.NewItems) > 0 {
		if err := gate(workflow.GroupInspection); err != nil {
			return nil, err
		}
		groups[workflow.GroupInspection] = true
		added, err := prepareNewItems(items, req.NewItems)
		if err != nil {
			return nil, err
		}
		items = append(items, added...)
	}

	if req.Header != nil {
		if err := gate(workflow.GroupInspection); err != nil {
			return nil, err
		}
		if req.Header.Cliente == "" || req.Header.Equipamento == "" {
			return nil, fmt.Errorf("%w: cliente and equipamento are required", ErrInvalidInput)
		}
	}

	rev := p.Revision + 1
	patch := model.PeritagemPatch{Header: req.Header, Revision: &rev}
	if len(groups) > 0 {
		patch.Items = items
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	changed := make([]workflow.FieldGroup, 0, len(groups))
	for _, g := range []workflow.FieldGroup{workflow.GroupInspection, workflow.GroupCosts, workflow.GroupBudget} {
		if groups[g] {
			changed = append(changed, g)
		}
	}
	if len(changed) > 0 {
		s.record(ctx, actor, model.ActionUpdatePeritagemItems, updated, map[string]any{"groups": changed, "revision": rev})
	}
	if req.Header != nil {
		s.record(ctx, actor, model.ActionUpdatePeritagemInfo, updated, req.Header)
	}
	s.notifier.Notify(ctx, Event{Type: EventUpdated, Peritagem: *updated})

	out := redact(*updated, actor.Role)
	return &out, nil
}

func (s *peritagemService) Advance(ctx context.Context, actor Actor, id string, req TransitionRequest) (*model.Peritagem, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(p, req.ExpectedRevision); err != nil {
		return nil, err
	}

	from := p.Stage
	next, err := workflow.Transition(from, actor.Role, req.Action)
	if err != nil {
		return nil, err
	}

	rev := p.Revision + 1
	updated, err := s.repo.Update(ctx, id, model.PeritagemPatch{Stage: &next, Revision: &rev})
	if err != nil {
		return nil, err
	}

	stageTransitionsTotal.WithLabelValues(string(req.Action), next.Label()).Inc()
	s.log.Info("peritagem advanced",
		zap.String("peritagem_id", id),
		zap.String("action", string(req.Action)),
		zap.String("from", from.Label()),
		zap.String("to", next.Label()),
		zap.String("actor", actor.ID),
	)
	s.record(ctx, actor, model.ActionAdvanceStage, updated, map[string]any{
		"action": req.Action,
		"from":   from.Label(),
		"to":     next.Label(),
	})

	ev := EventUpdated
	switch next {
	case model.StageAguardandoOrcamento:
		ev = EventBuyerFinished
	case model.StageOrcamentoFinalizado:
		ev = EventProcessConcluded
	}
	s.notifier.Notify(ctx, Event{Type: ev, Peritagem: *updated})

	out := redact(*updated, actor.Role)
	return &out, nil
}

func (s *peritagemService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.Role != model.RoleGestor {
		return fmt.Errorf("%w: only Gestor may delete peritagens", ErrForbidden)
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, model.ActionDeletePeritagem, p, map[string]any{"status": p.Stage.Label()})
	s.notifier.Notify(ctx, Event{Type: EventDeleted, Peritagem: *p})
	return nil
}

// checkRevision is a read-then-write comparison, so two writers racing
// between the read and the update can still both succeed
func checkRevision(p *model.Peritagem, expected *int) error {
	if expected != nil && *expected != p.Revision {
		return fmt.Errorf("%w: expected revision %d, current %d", ErrStaleRevision, *expected, p.Revision)
	}
	return nil
}

func (s *peritagemService) record(ctx context.Context, actor Actor, action string, p *model.Peritagem, details any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, actor.ID, action, p.ID, p.Cliente, details)
}

// redact removes the field groups role may not read at the record's stage
func redact(p model.Peritagem, role model.Role) model.Peritagem {
	showCosts := workflow.CanView(workflow.GroupCosts, role, p.Stage)
	showBudget := workflow.CanView(workflow.GroupBudget, role, p.Stage)

	items := make(model.Items, len(p.Items))
	for i, it := range p.Items {
		if !showCosts {
			it.Costs = nil
		}
		if !showBudget {
			it.Budget = nil
		}
		items[i] = it
	}
	p.Items = items
	return p
}

func redactAll(rows []model.Peritagem, role model.Role) []model.Peritagem {
	out := make([]model.Peritagem, len(rows))
	for i := range rows {
		out[i] = redact(rows[i], role)
	}
	return out
}
