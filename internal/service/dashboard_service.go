package service

import (
	"context"
	"math"
	"sort"
	"time"

	"peritagem/internal/model"
	"peritagem/internal/repository"
	"peritagem/internal/workflow"
)

var monthNames = []string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

type DashboardService interface {
	Stats(ctx context.Context, year int) (*model.DashboardStats, error)
	PendingCounts(ctx context.Context) (*model.PendingCounts, error)
}

type dashboardService struct {
	repo repository.PeritagemRepository
	now  func() time.Time
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(repo repository.PeritagemRepository) DashboardService {
	return &dashboardService{repo: repo, now: time.Now}
}

func (s *dashboardService) Stats(ctx context.Context, year int) (*model.DashboardStats, error) {
	if year <= 0 {
		year = s.now().Year()
	}
	rows, err := s.repo.List(ctx, repository.PeritagemFilter{NewestFirst: true})
	if err != nil {
		return nil, err
	}
	return ComputeStats(rows, year), nil
}

// ComputeStats aggregates the dashboard over rows. Client ties keep the
// order of first appearance in rows.
func ComputeStats(rows []model.Peritagem, year int) *model.DashboardStats {
	st := &model.DashboardStats{PorCliente: []model.ClientRanking{}}
	var pendentes int
	clientCount := map[string]int{}
	var clientOrder []string
	monthly := make([]int, 12)

	for _, p := range rows {
		switch {
		case p.Stage == model.StageOrcamentoFinalizado:
			st.Finalizados++
		case p.Stage == model.StagePeritagemCriada:
			pendentes++
		}
		if p.Stage > model.StagePeritagemCriada && p.Stage < model.StageOrcamentoFinalizado {
			st.EmAndamento++
		}
		if p.Stage == model.StageAguardandoCompras {
			st.AguardandoCompras++
		}
		if p.Stage == model.StageCustosInseridos || p.Stage == model.StageAguardandoOrcamento {
			st.AguardandoOrcamento++
		}

		if _, ok := clientCount[p.Cliente]; !ok {
			clientOrder = append(clientOrder, p.Cliente)
		}
		clientCount[p.Cliente]++

		if !p.CreatedAt.IsZero() {
			created := p.CreatedAt.UTC()
			if created.Year() == year {
				monthly[created.Month()-1]++
			}
		}
	}

	total := len(rows)
	st.ClientesAtivos = len(clientCount)
	st.PorStatus = model.StatusShare{
		Finalizados: percent(st.Finalizados, total),
		EmAndamento: percent(st.EmAndamento, total),
		Pendentes:   percent(pendentes, total),
		Total:       total,
	}

	sort.SliceStable(clientOrder, func(i, j int) bool {
		return clientCount[clientOrder[i]] > clientCount[clientOrder[j]]
	})
	for i, name := range clientOrder {
		if i == 5 {
			break
		}
		st.PorCliente = append(st.PorCliente, model.ClientRanking{Name: name, Count: clientCount[name]})
	}

	maxVal := 5
	for _, v := range monthly {
		if v > maxVal {
			maxVal = v
		}
	}
	st.EvolucaoMensal = model.MonthlyEvolution{
		Year:   year,
		Labels: append([]string{}, monthNames...),
		Values: monthly,
		Max:    maxVal,
	}
	return st
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}

func (s *dashboardService) PendingCounts(ctx context.Context) (*model.PendingCounts, error) {
	rows, err := s.repo.List(ctx, repository.PeritagemFilter{})
	if err != nil {
		return nil, err
	}
	return ComputePendingCounts(rows), nil
}

// ComputePendingCounts counts records per stage and per role work queue
func ComputePendingCounts(rows []model.Peritagem) *model.PendingCounts {
	byStage := make(map[model.Stage]int)
	for _, p := range rows {
		byStage[p.Stage]++
	}

	pc := &model.PendingCounts{
		ByStage: make(map[string]int, len(model.Stages())),
		ByRole:  make(map[model.Role]int, len(model.AllRoles)),
	}
	for _, info := range model.Stages() {
		pc.ByStage[info.Status] = byStage[info.Index]
		if !info.Index.Terminal() {
			pc.Total += byStage[info.Index]
		}
	}
	for _, role := range model.AllRoles {
		n := 0
		for _, st := range workflow.PendingStages(role) {
			n += byStage[st]
		}
		pc.ByRole[role] = n
	}
	return pc
}
