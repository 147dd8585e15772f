package service

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"peritagem/internal/model"
	"peritagem/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Peritagem{}, &model.Profile{}, &model.AuditLog{}))
	return db
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventType, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type peritagemFixture struct {
	db       *gorm.DB
	repo     repository.PeritagemRepository
	audit    AuditService
	notifier *recordingNotifier
	svc      PeritagemService
}

func newPeritagemFixture(t *testing.T) *peritagemFixture {
	t.Helper()
	db := newTestDB(t)
	repo := repository.NewPeritagemRepository(db)
	audit := NewAuditService(repository.NewAuditRepository(db), nil)
	n := &recordingNotifier{}
	return &peritagemFixture{
		db:       db,
		repo:     repo,
		audit:    audit,
		notifier: n,
		svc:      NewPeritagemService(repo, audit, n, nil),
	}
}

var (
	perito       = Actor{ID: "perito-1", Role: model.RolePerito}
	comprador    = Actor{ID: "comprador-1", Role: model.RoleComprador}
	orcamentista = Actor{ID: "orcamentista-1", Role: model.RoleOrcamentista}
	gestor       = Actor{ID: "gestor-1", Role: model.RoleGestor}
	pcp          = Actor{ID: "pcp-1", Role: model.RolePCP}
)

func newRequest(cliente string) CreatePeritagemRequest {
	return CreatePeritagemRequest{
		Header: model.Header{Cliente: cliente, Equipamento: "Cilindro Hidráulico", Orcamento: "202601"},
		Items: model.Items{
			{ID: "a", Component: "Haste", Anomalies: "riscos", Solution: "cromar"},
			{ID: "b", Component: "Camisa", Anomalies: "ovalizada", Solution: "brunir"},
		},
	}
}

// insertAt stores a record directly at the given stage
func insertAt(t *testing.T, repo repository.PeritagemRepository, cliente string, stage model.Stage) *model.Peritagem {
	t.Helper()
	p := &model.Peritagem{
		Header:    model.Header{Cliente: cliente, Equipamento: "Bomba de Pistão"},
		Stage:     stage,
		CreatedBy: "seed",
		Items:     model.Items{{ID: "1", Component: "Haste", Photos: []string{}}},
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}
