package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"go.uber.org/zap"

	"peritagem/internal/model"
	"peritagem/internal/repository"
)

var (
	seedClients = []string{
		"Usiminas", "Vale", "Petrobras", "Gerdau", "CSN",
		"ArcelorMittal", "Votorantim", "Embraer", "Suzano", "Klabin",
		"JBS", "Ambev", "Braskem", "Weg", "Marcopolo",
	}
	seedEquipment = []string{
		"Cilindro Hidráulico", "Bomba de Pistão", "Motor Orbital", "Válvula Direcional",
		"Cilindro Telescópico", "Unidade Hidráulica", "Acumulador de Pressão",
		"Servo Válvula", "Bloco Manifold", "Atuador Rotativo",
	}
	// Olhal, Deslizantes and Guia are not ComponentOptions; seeded rows skip
	// item validation and keep them.
	seedComponents = []string{
		"Haste", "Camisa", "Êmbolo", "Vedações", "Olhal", "Deslizantes", "Guia",
	}
)

const (
	seedAnomalies = "Desgaste natural identificado na superfície de contato."
	seedSolution  = "Substituição do componente e verificação de medidas."
	// seedAgeSpan bounds how far back a generated created_at may fall
	seedAgeSpan = 1_000_000_000 * time.Millisecond
)

// AuthorSource finds a fallback author for generated records
type AuthorSource interface {
	FirstProfileID(ctx context.Context) (string, bool, error)
}

// StageSeedResult reports one stage batch
type StageSeedResult struct {
	Stage   model.Stage `json:"stage_index"`
	Status  string      `json:"status"`
	Created int         `json:"created"`
	Error   string      `json:"error,omitempty"`
}

// SeedResult summarizes a seeding run
type SeedResult struct {
	AuthorID string            `json:"author_id"`
	Total    int               `json:"total"`
	Stages   []StageSeedResult `json:"stages"`
}

type SeedService interface {
	// Seed inserts perStage synthetic records for every stage. authorID may be
	// empty, in which case the first existing profile is used.
	Seed(ctx context.Context, authorID string) (*SeedResult, error)
}

type seedService struct {
	repo     repository.PeritagemRepository
	authors  AuthorSource
	audit    AuditService
	perStage int
	rnd      *rand.Rand
	now      func() time.Time
	log      *zap.Logger
}

// NewSeedService creates a SeedService. A nil rnd draws from a time seeded source.
func NewSeedService(repo repository.PeritagemRepository, authors AuthorSource, audit AuditService, perStage int, rnd *rand.Rand, log *zap.Logger) SeedService {
	if perStage <= 0 {
		perStage = 20
	}
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &seedService{
		repo:     repo,
		authors:  authors,
		audit:    audit,
		perStage: perStage,
		rnd:      rnd,
		now:      time.Now,
		log:      log,
	}
}

func (s *seedService) Seed(ctx context.Context, authorID string) (*SeedResult, error) {
	if authorID == "" {
		id, ok, err := s.authors.FirstProfileID(ctx)
		if err != nil {
			return nil, fmt.Errorf("lookup seed author: %w", err)
		}
		if !ok {
			return nil, ErrNoAuthor
		}
		authorID = id
	}

	res := &SeedResult{AuthorID: authorID, Stages: make([]StageSeedResult, 0, len(model.Stages()))}
	for _, info := range model.Stages() {
		batch := make([]model.Peritagem, 0, s.perStage)
		for i := 0; i < s.perStage; i++ {
			batch = append(batch, s.generate(info.Index, i, authorID))
		}

		sr := StageSeedResult{Stage: info.Index, Status: info.Status}
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			s.log.Error("seed batch failed", zap.Int("stage_index", int(info.Index)), zap.Error(err))
			sr.Error = err.Error()
		} else {
			sr.Created = len(batch)
			res.Total += len(batch)
			s.log.Info("seed batch created", zap.Int("stage_index", int(info.Index)), zap.Int("count", len(batch)))
		}
		res.Stages = append(res.Stages, sr)
	}

	if s.audit != nil {
		s.audit.Record(ctx, authorID, model.ActionSeedPeritagens, "", "", map[string]any{"total": res.Total})
	}
	return res, nil
}

func (s *seedService) generate(stage model.Stage, i int, authorID string) model.Peritagem {
	now := s.now()
	n := s.rnd.IntN(3) + 1
	items := make(model.Items, 0, n)
	base := now.UnixMilli()
	for k := 0; k < n; k++ {
		items = append(items, model.AnalysisItem{
			ID:        model.ItemID(strconv.FormatInt(base+int64(k), 10)),
			Component: pick(s.rnd, seedComponents),
			Anomalies: seedAnomalies,
			Solution:  seedSolution,
			Photos:    []string{},
		})
	}

	return model.Peritagem{
		Header: model.Header{
			Orcamento:          strconv.Itoa(202600 + int(stage)*100 + i),
			Cliente:            fmt.Sprintf("%s - Simu %d.%d", pick(s.rnd, seedClients), stage, i),
			Endereco:           "Rua das Indústrias, 1000",
			Bairro:             "Distrito Industrial",
			Municipio:          "São Paulo",
			UF:                 "SP",
			Equipamento:        pick(s.rnd, seedEquipment),
			Cidade:             "São Paulo",
			CX:                 fmt.Sprintf("CX-%d", s.rnd.IntN(50)),
			Tag:                fmt.Sprintf("TAG-%d", s.rnd.IntN(9000)+1000),
			NF:                 strconv.Itoa(s.rnd.IntN(50000)),
			ResponsavelTecnico: "Perito Simulador",
		},
		Stage:     stage,
		Items:     items,
		CreatedBy: authorID,
		CreatedAt: now.Add(-time.Duration(s.rnd.Int64N(int64(seedAgeSpan)))).UTC(),
	}
}

func pick(r *rand.Rand, pool []string) string {
	return pool[r.IntN(len(pool))]
}
