package model

// ClientRanking is one bar of the top-clients chart
type ClientRanking struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StatusShare holds rounded percentages of the whole collection
type StatusShare struct {
	Finalizados int `json:"finalizados"`
	EmAndamento int `json:"emAndamento"`
	Pendentes   int `json:"pendentes"`
	Total       int `json:"total"`
}

// MonthlyEvolution is the twelve-month creation series for one year
type MonthlyEvolution struct {
	Year   int      `json:"year"`
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Max    int      `json:"max"`
}

// DashboardStats aggregates the KPI cards and charts of the dashboard
type DashboardStats struct {
	EmAndamento         int              `json:"emAndamento"`
	AguardandoCompras   int              `json:"aguardandoCompras"`
	AguardandoOrcamento int              `json:"aguardandoOrcamento"`
	Finalizados         int              `json:"finalizados"`
	ClientesAtivos      int              `json:"clientesAtivos"`
	PorStatus           StatusShare      `json:"porStatus"`
	PorCliente          []ClientRanking  `json:"porCliente"`
	EvolucaoMensal      MonthlyEvolution `json:"evolucaoMensal"`
}

// PendingCounts is pushed to websocket clients after each mutation
type PendingCounts struct {
	ByStage map[string]int `json:"by_stage"`
	ByRole  map[Role]int   `json:"by_role"`
	Total   int            `json:"total"`
}
