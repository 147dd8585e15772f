package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ComponentOptions is the fixed set of hydraulic components an item may name
var ComponentOptions = []string{
	"Olhal superior", "Rótula", "Anel retentor", "Pino graxeiro",
	"Haste", "Êmbolo", "Anel guia", "Olhal inferior",
	"Camisa", "Cabeçote da guia", "Vedações", "Outros",
}

// ValidComponent reports whether name belongs to ComponentOptions
func ValidComponent(name string) bool {
	for _, c := range ComponentOptions {
		if c == name {
			return true
		}
	}
	return false
}

// Header groups the descriptive fields set when a peritagem is opened
type Header struct {
	Orcamento          string `gorm:"type:varchar(50)" json:"orcamento"`
	Cliente            string `gorm:"type:varchar(255);index" json:"cliente"`
	Endereco           string `gorm:"type:varchar(255)" json:"endereco"`
	Bairro             string `gorm:"type:varchar(120)" json:"bairro"`
	Municipio          string `gorm:"type:varchar(120)" json:"municipio"`
	UF                 string `gorm:"type:varchar(2)" json:"uf"`
	Equipamento        string `gorm:"type:varchar(255)" json:"equipamento"`
	Cidade             string `gorm:"type:varchar(120)" json:"cidade"`
	CX                 string `gorm:"column:cx;type:varchar(50)" json:"cx"`
	Tag                string `gorm:"type:varchar(50)" json:"tag"`
	NF                 string `gorm:"column:nf;type:varchar(50)" json:"nf"`
	ResponsavelTecnico string `gorm:"type:varchar(255)" json:"responsavel_tecnico"`
}

// Peritagem is an inspection/repair case tracked through the six-stage pipeline.
// The stage is stored once; status and stage_index on the wire are both derived from it.
type Peritagem struct {
	Header `gorm:"embedded"`

	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Stage     Stage     `gorm:"column:stage_index;not null;index"`
	Items     Items     `gorm:"type:jsonb"`
	CreatedBy string    `gorm:"type:varchar(64);not null;index"`
	Revision  int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// BeforeCreate fills the primary key when the caller left it empty
func (p *Peritagem) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedBy == "" {
		return errors.New("created_by is required")
	}
	return nil
}

// peritagemWire is the JSON shape shared with the hosted backend
type peritagemWire struct {
	ID string `json:"id,omitempty"`
	Header
	Status     string          `json:"status"`
	StageIndex *int            `json:"stage_index"`
	Items      Items           `json:"items"`
	CreatedBy  string          `json:"created_by"`
	Revision   int             `json:"revision"`
	CreatedAt  json.RawMessage `json:"created_at,omitempty"`
	UpdatedAt  json.RawMessage `json:"updated_at,omitempty"`
}

// MarshalJSON writes status and stage_index from the single stage value
func (p Peritagem) MarshalJSON() ([]byte, error) {
	idx := int(p.Stage)
	w := peritagemWire{
		ID:         p.ID,
		Header:     p.Header,
		Status:     p.Stage.Label(),
		StageIndex: &idx,
		Items:      p.Items,
		CreatedBy:  p.CreatedBy,
		Revision:   p.Revision,
	}
	if w.Items == nil {
		w.Items = Items{}
	}
	if !p.CreatedAt.IsZero() {
		w.CreatedAt, _ = json.Marshal(p.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	if !p.UpdatedAt.IsZero() {
		w.UpdatedAt, _ = json.Marshal(p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	return json.Marshal(w)
}

// UnmarshalJSON resolves the stage from status first, then stage_index
func (p *Peritagem) UnmarshalJSON(data []byte) error {
	var w peritagemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	stage, ok := ParseStage(w.Status)
	if !ok {
		if w.StageIndex == nil {
			if w.Status != "" {
				return fmt.Errorf("unknown status %q", w.Status)
			}
			stage = StagePeritagemCriada
		} else {
			stage = Stage(*w.StageIndex)
			if !stage.Valid() {
				return fmt.Errorf("stage_index %d out of range", *w.StageIndex)
			}
		}
	}

	createdAt, err := parseRawTime(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	updatedAt, err := parseRawTime(w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updated_at: %w", err)
	}

	*p = Peritagem{
		ID:        w.ID,
		Header:    w.Header,
		Stage:     stage,
		Items:     w.Items,
		CreatedBy: w.CreatedBy,
		Revision:  w.Revision,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	return nil
}

func parseRawTime(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := ParseTimestamp(s)
	if !ok {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	return t, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes seen in stored records.
// Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// PeritagemPatch is a partial update. Stage writes status and stage_index together.
type PeritagemPatch struct {
	Header   *Header
	Stage    *Stage
	Items    Items
	Revision *int
}

// IsEmpty reports whether the patch changes nothing
func (p PeritagemPatch) IsEmpty() bool {
	return p.Header == nil && p.Stage == nil && p.Items == nil && p.Revision == nil
}

// ItemID is unique within one peritagem. Legacy clients used numeric ids.
type ItemID string

// UnmarshalJSON accepts strings and numbers
func (id *ItemID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// Amount is an optional monetary value. Numbers, numeric strings and "" are accepted.
type Amount struct {
	decimal.NullDecimal
}

// NewAmount wraps a decimal as a present amount
func NewAmount(d decimal.Decimal) Amount {
	return Amount{decimal.NullDecimal{Decimal: d, Valid: true}}
}

// UnmarshalJSON treats null and "" as absent
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		a.Valid = false
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(strings.ReplaceAll(unq, ",", "."))
		if s == "" {
			a.Valid = false
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", string(data), err)
	}
	a.Decimal = d
	a.Valid = true
	return nil
}

// Costs is the procurement data owned by the Comprador role
type Costs struct {
	Cost     Amount `json:"cost"`
	Supplier string `json:"supplier"`
	Notes    string `json:"notes"`
}

// Budget is the pricing data owned by the Orçamentista role
type Budget struct {
	SellPrice Amount `json:"sellPrice"`
}

// AnalysisItem is one inspected component, embedded in its peritagem
type AnalysisItem struct {
	ID        ItemID   `json:"id"`
	Component string   `json:"component"`
	Anomalies string   `json:"anomalies"`
	Solution  string   `json:"solution"`
	Photos    []string `json:"photos"`
	Costs     *Costs   `json:"costs,omitempty"`
	Budget    *Budget  `json:"budget,omitempty"`
}

// Margin returns (sellPrice - cost) / sellPrice * 100 rounded to one decimal
func (i AnalysisItem) Margin() (decimal.Decimal, bool) {
	if i.Costs == nil || i.Budget == nil || !i.Costs.Cost.Valid || !i.Budget.SellPrice.Valid {
		return decimal.Decimal{}, false
	}
	sell := i.Budget.SellPrice.Decimal
	if sell.IsZero() {
		return decimal.Decimal{}, false
	}
	return sell.Sub(i.Costs.Cost.Decimal).Div(sell).Mul(decimal.NewFromInt(100)).Round(1), true
}

// Items is the ordered item list, persisted as one JSON column
type Items []AnalysisItem

// Find returns the index of the item with the given id, or -1
func (it Items) Find(id ItemID) int {
	for i := range it {
		if it[i].ID == id {
			return i
		}
	}
	return -1
}

// Value implements driver.Valuer
func (it Items) Value() (driver.Value, error) {
	if it == nil {
		return "[]", nil
	}
	b, err := json.Marshal(it)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (it *Items) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*it = Items{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported items column type %T", value)
	}
	if len(data) == 0 {
		*it = Items{}
		return nil
	}
	return json.Unmarshal(data, it)
}
