package report

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"peritagem/internal/model"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName   = "Peritagem"
	brand       = "HIDRACIL - SISTEMA ATUALIZADO V2.0"
	photoError  = "Erro na foto"

	// mmToPt converts planned millimetres to row heights
	mmToPt = 2.835
)

var errBadPhoto = errors.New("unsupported photo encoding")

// Document is a rendered report ready for download
type Document struct {
	Filename string
	Body     []byte
	Pages    int
}

type styles struct {
	title, subtitle, info, label, value, footer int
}

// Render builds the workbook for p under variant v. Photos that cannot be
// decoded or embedded are replaced by a marker text.
func Render(p model.Peritagem, v Variant) (*Document, error) {
	filtered := Filter(p, v)
	pages := PlanLayout(filtered.Items, v)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}
	for col, width := range map[string]float64{"A": 16, "B": 30, "C": 16, "D": 30} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, err
		}
	}

	w := &writer{f: f, st: st, row: 1, p: filtered, v: v}
	for _, page := range pages {
		if err := w.page(page, len(pages)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return &Document{
		Filename: Filename(p, v),
		Body:     buf.Bytes(),
		Pages:    len(pages),
	}, nil
}

// Filename is the download name of a report
func Filename(p model.Peritagem, v Variant) string {
	id := p.ID
	if id == "" {
		id = "Report"
	}
	if v == VariantSemCusto {
		return fmt.Sprintf("Peritagem_%s.xlsx", id)
	}
	return fmt.Sprintf("Peritagem_%s_%s.xlsx", id, v)
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 16, Color: "006945"}}},
		{&st.subtitle, &excelize.Style{
			Font:   &excelize.Font{Size: 8, Color: "333333"},
			Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
		}},
		{&st.info, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 10}}},
		{&st.label, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 9}, Border: border}},
		{&st.value, &excelize.Style{
			Font:      &excelize.Font{Size: 9, Color: "0056B3"},
			Border:    border,
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"},
		}},
		{&st.footer, &excelize.Style{
			Font:      &excelize.Font{Size: 8},
			Alignment: &excelize.Alignment{Horizontal: "right"},
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("failed to create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

type writer struct {
	f   *excelize.File
	st  styles
	row int
	p   model.Peritagem
	v   Variant
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func (w *writer) text(col string, value any, style int) error {
	c := cell(col, w.row)
	if err := w.f.SetCellValue(sheetName, c, value); err != nil {
		return err
	}
	return w.f.SetCellStyle(sheetName, c, c, style)
}

func (w *writer) merged(from, to string, value any, style int) error {
	if err := w.f.MergeCell(sheetName, cell(from, w.row), cell(to, w.row)); err != nil {
		return err
	}
	if err := w.f.SetCellStyle(sheetName, cell(from, w.row), cell(to, w.row), style); err != nil {
		return err
	}
	return w.f.SetCellValue(sheetName, cell(from, w.row), value)
}

func (w *writer) page(pg Page, total int) error {
	if err := w.header(); err != nil {
		return err
	}
	for _, b := range pg.Blocks {
		var err error
		switch b.Kind {
		case BlockItem:
			err = w.item(w.p.Items[b.Item])
		case BlockPhotoRow:
			err = w.photos(w.p.Items[b.Item], b.Photos)
		}
		if err != nil {
			return err
		}
	}
	if err := w.text("D", fmt.Sprintf("Pagina %d de %d", pg.Number, total), w.st.footer); err != nil {
		return err
	}
	w.row++
	if pg.Number < total {
		return w.f.InsertPageBreak(sheetName, cell("A", w.row))
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func (w *writer) header() error {
	if err := w.merged("A", "D", brand, w.st.title); err != nil {
		return err
	}
	if err := w.f.SetRowHeight(sheetName, w.row, 24); err != nil {
		return err
	}
	w.row++
	if err := w.merged("A", "D", w.v.Title(), w.st.subtitle); err != nil {
		return err
	}
	w.row++

	date := "-"
	if !w.p.CreatedAt.IsZero() {
		date = w.p.CreatedAt.Format("02/01/2006")
	}
	lines := [][2]string{
		{"Cliente: " + orDash(w.p.Header.Cliente), "Data: " + date},
		{"Equipamento: " + orDash(w.p.Header.Equipamento), ""},
		{"Orcamento: " + orDash(w.p.Header.Orcamento), ""},
	}
	for _, l := range lines {
		if err := w.text("A", l[0], w.st.info); err != nil {
			return err
		}
		if l[1] != "" {
			if err := w.text("D", l[1], w.st.info); err != nil {
				return err
			}
		}
		w.row++
	}
	w.row++
	return nil
}

func (w *writer) item(it model.AnalysisItem) error {
	rows := [][2]string{
		{"DESCRICAO:", orDash(it.Component)},
		{"ANOMALIA:", orDash(it.Anomalies)},
		{"SOLUCAO:", orDash(it.Solution)},
	}
	if w.v.ShowsCosts() {
		var c model.Costs
		if it.Costs != nil {
			c = *it.Costs
		}
		rows = append(rows,
			[2]string{"CUSTO:", money(c.Cost)},
			[2]string{"FORNECEDOR:", orDash(c.Supplier)},
			[2]string{"OBSERVACOES:", orDash(c.Notes)},
		)
	}
	if w.v.ShowsBudget() {
		var b model.Budget
		if it.Budget != nil {
			b = *it.Budget
		}
		rows = append(rows, [2]string{"PRECO VENDA:", money(b.SellPrice)})
	}
	if w.v.ShowsMargin() {
		m := "-"
		if d, ok := it.Margin(); ok {
			m = d.StringFixed(1) + "%"
		}
		rows = append(rows, [2]string{"MARGEM:", m})
	}

	for _, r := range rows {
		if err := w.text("A", r[0], w.st.label); err != nil {
			return err
		}
		if err := w.merged("B", "D", r[1], w.st.value); err != nil {
			return err
		}
		if err := w.f.SetRowHeight(sheetName, w.row, RowHeight*mmToPt); err != nil {
			return err
		}
		w.row++
	}
	w.row++
	return nil
}

func money(a model.Amount) string {
	if !a.Valid {
		return "-"
	}
	return "R$ " + a.Decimal.StringFixed(2)
}

func (w *writer) photos(it model.AnalysisItem, idx []int) error {
	if err := w.f.SetRowHeight(sheetName, w.row, PhotoHeight*mmToPt); err != nil {
		return err
	}
	cols := [][2]string{{"A", "B"}, {"C", "D"}}
	for i, p := range idx {
		from, to := cols[i][0], cols[i][1]
		if err := w.f.MergeCell(sheetName, cell(from, w.row), cell(to, w.row)); err != nil {
			return err
		}
		if err := w.picture(cell(from, w.row), it.Photos[p]); err != nil {
			if err := w.f.SetCellValue(sheetName, cell(from, w.row), photoError); err != nil {
				return err
			}
		}
	}
	w.row++
	return nil
}

func (w *writer) picture(at, photo string) error {
	ext, data, err := DecodePhoto(photo)
	if err != nil {
		return err
	}
	return w.f.AddPictureFromBytes(sheetName, at, &excelize.Picture{
		Extension: ext,
		File:      data,
		Format:    &excelize.GraphicOptions{AutoFit: true, LockAspectRatio: true},
	})
}

// DecodePhoto accepts a data URL or bare base64 and returns the file extension
// and bytes. Bare base64 is assumed to be JPEG.
func DecodePhoto(s string) (string, []byte, error) {
	ext := ".jpg"
	payload := s
	if strings.HasPrefix(s, "data:") {
		meta, body, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return "", nil, errBadPhoto
		}
		switch strings.TrimSuffix(meta, ";base64") {
		case "image/jpeg", "image/jpg":
			ext = ".jpg"
		case "image/png":
			ext = ".png"
		case "image/gif":
			ext = ".gif"
		default:
			return "", nil, errBadPhoto
		}
		payload = body
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return "", nil, errBadPhoto
	}
	return ext, data, nil
}
