package report

import "peritagem/internal/model"

// Page geometry in millimetres (A4 portrait)
const (
	PageWidth    = 210.0
	PageHeight   = 297.0
	Margin       = 10.0
	ContentWidth = 190.0

	RowHeight   = 8.0
	PhotoWidth  = 92.0
	PhotoHeight = 60.0
	PhotoGap    = 4.0

	// headerHeight is the heading plus the info box and its trailing rule
	headerHeight = 25.0 + 18.0 + 10.0
	itemGap      = 5.0
	itemSpacing  = 8.0
)

// BlockKind tags a placed block
type BlockKind int

const (
	BlockItem BlockKind = iota
	BlockPhotoRow
)

// Block is one placed element on a page
type Block struct {
	Kind BlockKind
	Y    float64
	Item int
	// Photos holds photo indexes of the item, at most two, left to right
	Photos []int
}

// Page is one planned page. Every page starts with the header.
type Page struct {
	Number int
	Blocks []Block
}

// ItemRows is the number of table rows printed for an item under v
func ItemRows(v Variant) int {
	n := 3
	if v.ShowsCosts() {
		n += 3
	}
	if v.ShowsBudget() {
		n++
	}
	if v.ShowsMargin() {
		n++
	}
	return n
}

// PhotoX is the left edge of a photo in column col (0 or 1)
func PhotoX(col int) float64 {
	return Margin + float64(col)*(PhotoWidth+PhotoGap)
}

// PlanLayout paginates items. An item table moves to a new page when it would
// cross the bottom margin; photos are laid out two per row, each row checked
// separately.
func PlanLayout(items model.Items, v Variant) []Page {
	bottom := PageHeight - Margin
	tableH := float64(ItemRows(v)) * RowHeight

	pages := []Page{{Number: 1}}
	y := Margin + headerHeight
	newPage := func() {
		pages = append(pages, Page{Number: len(pages) + 1})
		y = Margin + headerHeight
	}
	place := func(b Block) {
		last := &pages[len(pages)-1]
		last.Blocks = append(last.Blocks, b)
	}

	for idx, it := range items {
		if y+tableH+6 > bottom {
			newPage()
		}
		place(Block{Kind: BlockItem, Y: y, Item: idx})
		y += tableH + itemGap

		for p := 0; p < len(it.Photos); p += 2 {
			if y+PhotoHeight > bottom {
				newPage()
				y += itemGap
			}
			row := []int{p}
			if p+1 < len(it.Photos) {
				row = append(row, p+1)
			}
			place(Block{Kind: BlockPhotoRow, Y: y, Item: idx, Photos: row})
			y += PhotoHeight + PhotoGap
		}
		y += itemSpacing
	}
	return pages
}
