package store

import (
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/google/uuid"

	errs "tradefolio/internal/errors"
	"tradefolio/internal/models"
)

// csvDateLayout is the date format used in import/export files.
const csvDateLayout = "2006-01-02"

// tradeRow is the flat CSV representation of a trade. Only raw inputs
// travel through CSV; derived fields are recomputed after import.
type tradeRow struct {
	ID           string `csv:"id"`
	TradeNo      int    `csv:"trade_no"`
	Symbol       string `csv:"symbol"`
	Direction    string `csv:"direction"`
	EntryDate    string `csv:"entry_date"`
	Entry        string `csv:"entry"`
	Quantity     string `csv:"quantity"`
	P1Price      string `csv:"pyramid1_price"`
	P1Qty        string `csv:"pyramid1_qty"`
	P1Date       string `csv:"pyramid1_date"`
	P2Price      string `csv:"pyramid2_price"`
	P2Qty        string `csv:"pyramid2_qty"`
	P2Date       string `csv:"pyramid2_date"`
	StopLoss     string `csv:"stop_loss"`
	TrailingSL   string `csv:"trailing_sl"`
	CMP          string `csv:"cmp"`
	X1Price      string `csv:"exit1_price"`
	X1Qty        string `csv:"exit1_qty"`
	X1Date       string `csv:"exit1_date"`
	X2Price      string `csv:"exit2_price"`
	X2Qty        string `csv:"exit2_qty"`
	X2Date       string `csv:"exit2_date"`
	X3Price      string `csv:"exit3_price"`
	X3Qty        string `csv:"exit3_qty"`
	X3Date       string `csv:"exit3_date"`
	Setup        string `csv:"setup"`
	Notes        string `csv:"notes"`
	PlanFollowed string `csv:"plan_followed"`
}

// parseNum parses a numeric CSV field, substituting zero for anything
// unparseable so one bad cell never fails the import.
func parseNum(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseDate parses a CSV date field; malformed dates come back zero.
func parseDate(s string) time.Time {
	t, err := time.Parse(csvDateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(csvDateLayout)
}

func formatNum(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ExportTradesCSV writes the trades' raw inputs as CSV.
func ExportTradesCSV(w io.Writer, trades []*models.Trade) error {
	rows := make([]tradeRow, 0, len(trades))
	for _, t := range trades {
		plan := ""
		if t.PlanFollowed {
			plan = "yes"
		}
		rows = append(rows, tradeRow{
			ID:        t.ID,
			TradeNo:   t.TradeNo,
			Symbol:    t.Symbol,
			Direction: string(t.Direction),
			EntryDate: formatDate(t.EntryDate),
			Entry:     formatNum(t.Entry),
			Quantity:  formatNum(t.Quantity),
			P1Price:   formatNum(t.Pyramid1.Price), P1Qty: formatNum(t.Pyramid1.Qty), P1Date: formatDate(t.Pyramid1.Date),
			P2Price: formatNum(t.Pyramid2.Price), P2Qty: formatNum(t.Pyramid2.Qty), P2Date: formatDate(t.Pyramid2.Date),
			StopLoss:   formatNum(t.StopLoss),
			TrailingSL: formatNum(t.TrailingSL),
			CMP:        formatNum(t.CMP),
			X1Price:    formatNum(t.Exit1.Price), X1Qty: formatNum(t.Exit1.Qty), X1Date: formatDate(t.Exit1.Date),
			X2Price: formatNum(t.Exit2.Price), X2Qty: formatNum(t.Exit2.Qty), X2Date: formatDate(t.Exit2.Date),
			X3Price: formatNum(t.Exit3.Price), X3Qty: formatNum(t.Exit3.Qty), X3Date: formatDate(t.Exit3.Date),
			Setup:        t.Setup,
			Notes:        t.Notes,
			PlanFollowed: plan,
		})
	}
	return gocsv.Marshal(&rows, w)
}

// ImportTradesCSV reads trades from CSV. Rows get fresh ids when the id
// column is empty. Derived fields are left zero for the recalculation
// orchestrator to fill.
func ImportTradesCSV(r io.Reader) ([]*models.Trade, error) {
	var rows []tradeRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errs.Wrap(errs.ErrImportMalformed, err.Error())
	}

	trades := make([]*models.Trade, 0, len(rows))
	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		direction := models.Long
		if models.Direction(row.Direction) == models.Short {
			direction = models.Short
		}
		t := &models.Trade{
			ID:           id,
			TradeNo:      row.TradeNo,
			Symbol:       row.Symbol,
			Direction:    direction,
			EntryDate:    parseDate(row.EntryDate),
			Entry:        parseNum(row.Entry),
			Quantity:     parseNum(row.Quantity),
			Pyramid1:     models.Leg{Price: parseNum(row.P1Price), Qty: parseNum(row.P1Qty), Date: parseDate(row.P1Date)},
			Pyramid2:     models.Leg{Price: parseNum(row.P2Price), Qty: parseNum(row.P2Qty), Date: parseDate(row.P2Date)},
			StopLoss:     parseNum(row.StopLoss),
			TrailingSL:   parseNum(row.TrailingSL),
			CMP:          parseNum(row.CMP),
			Exit1:        models.Leg{Price: parseNum(row.X1Price), Qty: parseNum(row.X1Qty), Date: parseDate(row.X1Date)},
			Exit2:        models.Leg{Price: parseNum(row.X2Price), Qty: parseNum(row.X2Qty), Date: parseDate(row.X2Date)},
			Exit3:        models.Leg{Price: parseNum(row.X3Price), Qty: parseNum(row.X3Qty), Date: parseDate(row.X3Date)},
			Setup:        row.Setup,
			Notes:        row.Notes,
			PlanFollowed: row.PlanFollowed == "yes" || row.PlanFollowed == "true",
			Status:       models.Derived(models.StatusOpen),
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// capitalRow is the flat CSV representation of a capital change.
type capitalRow struct {
	ID          string `csv:"id"`
	Type        string `csv:"type"`
	Amount      string `csv:"amount"`
	Date        string `csv:"date"`
	Description string `csv:"description"`
}

// ExportCapitalChangesCSV writes capital change events as CSV.
func ExportCapitalChangesCSV(w io.Writer, changes []models.CapitalChange) error {
	rows := make([]capitalRow, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, capitalRow{
			ID:          c.ID,
			Type:        string(c.Type),
			Amount:      formatNum(c.Amount),
			Date:        formatDate(c.Date),
			Description: c.Description,
		})
	}
	return gocsv.Marshal(&rows, w)
}

// ImportCapitalChangesCSV reads capital change events from CSV.
func ImportCapitalChangesCSV(r io.Reader) ([]models.CapitalChange, error) {
	var rows []capitalRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errs.Wrap(errs.ErrImportMalformed, err.Error())
	}
	changes := make([]models.CapitalChange, 0, len(rows))
	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.NewString()
		}
		typ := models.Deposit
		if models.CapitalChangeType(row.Type) == models.Withdraw {
			typ = models.Withdraw
		}
		changes = append(changes, models.CapitalChange{
			ID:          id,
			Type:        typ,
			Amount:      parseNum(row.Amount),
			Date:        parseDate(row.Date),
			Description: row.Description,
		})
	}
	return changes, nil
}
