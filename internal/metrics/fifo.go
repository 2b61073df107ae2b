package metrics

import (
	"sort"

	"tradefolio/internal/models"
)

// lot is one remaining slice of an entry leg during FIFO matching.
type lot struct {
	price float64
	qty   float64
}

// FIFOResult carries the outcome of matching exit legs against entry
// legs in first-in-first-out order.
type FIFOResult struct {
	// TotalPL is the realized P/L summed over all matched quantity.
	TotalPL float64
	// PerExit holds the realized P/L of each input exit leg, in the
	// order the legs were given (invalid legs get 0).
	PerExit []float64
	// MatchedQty is the quantity that found an entry lot to match.
	MatchedQty float64
}

// FIFOMatch computes realized P/L by consuming entry lots oldest-first.
// Entry legs are ordered by date before matching; exit legs are matched
// in date order but reported in input order so callers can attribute
// P/L back to a specific exit leg. sign is +1 for long, -1 for short.
//
// Invalid legs (non-positive price or quantity) are skipped entirely.
// An exit quantity exceeding the remaining entry quantity is matched
// only up to what remains; the surplus realizes nothing.
func FIFOMatch(entries, exits []models.Leg, sign float64) FIFOResult {
	res := FIFOResult{PerExit: make([]float64, len(exits))}

	type datedLot struct {
		lot
		date int64
	}
	var lots []datedLot
	for _, e := range entries {
		if !e.Valid() {
			continue
		}
		lots = append(lots, datedLot{lot{sanitize(e.Price), sanitize(e.Qty)}, e.Date.UnixNano()})
	}
	sort.SliceStable(lots, func(i, j int) bool { return lots[i].date < lots[j].date })

	// Exit legs are consumed in chronological order.
	order := make([]int, 0, len(exits))
	for i, x := range exits {
		if x.Valid() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return exits[order[a]].Date.Before(exits[order[b]].Date)
	})

	next := 0
	for _, idx := range order {
		x := exits[idx]
		remaining := sanitize(x.Qty)
		var legPL float64
		for remaining > 0 && next < len(lots) {
			l := &lots[next]
			matched := remaining
			if l.qty < matched {
				matched = l.qty
			}
			legPL += (sanitize(x.Price) - l.price) * matched * sign
			res.MatchedQty += matched
			l.qty -= matched
			remaining -= matched
			if l.qty <= 0 {
				next++
			}
		}
		res.PerExit[idx] = legPL
		res.TotalPL += legPL
	}
	return res
}
