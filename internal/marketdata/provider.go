package marketdata

import (
	"errors"
	"time"

	"portfoliolab/internal/store"
)

// History is a forward-filled daily close matrix for a set of symbols.
// Dates are ISO days, oldest first; every symbol slice has len(Dates) entries.
// Days before a symbol's first known price carry NaN-free zeros and are
// excluded by Aligned().
type History struct {
	Dates  []string
	Closes map[string][]float64
	known  map[string][]bool
}

// Provider serves price series out of the metric_data table.
type Provider struct {
	store *store.Store
}

func NewProvider(st *store.Store) *Provider {
	return &Provider{store: st}
}

// LastClose returns the most recent close for a symbol within a range.
func (p *Provider) LastClose(symbol string, start, end time.Time) (float64, error) {
	return p.store.LastClose(symbol, start, end)
}

// History builds the forward-filled daily close matrix for the symbols over
// [start, end]. Missing days inherit the previous close.
func (p *Provider) History(symbols []string, start, end time.Time) (*History, error) {
	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}

	h := &History{
		Dates:  dates,
		Closes: make(map[string][]float64, len(symbols)),
		known:  make(map[string][]bool, len(symbols)),
	}

	for _, symbol := range symbols {
		if _, ok := h.Closes[symbol]; ok {
			continue
		}
		raw, err := p.store.ClosePrices(symbol, start, end)
		if err != nil {
			return nil, err
		}

		closes := make([]float64, len(dates))
		known := make([]bool, len(dates))
		var last float64
		var seen bool
		for i, date := range dates {
			if v, ok := raw[date]; ok {
				last = v
				seen = true
			}
			if seen {
				closes[i] = last
				known[i] = true
			}
		}
		h.Closes[symbol] = closes
		h.known[symbol] = known
	}

	return h, nil
}

// ErrNoOverlap is returned when the symbols share no dates with prices.
var ErrNoOverlap = errors.New("no overlapping price data")

// Aligned trims the matrix to the dates where every symbol has a price and
// returns the trimmed dates plus per-symbol price slices in symbol order.
func (h *History) Aligned(symbols []string) ([]string, [][]float64, error) {
	first := 0
	for i := range h.Dates {
		all := true
		for _, symbol := range symbols {
			known, ok := h.known[symbol]
			if !ok || !known[i] {
				all = false
				break
			}
		}
		if all {
			first = i
			goto found
		}
	}
	return nil, nil, ErrNoOverlap

found:
	dates := h.Dates[first:]
	series := make([][]float64, len(symbols))
	for j, symbol := range symbols {
		series[j] = h.Closes[symbol][first:]
	}
	return dates, series, nil
}

// At returns the forward-filled close for a symbol at a date index.
func (h *History) At(symbol string, i int) (float64, bool) {
	known := h.known[symbol]
	if known == nil || i < 0 || i >= len(known) || !known[i] {
		return 0, false
	}
	return h.Closes[symbol][i], true
}

// LastKnown returns the most recent close for a symbol in the matrix.
func (h *History) LastKnown(symbol string) (float64, bool) {
	known := h.known[symbol]
	for i := len(known) - 1; i >= 0; i-- {
		if known[i] {
			return h.Closes[symbol][i], true
		}
	}
	return 0, false
}

// PriceOn returns the forward-filled close for a symbol on an ISO day.
func (h *History) PriceOn(symbol, date string) (float64, bool) {
	for i, d := range h.Dates {
		if d == date {
			known := h.known[symbol]
			if known == nil || !known[i] {
				return 0, false
			}
			return h.Closes[symbol][i], true
		}
	}
	return 0, false
}
