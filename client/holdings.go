package client

import (
	"time"

	"portfoliolab/internal/store"
)

// EditDraft holds the transient copy of a row's editable fields while the
// user edits it. Cancel simply discards the draft; nothing touches the list
// until Save succeeds.
type EditDraft struct {
	ID            int
	Quantity      int
	PurchasePrice float64
	Date          time.Time
}

// HoldingList is the client-side cache of the server's holdings. It applies
// the same local mutations the views do after a successful call: append on
// add, field overwrite on update, id filter on delete. It performs no
// network calls itself.
type HoldingList struct {
	items []store.Holding
}

// NewHoldingList wraps a fetched holdings slice.
func NewHoldingList(items []store.Holding) *HoldingList {
	list := make([]store.Holding, len(items))
	copy(list, items)
	return &HoldingList{items: list}
}

// Items returns a copy of the current rows.
func (l *HoldingList) Items() []store.Holding {
	out := make([]store.Holding, len(l.items))
	copy(out, l.items)
	return out
}

// Len reports the row count.
func (l *HoldingList) Len() int {
	return len(l.items)
}

// Append adds the server-returned holding after a successful create.
func (l *HoldingList) Append(h store.Holding) {
	l.items = append(l.items, h)
}

// Edit snapshots a row's editable fields into a draft. The bool is false
// when no row has that id.
func (l *HoldingList) Edit(id int) (EditDraft, bool) {
	for _, h := range l.items {
		if h.ID == id {
			return EditDraft{
				ID:            h.ID,
				Quantity:      h.Quantity,
				PurchasePrice: h.PurchasePrice,
				Date:          h.Date,
			}, true
		}
	}
	return EditDraft{}, false
}

// PatchByID overwrites a row's editable fields after a successful update.
func (l *HoldingList) PatchByID(draft EditDraft) bool {
	for i := range l.items {
		if l.items[i].ID == draft.ID {
			l.items[i].Quantity = draft.Quantity
			l.items[i].PurchasePrice = draft.PurchasePrice
			l.items[i].Date = draft.Date
			return true
		}
	}
	return false
}

// RemoveByID drops a row after a successful delete. Removal is keyed on the
// id alone, regardless of the response body.
func (l *HoldingList) RemoveByID(id int) bool {
	for i := range l.items {
		if l.items[i].ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}
