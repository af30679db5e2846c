// Package ledger implements the itemized list of billable services attached
// to a booking, with exact per-line subtotals and derived totals.
package ledger

import (
	"errors"
	"fmt"

	"github.com/matthewbaird/scheduler/internal/types"
)

// Key names a mutable line-item attribute. The values match the JSON keys.
type Key string

const (
	KeyService   Key = "id_service"
	KeyQuantity  Key = "amount"
	KeyUnitPrice Key = "priceOne"
)

var (
	ErrIndexOutOfRange = errors.New("ledger: line index out of range")
	ErrUnknownKey      = errors.New("ledger: unknown line key")
	ErrNegative        = errors.New("ledger: quantities and prices must be non-negative")
	ErrBadValue        = errors.New("ledger: value is not a number")
)

// LineItem is one billable row. Subtotal is always Quantity * UnitPrice
// after any mutation through the Ledger.
type LineItem struct {
	ServiceRef string        `json:"id_service,omitempty"`
	Quantity   types.Decimal `json:"amount"`
	UnitPrice  types.Decimal `json:"priceOne"`
	Subtotal   types.Decimal `json:"priceTotal"`
}

// Totals are the form-level figures derived from the lines.
type Totals struct {
	Price  types.Decimal `json:"totalPrice"`
	Income types.Decimal `json:"totalIncome"`
}

// Options configures a Ledger.
type Options struct {
	// DefaultUnitPrice seeds lines created by Add.
	DefaultUnitPrice types.Decimal
	// CommissionRate is the fraction of the total price kept as income.
	CommissionRate types.Decimal
}

// Ledger is an ordered, mutable list of line items owned by one editor
// session. It is not safe for concurrent use.
type Ledger struct {
	opts  Options
	items []LineItem
}

// New creates a ledger holding a copy of items.
func New(opts Options, items []LineItem) *Ledger {
	cp := make([]LineItem, len(items))
	copy(cp, items)
	return &Ledger{opts: opts, items: cp}
}

// Len returns the number of lines.
func (l *Ledger) Len() int { return len(l.items) }

// Items returns a copy of the lines in order.
func (l *Ledger) Items() []LineItem {
	out := make([]LineItem, len(l.items))
	copy(out, l.items)
	return out
}

// Item returns line i.
func (l *Ledger) Item(i int) (LineItem, error) {
	if i < 0 || i >= len(l.items) {
		return LineItem{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return l.items[i], nil
}

// Add appends a default line (zero quantity, default unit price) and returns
// its index.
func (l *Ledger) Add() int {
	l.items = append(l.items, LineItem{
		Quantity:  types.Zero,
		UnitPrice: l.opts.DefaultUnitPrice,
		Subtotal:  types.Zero,
	})
	return len(l.items) - 1
}

// Remove deletes line i. It leaves any totals a caller has
// already published untouched; Totals reflects the remaining lines.
func (l *Ledger) Remove(i int) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return nil
}

// SetLineField mutates one attribute of line i. It reports whether the
// change affected money, i.e. whether the line's subtotal was recomputed
// and the totals need republishing.
func (l *Ledger) SetLineField(i int, key Key, value any) (bool, error) {
	if i < 0 || i >= len(l.items) {
		return false, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	item := &l.items[i]
	switch key {
	case KeyService:
		item.ServiceRef = serviceRef(value)
		return false, nil
	case KeyQuantity, KeyUnitPrice:
		d, err := toDecimal(value)
		if err != nil {
			return false, fmt.Errorf("%s: %w", key, err)
		}
		if d.Sign() < 0 {
			return false, fmt.Errorf("%s=%s: %w", key, d, ErrNegative)
		}
		if key == KeyQuantity {
			item.Quantity = d
		} else {
			item.UnitPrice = d
		}
		item.Subtotal = item.Quantity.Mul(item.UnitPrice)
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// SetService sets the service reference of line i.
func (l *Ledger) SetService(i int, ref string) error {
	_, err := l.SetLineField(i, KeyService, ref)
	return err
}

// SetQuantity sets the quantity of line i and recomputes its subtotal.
func (l *Ledger) SetQuantity(i int, q types.Decimal) error {
	_, err := l.SetLineField(i, KeyQuantity, q)
	return err
}

// SetUnitPrice sets the unit price of line i and recomputes its subtotal.
func (l *Ledger) SetUnitPrice(i int, p types.Decimal) error {
	_, err := l.SetLineField(i, KeyUnitPrice, p)
	return err
}

// Totals sums the line subtotals and applies the commission rate.
func (l *Ledger) Totals() Totals {
	price := types.Zero
	for _, it := range l.items {
		price = price.Add(it.Subtotal)
	}
	return Totals{Price: price, Income: price.Mul(l.opts.CommissionRate)}
}

func serviceRef(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case types.Decimal:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toDecimal(v any) (types.Decimal, error) {
	switch x := v.(type) {
	case types.Decimal:
		return x, nil
	case string:
		d, err := types.NewDecimal(x)
		if err != nil {
			return types.Zero, fmt.Errorf("%w: %q", ErrBadValue, x)
		}
		return d, nil
	case int:
		return types.DecimalFromInt(int64(x)), nil
	case int64:
		return types.DecimalFromInt(x), nil
	case float64:
		d, err := types.DecimalFromFloat(x)
		if err != nil {
			return types.Zero, fmt.Errorf("%w: %v", ErrBadValue, x)
		}
		return d, nil
	default:
		return types.Zero, fmt.Errorf("%w: %T", ErrBadValue, v)
	}
}
