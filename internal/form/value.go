package form

import (
	"errors"
	"fmt"
	"time"

	"github.com/matthewbaird/scheduler/internal/types"
)

// Kind tags the variant a Value holds.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTimestamp
	KindChoice
	KindMultiChoice
	KindFlag
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTimestamp:
		return "timestamp"
	case KindChoice:
		return "choice"
	case KindMultiChoice:
		return "multichoice"
	case KindFlag:
		return "flag"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is a field's typed value. Present is the presence predicate used
// for required-field validity.
type Value interface {
	Kind() Kind
	Present() bool
	Raw() any
}

// Text is a free-form string.
type Text string

func (Text) Kind() Kind       { return KindText }
func (v Text) Present() bool  { return v != "" }
func (v Text) Raw() any       { return string(v) }
func (v Text) String() string { return string(v) }

// Number is an exact decimal amount.
type Number struct{ types.Decimal }

func (Number) Kind() Kind      { return KindNumber }
func (v Number) Present() bool { return !v.IsZero() }
func (v Number) Raw() any      { return v.Decimal }

// Timestamp is a point in time.
type Timestamp time.Time

func (Timestamp) Kind() Kind        { return KindTimestamp }
func (v Timestamp) Present() bool   { return !time.Time(v).IsZero() }
func (v Timestamp) Raw() any        { return time.Time(v) }
func (v Timestamp) Time() time.Time { return time.Time(v) }

// Choice is one option key.
type Choice string

func (Choice) Kind() Kind      { return KindChoice }
func (v Choice) Present() bool { return v != "" }
func (v Choice) Raw() any      { return string(v) }

// MultiChoice is a set of option keys in selection order.
type MultiChoice []string

func (MultiChoice) Kind() Kind      { return KindMultiChoice }
func (v MultiChoice) Present() bool { return len(v) > 0 }
func (v MultiChoice) Raw() any      { return []string(v) }

// Flag is a tri-state boolean: unset, false or true.
type Flag struct {
	Set bool
	On  bool
}

func (Flag) Kind() Kind      { return KindFlag }
func (v Flag) Present() bool { return v.Set }
func (v Flag) Raw() any {
	if !v.Set {
		return nil
	}
	return v.On
}

// Opaque carries a host value the engine only passes through, such as a
// hidden custom field.
type Opaque struct{ V any }

func (Opaque) Kind() Kind      { return KindOpaque }
func (v Opaque) Present() bool { return v.V != nil && v.V != "" }
func (v Opaque) Raw() any      { return v.V }

// Empty returns the empty sentinel of a kind.
func Empty(k Kind) Value {
	switch k {
	case KindNumber:
		return Number{}
	case KindTimestamp:
		return Timestamp{}
	case KindChoice:
		return Choice("")
	case KindMultiChoice:
		return MultiChoice(nil)
	case KindFlag:
		return Flag{}
	case KindOpaque:
		return Opaque{}
	default:
		return Text("")
	}
}

var ErrCoerce = errors.New("form: cannot convert value")

// Coerce converts a loosely-typed host value into the variant for kind.
// Multi-choice kinds wrap scalars into a one-element list; single choices
// take the first element of a list.
func Coerce(k Kind, raw any) (Value, error) {
	if v, ok := raw.(Value); ok {
		if v.Kind() == k {
			return v, nil
		}
		raw = v.Raw()
	}
	if raw == nil {
		return Empty(k), nil
	}
	switch k {
	case KindText:
		return Text(scalarString(raw)), nil
	case KindNumber:
		d, err := toDecimal(raw)
		if err != nil {
			return nil, err
		}
		return Number{d}, nil
	case KindTimestamp:
		switch x := raw.(type) {
		case time.Time:
			return Timestamp(x), nil
		case *time.Time:
			if x == nil {
				return Timestamp{}, nil
			}
			return Timestamp(*x), nil
		case string:
			if x == "" {
				return Timestamp{}, nil
			}
			t, err := time.Parse(time.RFC3339, x)
			if err != nil {
				return nil, fmt.Errorf("%w: %q to timestamp: %v", ErrCoerce, x, err)
			}
			return Timestamp(t), nil
		}
		return nil, fmt.Errorf("%w: %T to timestamp", ErrCoerce, raw)
	case KindChoice:
		list := toList(raw)
		if len(list) == 0 {
			return Choice(""), nil
		}
		return Choice(list[0]), nil
	case KindMultiChoice:
		return MultiChoice(toList(raw)), nil
	case KindFlag:
		switch x := raw.(type) {
		case bool:
			return Flag{Set: true, On: x}, nil
		case *bool:
			if x == nil {
				return Flag{}, nil
			}
			return Flag{Set: true, On: *x}, nil
		}
		return nil, fmt.Errorf("%w: %T to flag", ErrCoerce, raw)
	default:
		return Opaque{V: raw}, nil
	}
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		d, err := types.DecimalFromFloat(x)
		if err == nil {
			return d.String()
		}
	case types.Decimal:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

// toList normalises a scalar-or-list into option keys, dropping empties.
func toList(v any) []string {
	var out []string
	add := func(x any) {
		if x == nil {
			return
		}
		if s := scalarString(x); s != "" {
			out = append(out, s)
		}
	}
	switch x := v.(type) {
	case []string:
		for _, s := range x {
			add(s)
		}
	case []any:
		for _, e := range x {
			add(e)
		}
	case []int:
		for _, e := range x {
			add(e)
		}
	case []float64:
		for _, e := range x {
			add(e)
		}
	default:
		add(v)
	}
	return out
}

func toDecimal(v any) (types.Decimal, error) {
	switch x := v.(type) {
	case types.Decimal:
		return x, nil
	case string:
		if x == "" {
			return types.Zero, nil
		}
		d, err := types.NewDecimal(x)
		if err != nil {
			return types.Zero, fmt.Errorf("%w: %v", ErrCoerce, err)
		}
		return d, nil
	case int:
		return types.DecimalFromInt(int64(x)), nil
	case int64:
		return types.DecimalFromInt(x), nil
	case float64:
		d, err := types.DecimalFromFloat(x)
		if err != nil {
			return types.Zero, fmt.Errorf("%w: %v", ErrCoerce, err)
		}
		return d, nil
	}
	return types.Zero, fmt.Errorf("%w: %T to number", ErrCoerce, v)
}
