// Package input holds the stateless adapters that turn raw user input into
// a typed form value plus its validity, one per editable field type.
package input

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/matthewbaird/scheduler/internal/form"
	"github.com/matthewbaird/scheduler/internal/schema"
	"github.com/matthewbaird/scheduler/internal/types"
)

var (
	ErrNotEditable   = errors.New("input: field is not user-editable")
	ErrUnknownOption = errors.New("input: value is not one of the field's options")
	ErrBadDate       = errors.New("input: unrecognised date")
)

// CallingPrefix is the international prefix a phone input starts with. A
// required phone must carry digits beyond it.
var CallingPrefix = "+7"

// Change parses raw for the declared field and reports the value to store
// and whether it is valid. Hidden and currency fields are rejected; the
// engine writes those itself.
func Change(d *schema.FieldDecl, raw any) (form.Value, bool, error) {
	switch d.Type {
	case schema.FieldInput, schema.FieldTextarea:
		s, err := asString(raw)
		if err != nil {
			return nil, false, err
		}
		switch {
		case d.Config.Phone:
			v, ok := Phone(d.Config, s)
			return v, ok, nil
		case d.Config.Decimal:
			return Decimal(d.Config, s)
		default:
			v, ok := Text(d.Config, s)
			return v, ok, nil
		}
	case schema.FieldDate:
		v, err := Date(raw)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	case schema.FieldSelect:
		return Select(d, raw)
	default:
		return nil, false, fmt.Errorf("%w: %s (%s)", ErrNotEditable, d.Name, d.Type)
	}
}

// Text validates a free-text entry. Only required fields are checked:
// they must be non-empty and within min and max, counted in characters
// after trimming. An optional entry is always valid, like Phone.
func Text(cfg schema.FieldConfig, s string) (form.Text, bool) {
	if !cfg.Required {
		return form.Text(s), true
	}
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n == 0 {
		return form.Text(s), false
	}
	if cfg.Min > 0 && n < cfg.Min {
		return form.Text(s), false
	}
	if cfg.Max > 0 && n > cfg.Max {
		return form.Text(s), false
	}
	return form.Text(s), true
}

// Phone validates a phone entry. A required phone is invalid until it is
// longer than CallingPrefix.
func Phone(cfg schema.FieldConfig, s string) (form.Text, bool) {
	if !cfg.Required {
		return form.Text(s), true
	}
	return form.Text(s), len(strings.TrimSpace(s)) > len(CallingPrefix)
}

// Decimal parses a numeric text entry. The value is kept as text so the
// user's spelling survives. A required entry must be a non-negative
// number; an optional one is always valid.
func Decimal(cfg schema.FieldConfig, s string) (form.Value, bool, error) {
	if !cfg.Required {
		return form.Text(s), true, nil
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return form.Text(s), false, nil
	}
	d, err := ParseDecimal(trimmed)
	if err != nil || d.Sign() < 0 {
		return form.Text(s), false, nil
	}
	return form.Text(s), true, nil
}

// ParseDecimal reads a decimal, accepting a comma as the decimal separator.
func ParseDecimal(s string) (types.Decimal, error) {
	return types.NewDecimal(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Date parses a date entry. Once a time is produced it is always valid.
func Date(raw any) (form.Timestamp, error) {
	switch x := raw.(type) {
	case time.Time:
		return form.Timestamp(x), nil
	case form.Timestamp:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return form.Timestamp(t), nil
			}
		}
		return form.Timestamp{}, fmt.Errorf("%w: %q", ErrBadDate, x)
	}
	return form.Timestamp{}, fmt.Errorf("%w: %T", ErrBadDate, raw)
}

// Select checks the chosen keys against the field's options. Multi-select
// fields take a list or a comma-separated string. An empty selection is
// valid only for optional fields.
func Select(d *schema.FieldDecl, raw any) (form.Value, bool, error) {
	kind := form.KindChoice
	if d.Config.Multiple {
		kind = form.KindMultiChoice
		if s, ok := raw.(string); ok {
			raw = splitList(s)
		}
	}
	v, err := form.Coerce(kind, raw)
	if err != nil {
		return nil, false, err
	}
	var keys []string
	switch x := v.(type) {
	case form.Choice:
		if x != "" {
			keys = []string{string(x)}
		}
	case form.MultiChoice:
		keys = x
	}
	if len(d.Options) > 0 {
		for _, k := range keys {
			if _, ok := d.Option(k); !ok {
				return nil, false, fmt.Errorf("%w: %s=%q", ErrUnknownOption, d.Name, k)
			}
		}
	}
	if len(keys) == 0 {
		return v, !d.Config.Required, nil
	}
	return v, true, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func asString(raw any) (string, error) {
	switch x := raw.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case form.Text:
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("input: expected text, got %T", raw)
}
