// Package schema provides the declarative field schema the editor form is
// derived from.
//
// A Schema is the ordered union of the built-in booking fields and the
// host's custom declarations. It is consumed by the form resolver (initial
// state), the input adapters (validation), and the render adapter (surface
// selection).
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldType selects how a field is stored, validated and rendered.
type FieldType int

const (
	FieldHidden FieldType = iota
	FieldInput
	FieldTextarea
	FieldDate
	FieldSelect
	FieldCurrency
)

var fieldTypeNames = []string{"hidden", "input", "textarea", "date", "select", "currency"}

// String returns the declaration name of the type.
func (ft FieldType) String() string {
	if int(ft) >= 0 && int(ft) < len(fieldTypeNames) {
		return fieldTypeNames[ft]
	}
	return "unknown"
}

// Editable reports whether a user can change the field directly. Hidden and
// currency fields are only ever written by the engine.
func (ft FieldType) Editable() bool {
	switch ft {
	case FieldInput, FieldTextarea, FieldDate, FieldSelect:
		return true
	default:
		return false
	}
}

// ParseFieldType maps a declaration name to its FieldType.
func ParseFieldType(s string) (FieldType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range fieldTypeNames {
		if n == name {
			return FieldType(i), nil
		}
	}
	return FieldHidden, fmt.Errorf("unknown field type %q", s)
}

func (ft FieldType) MarshalText() ([]byte, error) {
	return []byte(ft.String()), nil
}

func (ft *FieldType) UnmarshalText(b []byte) error {
	parsed, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*ft = parsed
	return nil
}

func (ft *FieldType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("field type must be a string: %w", err)
	}
	return ft.UnmarshalText([]byte(s))
}

// FieldConfig carries validation rules and rendering hints.
type FieldConfig struct {
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	TitleInline bool   `json:"titleInline,omitempty" yaml:"titleInline,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Min         int    `json:"min,omitempty" yaml:"min,omitempty"`
	Max         int    `json:"max,omitempty" yaml:"max,omitempty"`
	Multiple    bool   `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	Decimal     bool   `json:"decimal,omitempty" yaml:"decimal,omitempty"`
	Phone       bool   `json:"phone,omitempty" yaml:"phone,omitempty"`
	Disabled    bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	SM          int    `json:"sm,omitempty" yaml:"sm,omitempty"` // grid width hint, 1-12
}

// Option is one enumerated choice of a select field.
type Option struct {
	ID    any    `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Key is the identifier stored in the form when the option is chosen.
func (o Option) Key() string {
	if o.Value != nil {
		return fmt.Sprint(o.Value)
	}
	return fmt.Sprint(o.ID)
}

// FieldDecl declares one form field.
type FieldDecl struct {
	Name    string      `json:"name" yaml:"name"`
	Type    FieldType   `json:"type" yaml:"type"`
	Default any         `json:"default,omitempty" yaml:"default,omitempty"`
	Config  FieldConfig `json:"config,omitempty" yaml:"config,omitempty"`
	Options []Option    `json:"options,omitempty" yaml:"options,omitempty"`
}

// Option returns the option with the given key, if any.
func (d *FieldDecl) Option(key string) (Option, bool) {
	for _, o := range d.Options {
		if o.Key() == key {
			return o, true
		}
	}
	return Option{}, false
}

var (
	ErrEmptyName     = errors.New("schema: field name is empty")
	ErrDuplicateName = errors.New("schema: duplicate field name")
)

// Schema is an ordered set of field declarations. It is immutable once
// built and safe for concurrent reads.
type Schema struct {
	fields map[string]*FieldDecl
	order  []string
}

// New builds a Schema from decls, preserving their order.
func New(decls ...FieldDecl) (*Schema, error) {
	s := &Schema{fields: make(map[string]*FieldDecl, len(decls))}
	for i := range decls {
		d := decls[i]
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%w (position %d)", ErrEmptyName, i)
		}
		if _, dup := s.fields[d.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, d.Name)
		}
		s.fields[d.Name] = &d
		s.order = append(s.order, d.Name)
	}
	return s, nil
}

// Compose merges the built-in fields with custom declarations. Built-ins come
// first in their fixed order; a custom field that reuses a built-in name
// replaces it in place, other custom fields follow in declaration order.
func Compose(custom []FieldDecl, opts BuiltinOptions) (*Schema, error) {
	builtins := Builtins(opts)
	index := make(map[string]int, len(builtins))
	for i, b := range builtins {
		index[b.Name] = i
	}
	merged := builtins
	for _, d := range custom {
		if i, ok := index[d.Name]; ok {
			merged[i] = d
			continue
		}
		merged = append(merged, d)
	}
	return New(merged...)
}

// Field returns the declaration for name, or nil.
func (s *Schema) Field(name string) *FieldDecl {
	return s.fields[name]
}

// Names returns field names in declaration order.
func (s *Schema) Names() []string {
	return s.order
}

// Fields returns copies of all declarations in order.
func (s *Schema) Fields() []FieldDecl {
	out := make([]FieldDecl, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, *s.fields[n])
	}
	return out
}

// Len returns the number of declared fields.
func (s *Schema) Len() int { return len(s.order) }
