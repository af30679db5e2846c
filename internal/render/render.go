// Package render maps editor state to what a dialog shows: one surface per
// field chosen by its declared type, translated labels, the services block,
// and the dialog actions. A host may replace all of it with a CustomEditor.
package render

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/form"
	"github.com/matthewbaird/scheduler/internal/ledger"
	"github.com/matthewbaird/scheduler/internal/schema"
)

//go:embed templates/*
var templateFS embed.FS

var formTmpl = template.Must(template.ParseFS(templateFS, "templates/form.tmpl"))

// Surface is the input adapter a field is drawn with.
type Surface int

const (
	SurfaceNone Surface = iota
	SurfaceText
	SurfaceTextarea
	SurfaceDate
	SurfaceSelect
	SurfaceCurrency
)

var surfaceNames = []string{"none", "text", "textarea", "date", "select", "currency"}

func (s Surface) String() string {
	if int(s) >= 0 && int(s) < len(surfaceNames) {
		return surfaceNames[s]
	}
	return "unknown"
}

// SurfaceFor returns the surface of a field type. Hidden fields render
// nothing; currency fields are read-only.
func SurfaceFor(t schema.FieldType) Surface {
	switch t {
	case schema.FieldInput:
		return SurfaceText
	case schema.FieldTextarea:
		return SurfaceTextarea
	case schema.FieldDate:
		return SurfaceDate
	case schema.FieldSelect:
		return SurfaceSelect
	case schema.FieldCurrency:
		return SurfaceCurrency
	default:
		return SurfaceNone
	}
}

// State is the read side of an editor session.
type State interface {
	Records() []form.Record
	ShowError(name string) bool
	Touched() bool
	Lines() []ledger.LineItem
	Editing() bool
	ReadOnly() bool
}

// Editor is the full session surface a renderer, or a custom editor, drives.
type Editor interface {
	State
	Close(clear bool) error
	SetLoading(on bool)
	Edited() *calendar.Event
	Commit(ctx context.Context, ev calendar.Event, action calendar.Action) (calendar.Event, error)
	ResourceID() any
	ResourceField() string
	CustomEditor() bool
}

// ErrEditorMismatch is returned by Render when a session opened for a host
// editor meets a renderer without one, or the other way round.
var ErrEditorMismatch = errors.New("render: session and renderer disagree on the custom editor")

// Capabilities is everything a custom editor gets. It must call Confirm
// itself to commit.
type Capabilities struct {
	State         State
	Close         func(clear bool) error
	Loading       func(on bool)
	Edited        *calendar.Event
	Confirm       func(ctx context.Context, ev calendar.Event, action calendar.Action) (calendar.Event, error)
	ResourceField string
	ResourceID    any
}

// CustomEditor replaces the default form entirely.
type CustomEditor interface {
	Render(w io.Writer, caps Capabilities) error
}

// CustomEditorFunc adapts a plain function to CustomEditor.
type CustomEditorFunc func(w io.Writer, caps Capabilities) error

func (f CustomEditorFunc) Render(w io.Writer, caps Capabilities) error { return f(w, caps) }

// Choice is one option of a select surface.
type Choice struct {
	Key      string
	Text     string
	Selected bool
}

// Field is one drawn field.
type Field struct {
	Name        string
	Surface     Surface
	Label       string
	Title       string
	TitleInline bool
	Placeholder string
	Required    bool
	Disabled    bool
	Multiple    bool
	SM          int
	Value       string
	Error       bool
	Choices     []Choice
}

// Line is one row of the services block.
type Line struct {
	Index    int
	Service  []Choice
	Quantity string
	Subtotal string
	Error    bool
}

// Services is the line-item block.
type Services struct {
	Title    string
	AddLabel string
	Lines    []Line
}

// Block is either a field or the services block.
type Block struct {
	Field    *Field
	Services *Services
}

// Action is a dialog button.
type Action struct {
	ID    string
	Label string
}

// Action identifiers.
const (
	ActionCancel  = "cancel"
	ActionSave    = "save"
	ActionConfirm = "confirm"
	ActionExit    = "exit"
)

// View is the complete dialog.
type View struct {
	Title    string
	Banner   string
	ReadOnly bool
	Blocks   []Block
	Actions  []Action
}

// Renderer builds dialog views.
type Renderer struct {
	Translations Translations
	// Currency formats amounts; nil prints plain decimals.
	Currency *CurrencyFormatter
	// Catalog is the option list of the line-item service select.
	Catalog []schema.Option
	// Custom, when set, takes over rendering. Sessions drawn by this
	// renderer must be opened with editor.Options.CustomEditor equal to
	// Custom != nil.
	Custom CustomEditor
	// DateLayout formats date surfaces; defaults to "2006-01-02 15:04".
	DateLayout string
}

// Render draws the editor to w, handing control to the custom editor when
// one is configured.
func (r *Renderer) Render(w io.Writer, ed Editor) error {
	if ed.CustomEditor() != r.HasCustom() {
		return ErrEditorMismatch
	}
	if r.Custom != nil {
		return r.Custom.Render(w, r.Capabilities(ed))
	}
	return WriteText(w, r.Build(ed))
}

// HasCustom reports whether a custom editor takes over rendering.
func (r *Renderer) HasCustom() bool { return r.Custom != nil }

// Capabilities bundles what a custom editor may do with ed.
func (r *Renderer) Capabilities(ed Editor) Capabilities {
	return Capabilities{
		State:         ed,
		Close:         ed.Close,
		Loading:       ed.SetLoading,
		Edited:        ed.Edited(),
		Confirm:       ed.Commit,
		ResourceField: ed.ResourceField(),
		ResourceID:    ed.ResourceID(),
	}
}

// Build derives the view of st. The services block follows the start/end
// anchor, or closes the form when the anchor is not drawn.
func (r *Renderer) Build(st State) View {
	tr := r.Translations.WithDefaults()
	v := View{
		Title:    tr.Form.AddTitle,
		ReadOnly: st.ReadOnly(),
	}
	if st.Editing() {
		v.Title = tr.Form.EditTitle
	}
	if v.ReadOnly {
		v.Banner = tr.Form.Confirmed
	}

	services := r.services(st, tr)
	placed := false
	for _, rec := range st.Records() {
		surface := SurfaceFor(rec.Type)
		if surface == SurfaceNone {
			continue
		}
		v.Blocks = append(v.Blocks, Block{Field: r.field(st, tr, rec, surface)})
		if rec.Name == schema.ServicesAnchor {
			v.Blocks = append(v.Blocks, Block{Services: services})
			placed = true
		}
	}
	if !placed {
		v.Blocks = append(v.Blocks, Block{Services: services})
	}

	if v.ReadOnly {
		v.Actions = []Action{{ID: ActionExit, Label: tr.Form.Exit}}
	} else {
		v.Actions = []Action{
			{ID: ActionCancel, Label: tr.Form.Cancel},
			{ID: ActionSave, Label: tr.Form.Save},
			{ID: ActionConfirm, Label: tr.Form.Confirm},
		}
	}
	return v
}

func (r *Renderer) field(st State, tr Translations, rec form.Record, surface Surface) *Field {
	f := &Field{
		Name:        rec.Name,
		Surface:     surface,
		Label:       tr.Label(rec.Name, rec.Config.Label),
		Title:       rec.Config.Title,
		TitleInline: rec.Config.TitleInline,
		Placeholder: rec.Config.Placeholder,
		Required:    rec.Config.Required,
		Disabled:    rec.Config.Disabled || surface == SurfaceCurrency,
		Multiple:    rec.Config.Multiple,
		SM:          rec.Config.SM,
		Error:       st.ShowError(rec.Name),
	}
	switch surface {
	case SurfaceCurrency:
		f.Value = "-"
		if n, ok := rec.Value.(form.Number); ok && rec.Valid && n.Present() {
			f.Value = r.money(n)
		}
	case SurfaceDate:
		if ts, ok := rec.Value.(form.Timestamp); ok && ts.Present() {
			f.Value = ts.Time().Format(r.dateLayout())
		}
	case SurfaceSelect:
		selected := selectedKeys(rec.Value)
		var texts []string
		for _, o := range rec.Options {
			c := Choice{Key: o.Key(), Text: optionText(o), Selected: selected[o.Key()]}
			if c.Selected {
				texts = append(texts, c.Text)
			}
			f.Choices = append(f.Choices, c)
		}
		f.Value = strings.Join(texts, ", ")
	default:
		if raw := rec.Value.Raw(); raw != nil {
			f.Value = fmt.Sprint(raw)
		}
	}
	return f
}

func (r *Renderer) services(st State, tr Translations) *Services {
	s := &Services{Title: tr.Form.Services, AddLabel: tr.Form.AddService}
	for i, it := range st.Lines() {
		line := Line{
			Index:    i,
			Quantity: it.Quantity.String(),
			Subtotal: r.money(form.Number{Decimal: it.Subtotal}),
			Error:    st.Touched() && it.ServiceRef == "",
		}
		for _, o := range r.Catalog {
			line.Service = append(line.Service, Choice{
				Key:      o.Key(),
				Text:     optionText(o),
				Selected: o.Key() == it.ServiceRef,
			})
		}
		s.Lines = append(s.Lines, line)
	}
	return s
}

func (r *Renderer) money(n form.Number) string {
	if r.Currency == nil {
		return n.String()
	}
	return r.Currency.Format(n.Decimal)
}

func (r *Renderer) dateLayout() string {
	if r.DateLayout != "" {
		return r.DateLayout
	}
	return "2006-01-02 15:04"
}

func selectedKeys(v form.Value) map[string]bool {
	out := map[string]bool{}
	switch x := v.(type) {
	case form.Choice:
		if x != "" {
			out[string(x)] = true
		}
	case form.MultiChoice:
		for _, k := range x {
			out[k] = true
		}
	}
	return out
}

func optionText(o schema.Option) string {
	if o.Text != "" {
		return o.Text
	}
	return o.Key()
}

// WriteText draws v as plain text.
func WriteText(w io.Writer, v View) error {
	return formTmpl.Execute(w, v)
}
