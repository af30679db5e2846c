package render

// FormStrings are the dialog-level labels.
type FormStrings struct {
	Confirm    string `json:"confirm" yaml:"confirm"`
	Cancel     string `json:"cancel" yaml:"cancel"`
	EditTitle  string `json:"editTitle" yaml:"editTitle"`
	AddTitle   string `json:"addTitle" yaml:"addTitle"`
	Save       string `json:"save" yaml:"save"`
	Exit       string `json:"exit" yaml:"exit"`
	Services   string `json:"services" yaml:"services"`
	AddService string `json:"addService" yaml:"addService"`
	Confirmed  string `json:"confirmed" yaml:"confirmed"`
}

// Translations supplies the labels the editor shows. Event is keyed by
// field name and falls back to the field's declared label.
type Translations struct {
	Event map[string]string `json:"event" yaml:"event"`
	Form  FormStrings       `json:"form" yaml:"form"`
}

// DefaultTranslations returns the built-in English strings.
func DefaultTranslations() Translations {
	return Translations{
		Event: map[string]string{},
		Form: FormStrings{
			Confirm:    "Confirm",
			Cancel:     "Cancel",
			EditTitle:  "Edit booking",
			AddTitle:   "New booking",
			Save:       "Save",
			Exit:       "Exit",
			Services:   "Services",
			AddService: "Add service",
			Confirmed:  "Booking confirmed",
		},
	}
}

// WithDefaults fills every empty form string from DefaultTranslations.
func (t Translations) WithDefaults() Translations {
	def := DefaultTranslations()
	if t.Event == nil {
		t.Event = def.Event
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&t.Form.Confirm, def.Form.Confirm)
	fill(&t.Form.Cancel, def.Form.Cancel)
	fill(&t.Form.EditTitle, def.Form.EditTitle)
	fill(&t.Form.AddTitle, def.Form.AddTitle)
	fill(&t.Form.Save, def.Form.Save)
	fill(&t.Form.Exit, def.Form.Exit)
	fill(&t.Form.Services, def.Form.Services)
	fill(&t.Form.AddService, def.Form.AddService)
	fill(&t.Form.Confirmed, def.Form.Confirmed)
	return t
}

// Label returns the translated label for a field, or fallback.
func (t Translations) Label(name, fallback string) string {
	if s := t.Event[name]; s != "" {
		return s
	}
	return fallback
}
