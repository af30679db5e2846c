package schema

// Built-in field names. They are also the flat JSON keys of a committed event.
const (
	FieldEventID     = "event_id"
	FieldConfirmed   = "confirmed"
	FieldName        = "name"
	FieldPhone       = "phone"
	FieldStart       = "start"
	FieldEnd         = "end"
	FieldComment     = "comment"
	FieldTotalPrice  = "totalPrice"
	FieldTotalIncome = "totalIncome"
)

// ServicesAnchor is the field the services block is rendered after.
const ServicesAnchor = FieldEnd

// BuiltinOptions tunes the built-in declarations.
type BuiltinOptions struct {
	// RequireContact makes name and phone required.
	RequireContact bool
}

// Builtins returns the fixed booking fields every editor carries.
func Builtins(opts BuiltinOptions) []FieldDecl {
	return []FieldDecl{
		{Name: FieldEventID, Type: FieldHidden},
		{Name: FieldConfirmed, Type: FieldHidden},
		{
			Name: FieldName,
			Type: FieldInput,
			Config: FieldConfig{
				Label:    "Full name",
				Title:    "Client",
				Required: opts.RequireContact,
				Min:      3,
			},
		},
		{
			Name: FieldPhone,
			Type: FieldInput,
			Config: FieldConfig{
				Label:    "Phone",
				Required: opts.RequireContact,
				Phone:    true,
			},
		},
		{Name: FieldStart, Type: FieldDate, Config: FieldConfig{Label: "Start", SM: 6}},
		{Name: FieldEnd, Type: FieldDate, Config: FieldConfig{Label: "End", SM: 6}},
		{Name: FieldComment, Type: FieldTextarea, Config: FieldConfig{Title: "Comment"}},
		{Name: FieldTotalPrice, Type: FieldCurrency, Config: FieldConfig{Title: "Amount due", TitleInline: true}},
		{Name: FieldTotalIncome, Type: FieldCurrency, Config: FieldConfig{Title: "Income", TitleInline: true}},
	}
}

// IsBuiltin reports whether name is one of the fixed booking fields.
func IsBuiltin(name string) bool {
	switch name {
	case FieldEventID, FieldConfirmed, FieldName, FieldPhone, FieldStart,
		FieldEnd, FieldComment, FieldTotalPrice, FieldTotalIncome:
		return true
	}
	return false
}
