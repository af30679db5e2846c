package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// fieldConstraints closes over the declaration shape so typos in a host's
// schema file fail at load time instead of silently producing empty config.
const fieldConstraints = `
#Field: {
	name: string & !=""
	type: "hidden" | "input" | "textarea" | "date" | "select" | "currency"
	default?: _
	config?: {
		label?:       string
		title?:       string
		titleInline?: bool
		placeholder?: string
		required?:    bool
		min?:         int & >=0
		max?:         int & >=0
		multiple?:    bool
		decimal?:     bool
		phone?:       bool
		disabled?:    bool
		sm?:          int & >=1 & <=12
	}
	options?: [...{
		id:     _
		text:   string
		value?: _
	}]
}

fields: [...#Field]
`

// LoadCUE decodes field declarations from CUE source of the form
//
//	fields: [{name: "master", type: "select", options: [...]}]
//
// The source is unified with the declaration constraints before decoding.
func LoadCUE(src []byte, filename string) ([]FieldDecl, error) {
	ctx := cuecontext.New()

	constraints := ctx.CompileString(fieldConstraints, cue.Filename("constraints.cue"))
	if err := constraints.Err(); err != nil {
		return nil, fmt.Errorf("schema: compiling constraints: %w", err)
	}

	val := ctx.CompileBytes(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("schema: compiling %s: %s", filename, errors.Details(err, nil))
	}

	unified := constraints.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("schema: validating %s: %s", filename, errors.Details(err, nil))
	}

	var out struct {
		Fields []FieldDecl `json:"fields"`
	}
	if err := unified.Decode(&out); err != nil {
		return nil, fmt.Errorf("schema: decoding %s: %w", filename, err)
	}
	return out.Fields, nil
}

// LoadCUEFile reads and decodes a CUE schema file.
func LoadCUEFile(path string) ([]FieldDecl, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: reading %s: %w", path, err)
	}
	return LoadCUE(src, path)
}
