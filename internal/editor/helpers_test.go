package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/ledger"
	"github.com/matthewbaird/scheduler/internal/schema"
	"github.com/matthewbaird/scheduler/internal/types"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return t0.Add(-time.Hour) }

func testSchema(t *testing.T, custom ...schema.FieldDecl) *schema.Schema {
	t.Helper()
	s, err := schema.Compose(custom, schema.BuiltinOptions{})
	require.NoError(t, err)
	return s
}

func requiredName() schema.FieldDecl {
	return schema.FieldDecl{Name: "name", Type: schema.FieldInput, Config: schema.FieldConfig{Required: true}}
}

func testOptions(coll calendar.Collection) Options {
	return Options{
		Ledger: ledger.Options{
			DefaultUnitPrice: types.DecimalFromInt(5),
			CommissionRate:   types.MustDecimal("0.9"),
		},
		ResourceField: "resource_id",
		Collection:    coll,
		Now:           fixedNow,
	}
}

func hourRange() *calendar.SelectedRange {
	return &calendar.SelectedRange{Start: t0, End: t0.Add(time.Hour)}
}

func openSession(t *testing.T, s *schema.Schema, src calendar.Source, opts Options) *Session {
	t.Helper()
	sess, err := Open(s, src, opts)
	require.NoError(t, err)
	return sess
}
