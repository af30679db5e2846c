package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/scheduler/internal/editor"
	"github.com/matthewbaird/scheduler/internal/ledger"
)

type bookFlags struct {
	eventID  string
	start    string
	end      string
	resource string
	sets     []string
	lines    []string
	remove   []int
	confirm  bool
	show     bool
	dryRun   bool
}

func newBookCmd(app *App) *cobra.Command {
	var f bookFlags

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Create or edit a booking and save it",
		Long: strings.TrimSpace(`
Opens an editor session from --event (an existing booking), from a
--start/--end/--resource selection, or blank. Field values are applied with
--set, service lines with --line, then the form is saved. The saved booking
is printed as JSON.

A save blocked by validation prints the form with its errors to stderr.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace()
			if err != nil {
				return writeErr(cmd, err)
			}
			src, err := ws.source(ctx, f.eventID, f.start, f.end, f.resource)
			if err != nil {
				return writeErr(cmd, err)
			}

			rec, bus := ws.startBus(ctx)
			defer bus.Stop()

			opts, err := ws.options(rec)
			if err != nil {
				return writeErr(cmd, err)
			}
			mgr := editor.NewManager(ws.schema, opts, 0, 0)
			sess, err := mgr.Open(src)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer mgr.Close(sess.ID, false)

			if err := applyEdits(sess, f); err != nil {
				return writeErr(cmd, err)
			}

			if f.dryRun {
				return ws.renderer.Render(cmd.OutOrStdout(), sess)
			}
			if f.show {
				if err := ws.renderer.Render(cmd.ErrOrStderr(), sess); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr())
			}

			out, err := sess.Save(ctx, f.confirm)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !out.Saved {
				_ = ws.renderer.Render(cmd.ErrOrStderr(), sess)
				fmt.Fprintln(cmd.ErrOrStderr())
				return writeErr(cmd, out.Err())
			}
			if err := saveEvents(ctx, ws.eventsPath, ws.events); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out.Event)
		},
	}

	cmd.Flags().StringVar(&f.eventID, "event", "", "Edit the booking with this id")
	cmd.Flags().StringVar(&f.start, "start", "", "Selection start (2006-01-02T15:04, RFC 3339, ...)")
	cmd.Flags().StringVar(&f.end, "end", "", "Selection end")
	cmd.Flags().StringVar(&f.resource, "resource", "", "Resource the selection belongs to")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "Set a field: name=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.lines, "line", nil, "Add a service line: service[:quantity[:unit price]] (repeatable)")
	cmd.Flags().IntSliceVar(&f.remove, "remove-line", nil, "Remove the service line at this index before adding new ones")
	cmd.Flags().BoolVar(&f.confirm, "confirm", false, "Save and confirm; confirmed bookings are read-only")
	cmd.Flags().BoolVar(&f.show, "show", false, "Print the form to stderr before saving")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Print the form and exit without saving")
	cmd.MarkFlagsMutuallyExclusive("event", "start")
	cmd.MarkFlagsMutuallyExclusive("event", "end")

	return cmd
}

func applyEdits(sess *editor.Session, f bookFlags) error {
	for _, s := range f.sets {
		name, value, err := splitAssignment(s)
		if err != nil {
			return err
		}
		if err := sess.Change(name, value); err != nil {
			return fmt.Errorf("--set %s: %w", name, err)
		}
	}

	// Highest index first so earlier removals do not shift later ones.
	remove := slices.Clone(f.remove)
	slices.Sort(remove)
	remove = slices.Compact(remove)
	for _, i := range slices.Backward(remove) {
		if err := sess.RemoveLine(i); err != nil {
			return fmt.Errorf("--remove-line %d: %w", i, err)
		}
	}
	if len(remove) > 0 {
		if err := sess.RecomputeTotals(); err != nil {
			return err
		}
	}

	for _, spec := range f.lines {
		if err := addLine(sess, spec); err != nil {
			return fmt.Errorf("--line %s: %w", spec, err)
		}
	}
	return nil
}

func addLine(sess *editor.Session, spec string) error {
	parts := strings.Split(spec, ":")
	if len(parts) > 3 {
		return fmt.Errorf("expected service[:quantity[:unit price]]")
	}
	i, err := sess.AddLine()
	if err != nil {
		return err
	}
	if svc := strings.TrimSpace(parts[0]); svc != "" {
		if err := sess.SetLineField(i, ledger.KeyService, svc); err != nil {
			return err
		}
	}
	if len(parts) > 1 {
		if err := sess.SetLineField(i, ledger.KeyQuantity, strings.TrimSpace(parts[1])); err != nil {
			return err
		}
	}
	if len(parts) > 2 {
		if err := sess.SetLineField(i, ledger.KeyUnitPrice, strings.TrimSpace(parts[2])); err != nil {
			return err
		}
	}
	return nil
}
