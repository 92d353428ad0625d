package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	derrors "github.com/matzehuels/dabble/pkg/errors"
	"github.com/matzehuels/dabble/pkg/history"
)

// historyCommand creates the build history command.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show earlier builds",
	}

	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyPruneCommand())

	return cmd
}

// historyListCommand creates the "history list" subcommand.
func (c *CLI) historyListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				printInfo("No builds recorded")
				return nil
			}
			fmt.Println(historyTable(recs))
			printNextStep("Details", "dabble history show <id>")
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of builds to show (0 for all)")
	return cmd
}

// historyTable renders build records, newest first.
func historyTable(recs []history.Record) string {
	t := newTable("ID", "Started", "Status", "Solute", "Output", "Atoms")
	for _, r := range recs {
		status := r.Status
		if r.Status == history.StatusFailed {
			status = StyleWarning.Render(status)
		}
		t.Row(shortID(r.ID), r.StartedAt.Local().Format(time.DateTime), status, r.Solute, r.Output, fmt.Sprint(r.Atoms))
	}
	return t.Render()
}

// shortID abbreviates a build ID for table display.
func shortID(id string) string {
	if len(id) > 8 && !strings.HasPrefix(id, "failed-") {
		return id[:8]
	}
	return id
}

// historyShowCommand creates the "history show" subcommand.
func (c *CLI) historyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one build and the options it was run with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := findRecord(cmd, store, args[0])
			if err != nil {
				return err
			}
			printRecord(rec)
			return nil
		},
	}
}

// findRecord looks up id, accepting an unambiguous prefix as shown by list.
func findRecord(cmd *cobra.Command, store *history.Store, id string) (history.Record, error) {
	rec, ok, err := store.Get(cmd.Context(), id)
	if err != nil || ok {
		return rec, err
	}
	all, err := store.List(cmd.Context(), 0)
	if err != nil {
		return history.Record{}, err
	}
	var found []history.Record
	for _, r := range all {
		if strings.HasPrefix(r.ID, id) {
			found = append(found, r)
		}
	}
	switch len(found) {
	case 0:
		return history.Record{}, derrors.New(derrors.ErrCodeInvalidInput, "no build with id %q", id)
	case 1:
		return found[0], nil
	default:
		return history.Record{}, derrors.New(derrors.ErrCodeAmbiguousInput, "id prefix %q matches %d builds", id, len(found))
	}
}

func printRecord(r history.Record) {
	if r.Status == history.StatusOK {
		printSuccess("Build %s", r.ID)
	} else {
		printError("Build %s failed", r.ID)
	}
	fmt.Println()
	printKeyValue("Started", r.StartedAt.Local().Format(time.DateTime))
	printKeyValue("Duration", r.Duration.Round(time.Millisecond).String())
	printKeyValue("Version", r.Version)
	printKeyValue("Solute", r.Solute)
	printKeyValue("Membrane", r.Membrane)
	printKeyValue("Output", r.Output)
	if r.Status == history.StatusFailed {
		printKeyValue("Error", r.Error)
	} else {
		printKeyValue("Box", fmt.Sprintf("%.1f × %.1f × %.1f Å", r.Box[0], r.Box[1], r.Box[2]))
		printKeyValue("Atoms", fmt.Sprintf("%d (%d waters)", r.Atoms, r.Waters))
		printKeyValue("Ions", fmt.Sprintf("%d cations, %d anions", r.Cations, r.Anions))
		printKeyValue("Charge", formatCharge(r.FinalCharge))
	}
	for _, f := range r.ExtraFiles {
		printDetail("extra %s", f)
	}
	if len(r.Options) > 0 {
		var buf bytes.Buffer
		if json.Indent(&buf, r.Options, "", "  ") == nil {
			fmt.Println()
			fmt.Println(StyleDim.Render(buf.String()))
		}
	}
}

// historyPruneCommand creates the "history prune" subcommand.
func (c *CLI) historyPruneCommand() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old build records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return derrors.New(derrors.ErrCodeInvalidInput, "--older-than must be positive")
			}
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			printSuccess("Removed %d build records", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "remove builds started before this long ago")
	return cmd
}
