package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/huginn/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/huginn/internal/database"
	"github.com/jonesrussell/north-cloud/huginn/internal/rules"
)

func rulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect forbidden-word rules and MCC profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Re-validate every active rule and profile",
		Long: `Loads the rules a scan would snapshot and checks each one again. Rules
that fail are listed and the command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: runRulesValidate,
	})
	return cmd
}

func runRulesValidate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := bootstrap.SetupDatabase(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	snap, err := rules.TakeSnapshot(cmd.Context(), database.RuleSource{
		Words: database.NewForbiddenWordRepository(db),
		Codes: database.NewMCCCodeRepository(db),
	})
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Kind", "ID", "Rule", "Problem"})

	invalid := 0
	for i := range snap.Words {
		w := snap.Words[i]
		if vErr := rules.ValidateForbiddenWord(&w); vErr != nil {
			t.AppendRow(table.Row{"forbidden word", w.ID, w.Word, vErr.Error()})
			invalid++
		}
	}
	for i := range snap.Profiles {
		c := snap.Profiles[i]
		if vErr := rules.ValidateMCCCode(&c); vErr != nil {
			t.AppendRow(table.Row{"mcc code", c.ID, c.Code, vErr.Error()})
			invalid++
		}
	}

	if invalid == 0 {
		cmd.Printf("%d forbidden words and %d MCC codes are valid\n", len(snap.Words), len(snap.Profiles))
		return nil
	}

	t.AppendFooter(table.Row{"Invalid", invalid, "", ""})
	t.Render()
	return fmt.Errorf("%d invalid rules", invalid)
}
