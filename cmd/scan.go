package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/huginn/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/huginn/internal/models"
	"github.com/jonesrussell/north-cloud/huginn/internal/session"
)

const scanDrainTimeout = 30 * time.Second

func scanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <contractor-id>",
		Short: "Scan one contractor and wait for the result",
		Long: `Runs a scan session for the contractor in the foreground and prints a
summary when it has finished. Interrupting the command fails the session.`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	contractorID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || contractorID <= 0 {
		return fmt.Errorf("invalid contractor id %q", args[0])
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.NewServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	sess, err := svc.Orchestrator.Start(ctx, contractorID, session.TriggerCLI)
	if err != nil {
		return fmt.Errorf("start scan: %w", err)
	}
	cmd.Printf("Scan session %d started for contractor %d\n", sess.ID, contractorID)

	waitErr := svc.Orchestrator.Wait(ctx, sess.ID)
	if waitErr != nil {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), scanDrainTimeout)
		defer cancel()
		if err = svc.Orchestrator.Shutdown(drainCtx); err != nil {
			return errors.Join(waitErr, err)
		}
	}

	view, err := svc.Sessions.GetView(context.WithoutCancel(ctx), sess.ID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	renderSession(cmd, view)

	if view.Status == models.SessionFailed {
		return errors.New("scan failed")
	}
	return nil
}

func renderSession(cmd *cobra.Command, v *models.ScanSessionView) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Session", v.ID},
		{"Contractor", fmt.Sprintf("%s (%s)", v.ContractorName, v.ContractorDomain)},
		{"Status", v.Status},
		{"Pages scanned", v.PagesScanned},
		{"Pages with violations", v.PagesWithViolations},
		{"Total violations", v.TotalViolations},
		{"Duration", time.Duration(v.DurationSeconds * float64(time.Second)).Round(time.Millisecond)},
	})
	if v.ErrorMessage != nil {
		t.AppendRow(table.Row{"Error", *v.ErrorMessage})
	}
	t.Render()
}
