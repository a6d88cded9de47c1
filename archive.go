package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"dhsim/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 8, 64)
}

func printRuns(ctx context.Context, w io.Writer, db *store.Store) error {
	runs, err := db.Runs(ctx)
	if err != nil {
		return err
	}
	t := newTable("run", "steps", "failed", "created_at")
	for _, r := range runs {
		t.Row(r.ID, strconv.Itoa(r.Steps), strconv.Itoa(r.Failed), r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_, err = fmt.Fprintln(w, t.Render())
	return err
}

// 输出一个批次的全网热损、压损；给出 pipeID 时再输出该管道的序列
func printRun(ctx context.Context, w io.Writer, db *store.Store, runID, pipeID string) error {
	global, err := db.LoadGlobal(ctx, runID)
	if err != nil {
		return err
	}
	failures, err := db.LoadFailures(ctx, runID)
	if err != nil {
		return err
	}
	if len(global) == 0 && len(failures) == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	t := newTable("step", "heat_loss", "pressure_loss", "error")
	for _, g := range global {
		t.Row(strconv.Itoa(g.Step), num(g.HeatLoss), num(g.PressureLoss), "")
	}
	for _, f := range failures {
		t.Row(strconv.Itoa(f.Step), "", "", f.Error)
	}
	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}

	if pipeID == "" {
		return nil
	}
	series, err := db.LoadPipeSeries(ctx, runID, pipeID)
	if err != nil {
		return err
	}
	t = newTable("step", "mass_flow", "velocity", "supply_loss", "return_loss", "temp_out", "heat_loss")
	for _, s := range series {
		p := s.State
		t.Row(strconv.Itoa(s.Step), num(p.MassFlow), num(p.Velocity), num(p.SupplyLoss),
			num(p.ReturnLoss), num(p.TempOut), num(p.HeatLoss))
	}
	_, err = fmt.Fprintf(w, "pipe %s\n%s\n", pipeID, t.Render())
	return err
}
