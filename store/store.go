// Package store archives batch results in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dhsim/model"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

type RunInfo struct {
	ID        string
	Steps     int
	Failed    int
	CreatedAt time.Time
}

type GlobalSample struct {
	Step         int
	HeatLoss     float64
	PressureLoss float64
}

type PipeSample struct {
	Step  int
	State model.PipeState
}

// New opens or creates the database at path and migrates the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		steps INTEGER NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS step_results (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		heat_loss REAL NOT NULL,
		pressure_loss REAL NOT NULL,
		PRIMARY KEY (run_id, step),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS pipe_results (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		pipe_id TEXT NOT NULL,
		mass_flow REAL NOT NULL,
		velocity REAL NOT NULL,
		reynolds REAL NOT NULL,
		friction REAL NOT NULL,
		dist_loss REAL NOT NULL,
		loc_loss REAL NOT NULL,
		hydro_loss REAL NOT NULL,
		supply_loss REAL NOT NULL,
		return_loss REAL NOT NULL,
		temp_in REAL NOT NULL,
		temp_out REAL NOT NULL,
		return_temp_in REAL NOT NULL,
		return_temp_out REAL NOT NULL,
		heat_loss REAL NOT NULL,
		PRIMARY KEY (run_id, step, pipe_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS node_results (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		node_id TEXT NOT NULL,
		temp_inlet REAL NOT NULL,
		temp_return REAL NOT NULL,
		PRIMARY KEY (run_id, step, node_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS producer_results (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		producer_id TEXT NOT NULL,
		mass_flow REAL NOT NULL,
		pressure_head REAL NOT NULL,
		critical_consumer TEXT,
		pump_power REAL NOT NULL,
		PRIMARY KEY (run_id, step, producer_id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS step_failures (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		error TEXT NOT NULL,
		PRIMARY KEY (run_id, step),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_pipe_results_pipe ON pipe_results(run_id, pipe_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun stores a whole batch in one transaction.
func (s *Store) SaveRun(ctx context.Context, res *model.Results) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, steps, failed) VALUES (?, ?, ?)`,
		res.RunID, len(res.Steps), len(res.Failures)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stepStmt, err := tx.PrepareContext(ctx, `INSERT INTO step_results (run_id, step, heat_loss, pressure_loss) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stepStmt.Close()
	pipeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pipe_results (run_id, step, pipe_id, mass_flow, velocity, reynolds, friction,
			dist_loss, loc_loss, hydro_loss, supply_loss, return_loss,
			temp_in, temp_out, return_temp_in, return_temp_out, heat_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer pipeStmt.Close()
	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO node_results (run_id, step, node_id, temp_inlet, temp_return) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	prodStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO producer_results (run_id, step, producer_id, mass_flow, pressure_head, critical_consumer, pump_power)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer prodStmt.Close()

	for _, st := range res.Steps {
		if st == nil {
			continue
		}
		if _, err := stepStmt.ExecContext(ctx, res.RunID, st.Step, st.HeatLoss, st.PressureLoss); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", st.Step, err)
		}
		for id, p := range st.Pipes {
			if _, err := pipeStmt.ExecContext(ctx, res.RunID, st.Step, id, p.MassFlow, p.Velocity, p.Reynolds, p.Friction,
				p.DistLoss, p.LocLoss, p.HydroLoss, p.SupplyLoss, p.ReturnLoss,
				p.TempIn, p.TempOut, p.ReturnTempIn, p.ReturnTempOut, p.HeatLoss); err != nil {
				return fmt.Errorf("failed to insert pipe %s: %w", id, err)
			}
		}
		for id, n := range st.Nodes {
			if _, err := nodeStmt.ExecContext(ctx, res.RunID, st.Step, id, n.TempInlet, n.TempReturn); err != nil {
				return fmt.Errorf("failed to insert node %s: %w", id, err)
			}
		}
		for id, p := range st.Producers {
			if _, err := prodStmt.ExecContext(ctx, res.RunID, st.Step, id, p.MassFlow, p.PressureHead, p.CriticalConsumer, p.PumpPower); err != nil {
				return fmt.Errorf("failed to insert producer %s: %w", id, err)
			}
		}
	}
	for _, f := range res.Failures {
		if _, err := tx.ExecContext(ctx, `INSERT INTO step_failures (run_id, step, error) VALUES (?, ?, ?)`,
			res.RunID, f.Step, f.Error); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	log.WithFields(log.Fields{
		"run":   res.RunID,
		"steps": len(res.Steps),
		"cost":  time.Since(start),
	}).Info("计算结果已存档")
	return nil
}

func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, steps, failed, created_at FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.Steps, &r.Failed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadGlobal returns the network totals of a run ordered by step.
func (s *Store) LoadGlobal(ctx context.Context, runID string) ([]GlobalSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, heat_loss, pressure_loss FROM step_results WHERE run_id = ? ORDER BY step
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var out []GlobalSample
	for rows.Next() {
		var g GlobalSample
		if err := rows.Scan(&g.Step, &g.HeatLoss, &g.PressureLoss); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// LoadPipeSeries returns the state of one pipe over all solved steps of a run.
func (s *Store) LoadPipeSeries(ctx context.Context, runID, pipeID string) ([]PipeSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, mass_flow, velocity, reynolds, friction, dist_loss, loc_loss, hydro_loss,
			supply_loss, return_loss, temp_in, temp_out, return_temp_in, return_temp_out, heat_loss
		FROM pipe_results WHERE run_id = ? AND pipe_id = ? ORDER BY step
	`, runID, pipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pipe %s: %w", pipeID, err)
	}
	defer rows.Close()

	var out []PipeSample
	for rows.Next() {
		var ps PipeSample
		p := &ps.State
		if err := rows.Scan(&ps.Step, &p.MassFlow, &p.Velocity, &p.Reynolds, &p.Friction, &p.DistLoss, &p.LocLoss, &p.HydroLoss,
			&p.SupplyLoss, &p.ReturnLoss, &p.TempIn, &p.TempOut, &p.ReturnTempIn, &p.ReturnTempOut, &p.HeatLoss); err != nil {
			return nil, fmt.Errorf("failed to scan pipe %s: %w", pipeID, err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *Store) LoadFailures(ctx context.Context, runID string) ([]model.StepFailure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT step, error FROM step_failures WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var out []model.StepFailure
	for rows.Next() {
		var f model.StepFailure
		if err := rows.Scan(&f.Step, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
