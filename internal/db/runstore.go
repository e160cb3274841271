package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sounding.report/internal/inversion"
)

// Run is one persisted inversion run.
type Run struct {
	RunID      string `json:"run_id"`
	CreatedAt  int64  `json:"created_at"`
	DataPath   string `json:"data_path"`
	ConfigJSON string `json:"config_json,omitempty"`
}

// RunStore persists inversion runs and their per-iteration snapshots.
type RunStore struct {
	db *DB
}

// NewRunStore creates a store over an opened, migrated database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun inserts a run row and returns its generated ID.
func (s *RunStore) CreateRun(dataPath string, configJSON []byte) (string, error) {
	runID := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, created_at, data_path, config_json) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UnixNano(), dataPath, string(configJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return runID, nil
}

// Runs lists persisted runs, newest first.
func (s *RunStore) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, created_at, data_path, config_json FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.CreatedAt, &r.DataPath, &r.ConfigJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveIteration persists one outer-iteration snapshot for a run.
func (s *RunStore) SaveIteration(runID string, rec inversion.IterationRecord) error {
	modelJSON, err := json.Marshal(rec.Model)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	predictedJSON, err := json.Marshal(rec.Predicted)
	if err != nil {
		return fmt.Errorf("marshal predicted: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO run_iterations (run_id, iteration, beta, phi_d, phi_m, irls_active, model_json, predicted_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Iteration, rec.Beta, rec.PhiD, rec.PhiM, boolToInt(rec.IRLSActive), string(modelJSON), string(predictedJSON),
	)
	if err != nil {
		return fmt.Errorf("insert iteration %d: %w", rec.Iteration, err)
	}
	return nil
}

// Iterations returns a run's snapshots in iteration order.
func (s *RunStore) Iterations(runID string) ([]inversion.IterationRecord, error) {
	rows, err := s.db.Query(
		`SELECT iteration, beta, phi_d, phi_m, irls_active, model_json, predicted_json
		 FROM run_iterations WHERE run_id = ? ORDER BY iteration`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query iterations: %w", err)
	}
	defer rows.Close()

	var out []inversion.IterationRecord
	for rows.Next() {
		var (
			rec           inversion.IterationRecord
			irls          int
			modelJSON     string
			predictedJSON string
		)
		if err := rows.Scan(&rec.Iteration, &rec.Beta, &rec.PhiD, &rec.PhiM, &irls, &modelJSON, &predictedJSON); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		rec.IRLSActive = irls != 0
		if err := json.Unmarshal([]byte(modelJSON), &rec.Model); err != nil {
			return nil, fmt.Errorf("unmarshal model: %w", err)
		}
		if err := json.Unmarshal([]byte(predictedJSON), &rec.Predicted); err != nil {
			return nil, fmt.Errorf("unmarshal predicted: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// IterationSaver binds a run ID to the store so it satisfies the inversion's
// snapshot-persistence contract.
type IterationSaver struct {
	Store *RunStore
	RunID string
}

// SaveIteration implements inversion.SnapshotSaver.
func (s *IterationSaver) SaveIteration(rec inversion.IterationRecord) error {
	return s.Store.SaveIteration(s.RunID, rec)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
