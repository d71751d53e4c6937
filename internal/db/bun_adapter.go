// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/stagehand/stagehand/internal/model"
	"github.com/uptrace/bun"
)

// RunModel maps the `runs` table for Bun queries.
type RunModel struct {
	bun.BaseModel `bun:"table:runs"`
	ID            int          `bun:"id,pk,autoincrement"`
	StartedAt     time.Time    `bun:"started_at"`
	FinishedAt    sql.NullTime `bun:"finished_at"`
	Status        string       `bun:"status"`
	Detail        string       `bun:"detail"`
}

// StepModel maps the `steps` table.
type StepModel struct {
	bun.BaseModel `bun:"table:steps"`
	ID            int    `bun:"id,pk,autoincrement"`
	RunID         int    `bun:"run_id"`
	Name          string `bun:"name"`
	Status        string `bun:"status"`
	Detail        string `bun:"detail"`
	DurationMS    int64  `bun:"duration_ms"`
}

// ArtifactModel maps the `artifacts` table.
type ArtifactModel struct {
	bun.BaseModel `bun:"table:artifacts"`
	ID            int          `bun:"id,pk,autoincrement"`
	RunID         int          `bun:"run_id"`
	Kind          string       `bun:"kind"`
	Path          string       `bun:"path"`
	Fingerprint   string       `bun:"fingerprint"`
	NotAfter      sql.NullTime `bun:"not_after"`
	CreatedAt     time.Time    `bun:"created_at"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

func runModelToModel(r RunModel) model.Run {
	m := model.Run{ID: r.ID, StartedAt: r.StartedAt, Status: r.Status, Detail: r.Detail}
	if r.FinishedAt.Valid {
		m.FinishedAt = r.FinishedAt.Time
	}
	return m
}

func stepModelToModel(s StepModel) model.Step {
	return model.Step{
		ID:       s.ID,
		RunID:    s.RunID,
		Name:     s.Name,
		Status:   s.Status,
		Detail:   s.Detail,
		Duration: time.Duration(s.DurationMS) * time.Millisecond,
	}
}

func artifactModelToModel(a ArtifactModel) model.Artifact {
	m := model.Artifact{
		ID:          a.ID,
		RunID:       a.RunID,
		Kind:        a.Kind,
		Path:        a.Path,
		Fingerprint: a.Fingerprint,
		CreatedAt:   a.CreatedAt,
	}
	if a.NotAfter.Valid {
		m.NotAfter = a.NotAfter.Time
	}
	return m
}

// CreateRunBun inserts a new run in the running state and returns its ID.
func CreateRunBun(bdb *bun.DB, startedAt time.Time) (int, error) {
	ctx := context.Background()
	rm := RunModel{StartedAt: startedAt, Status: model.RunRunning}
	if _, err := bdb.NewInsert().Model(&rm).Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return rm.ID, nil
}

// FinishRunBun stamps a run with its final status and finish time.
func FinishRunBun(bdb *bun.DB, id int, status, detail string) error {
	ctx := context.Background()
	res, err := ExecRaw(ctx, bdb, "UPDATE runs SET finished_at = ?, status = ?, detail = ? WHERE id = ?",
		time.Now().UTC(), status, detail, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d not found", id)
	}
	return nil
}

// GetRunBun retrieves a single run by ID. It returns (nil, nil) when the run
// does not exist.
func GetRunBun(bdb *bun.DB, id int) (*model.Run, error) {
	ctx := context.Background()
	var rm RunModel
	err := bdb.NewSelect().Model(&rm).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m := runModelToModel(rm)
	return &m, nil
}

// GetLatestRunBun retrieves the most recently started run, or (nil, nil) when
// the journal is empty.
func GetLatestRunBun(bdb *bun.DB) (*model.Run, error) {
	ctx := context.Background()
	var rm RunModel
	err := bdb.NewSelect().Model(&rm).OrderExpr("started_at DESC").Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m := runModelToModel(rm)
	return &m, nil
}

// GetAllRunsBun retrieves all runs, most recent first.
func GetAllRunsBun(bdb *bun.DB) ([]model.Run, error) {
	ctx := context.Background()
	var rms []RunModel
	if err := bdb.NewSelect().Model(&rms).OrderExpr("started_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Run, 0, len(rms))
	for _, r := range rms {
		out = append(out, runModelToModel(r))
	}
	return out, nil
}

// AddStepBun records a step outcome for the given run.
func AddStepBun(bdb *bun.DB, runID int, step model.Step) (int, error) {
	ctx := context.Background()
	sm := StepModel{
		RunID:      runID,
		Name:       step.Name,
		Status:     step.Status,
		Detail:     step.Detail,
		DurationMS: step.Duration.Milliseconds(),
	}
	if _, err := bdb.NewInsert().Model(&sm).Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return sm.ID, nil
}

// GetStepsForRunBun retrieves the steps of a run in insertion order.
func GetStepsForRunBun(bdb *bun.DB, runID int) ([]model.Step, error) {
	ctx := context.Background()
	var sms []StepModel
	if err := bdb.NewSelect().Model(&sms).Where("run_id = ?", runID).OrderExpr("id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Step, 0, len(sms))
	for _, s := range sms {
		out = append(out, stepModelToModel(s))
	}
	return out, nil
}

// AddArtifactBun records a produced artifact for the given run.
func AddArtifactBun(bdb *bun.DB, runID int, artifact model.Artifact) (int, error) {
	ctx := context.Background()
	am := ArtifactModel{
		RunID:       runID,
		Kind:        artifact.Kind,
		Path:        artifact.Path,
		Fingerprint: artifact.Fingerprint,
		CreatedAt:   time.Now().UTC(),
	}
	if !artifact.NotAfter.IsZero() {
		am.NotAfter = sql.NullTime{Time: artifact.NotAfter, Valid: true}
	}
	if _, err := bdb.NewInsert().Model(&am).Exec(ctx); err != nil {
		return 0, MapDBError(err)
	}
	return am.ID, nil
}

// GetArtifactsForRunBun retrieves the artifacts recorded for a run.
func GetArtifactsForRunBun(bdb *bun.DB, runID int) ([]model.Artifact, error) {
	ctx := context.Background()
	var ams []ArtifactModel
	if err := bdb.NewSelect().Model(&ams).Where("run_id = ?", runID).OrderExpr("id").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Artifact, 0, len(ams))
	for _, a := range ams {
		out = append(out, artifactModelToModel(a))
	}
	return out, nil
}

// GetLatestArtifactByKindBun retrieves the most recent artifact of the given
// kind, or (nil, nil) when none was ever recorded.
func GetLatestArtifactByKindBun(bdb *bun.DB, kind string) (*model.Artifact, error) {
	ctx := context.Background()
	var am ArtifactModel
	err := bdb.NewSelect().Model(&am).Where("kind = ?", kind).OrderExpr("id DESC").Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	m := artifactModelToModel(am)
	return &m, nil
}

// GetAllAuditLogEntriesBun retrieves audit log entries ordered by timestamp desc.
func GetAllAuditLogEntriesBun(bdb *bun.DB) ([]model.AuditLogEntry, error) {
	ctx := context.Background()
	var am []AuditLogModel
	if err := bdb.NewSelect().Model(&am).OrderExpr("timestamp DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(am))
	for _, a := range am {
		out = append(out, model.AuditLogEntry{ID: a.ID, Timestamp: a.Timestamp, Username: a.Username, Action: a.Action, Details: a.Details})
	}
	return out, nil
}

// LogActionBun inserts an audit log entry with the current OS user.
func LogActionBun(bdb *bun.DB, action string, details string) error {
	ctx := context.Background()
	curUser, err := user.Current()
	username := "unknown"
	if err == nil {
		if parts := strings.Split(curUser.Username, `\`); len(parts) > 1 {
			username = parts[1]
		} else {
			username = curUser.Username
		}
	}
	_, err = ExecRaw(ctx, bdb, "INSERT INTO audit_log (username, action, details) VALUES (?, ?, ?)", username, action, details)
	return MapDBError(err)
}

// ExportDataForBackupBun exports all tables' data into a model.BackupData using a Bun transaction.
func ExportDataForBackupBun(bdb *bun.DB) (*model.BackupData, error) {
	ctx := context.Background()
	var backup *model.BackupData
	err := WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{}

		// Runs
		var rms []RunModel
		if err := tx.NewSelect().Model(&rms).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, r := range rms {
			backup.Runs = append(backup.Runs, runModelToModel(r))
		}

		// Steps
		var sms []StepModel
		if err := tx.NewSelect().Model(&sms).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, s := range sms {
			backup.Steps = append(backup.Steps, stepModelToModel(s))
		}

		// Artifacts
		var ams []ArtifactModel
		if err := tx.NewSelect().Model(&ams).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, a := range ams {
			backup.Artifacts = append(backup.Artifacts, artifactModelToModel(a))
		}

		// Audit log
		var als []AuditLogModel
		if err := tx.NewSelect().Model(&als).OrderExpr("id").Scan(ctx); err != nil {
			return err
		}
		for _, a := range als {
			backup.AuditLog = append(backup.AuditLog, model.AuditLogEntry{ID: a.ID, Timestamp: a.Timestamp, Username: a.Username, Action: a.Action, Details: a.Details})
		}

		return nil
	})
	return backup, err
}

// ImportDataFromBackupBun performs a full wipe-and-replace using a Bun transaction.
func ImportDataFromBackupBun(bdb *bun.DB, backup *model.BackupData) error {
	ctx := context.Background()
	return WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		// Wipe tables
		tables := []string{"audit_log", "artifacts", "steps", "runs"}
		for _, t := range tables {
			if _, err := ExecRaw(ctx, tx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
				return err
			}
		}

		// Runs
		for _, r := range backup.Runs {
			var finished interface{}
			if !r.FinishedAt.IsZero() {
				finished = r.FinishedAt
			}
			if _, err := ExecRaw(ctx, tx, "INSERT INTO runs (id, started_at, finished_at, status, detail) VALUES (?, ?, ?, ?, ?)",
				r.ID, r.StartedAt, finished, r.Status, r.Detail); err != nil {
				return MapDBError(err)
			}
		}
		// Steps
		for _, s := range backup.Steps {
			if _, err := ExecRaw(ctx, tx, "INSERT INTO steps (id, run_id, name, status, detail, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
				s.ID, s.RunID, s.Name, s.Status, s.Detail, s.Duration.Milliseconds()); err != nil {
				return MapDBError(err)
			}
		}
		// Artifacts
		for _, a := range backup.Artifacts {
			var notAfter interface{}
			if !a.NotAfter.IsZero() {
				notAfter = a.NotAfter
			}
			if _, err := ExecRaw(ctx, tx, "INSERT INTO artifacts (id, run_id, kind, path, fingerprint, not_after, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
				a.ID, a.RunID, a.Kind, a.Path, a.Fingerprint, notAfter, a.CreatedAt); err != nil {
				return MapDBError(err)
			}
		}
		// Audit log: convert RFC3339 timestamps to time.Time when possible so MySQL accepts them.
		for _, ale := range backup.AuditLog {
			var ts interface{} = ale.Timestamp
			if ale.Timestamp != "" {
				if parsed, err := time.Parse(time.RFC3339, ale.Timestamp); err == nil {
					ts = parsed
				} else {
					s := ale.Timestamp
					s = strings.Replace(s, "T", " ", 1)
					s = strings.TrimSuffix(s, "Z")
					ts = s
				}
			}
			if _, err := ExecRaw(ctx, tx, "INSERT INTO audit_log (id, timestamp, username, action, details) VALUES (?, ?, ?, ?, ?)",
				ale.ID, ts, ale.Username, ale.Action, ale.Details); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}
