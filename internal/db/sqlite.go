// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the SQLite implementation of the journal store.
package db // import "github.com/stagehand/stagehand/internal/db"

import (
	"fmt"
	"time"

	"github.com/stagehand/stagehand/internal/model"
	"github.com/uptrace/bun"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface.
type SqliteStore struct {
	bun *bun.DB
}

// CreateRun records the start of a provisioning run and returns its ID.
func (s *SqliteStore) CreateRun(startedAt time.Time) (int, error) {
	return CreateRunBun(s.bun, startedAt)
}

// FinishRun stamps a run with its final status and finish time.
func (s *SqliteStore) FinishRun(id int, status, detail string) error {
	err := FinishRunBun(s.bun, id, status, detail)
	if err == nil {
		_ = s.LogAction("FINISH_RUN", fmt.Sprintf("run_id: %d, status: %s", id, status))
	}
	return err
}

// GetRun retrieves a single run by ID.
func (s *SqliteStore) GetRun(id int) (*model.Run, error) {
	return GetRunBun(s.bun, id)
}

// GetLatestRun retrieves the most recently started run.
func (s *SqliteStore) GetLatestRun() (*model.Run, error) {
	return GetLatestRunBun(s.bun)
}

// GetAllRuns retrieves all runs, most recent first.
func (s *SqliteStore) GetAllRuns() ([]model.Run, error) {
	return GetAllRunsBun(s.bun)
}

// AddStep records a step outcome for the given run.
func (s *SqliteStore) AddStep(runID int, step model.Step) (int, error) {
	return AddStepBun(s.bun, runID, step)
}

// GetStepsForRun retrieves the steps of a run in execution order.
func (s *SqliteStore) GetStepsForRun(runID int) ([]model.Step, error) {
	return GetStepsForRunBun(s.bun, runID)
}

// AddArtifact records a produced artifact for the given run.
func (s *SqliteStore) AddArtifact(runID int, artifact model.Artifact) (int, error) {
	id, err := AddArtifactBun(s.bun, runID, artifact)
	if err == nil {
		_ = s.LogAction("ADD_ARTIFACT", fmt.Sprintf("kind: %s, path: %s", artifact.Kind, artifact.Path))
	}
	return id, err
}

// GetArtifactsForRun retrieves the artifacts recorded for a run.
func (s *SqliteStore) GetArtifactsForRun(runID int) ([]model.Artifact, error) {
	return GetArtifactsForRunBun(s.bun, runID)
}

// GetLatestArtifactByKind retrieves the most recent artifact of the given kind.
func (s *SqliteStore) GetLatestArtifactByKind(kind string) (*model.Artifact, error) {
	return GetLatestArtifactByKindBun(s.bun, kind)
}

// GetAllAuditLogEntries retrieves all entries from the audit log, most recent first.
func (s *SqliteStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

// LogAction records an audit trail event.
func (s *SqliteStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

// ExportDataForBackup retrieves all data from the database for a backup.
// It uses a transaction to ensure a consistent snapshot of the data.
func (s *SqliteStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}

// ImportDataFromBackup restores the database from a backup data structure.
// It performs a full wipe-and-replace within a single transaction to ensure atomicity.
func (s *SqliteStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportDataFromBackupBun(s.bun, backup)
}
