// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the PostgreSQL implementation of the journal store.
package db // import "github.com/stagehand/stagehand/internal/db"

import (
	"fmt"
	"time"

	"github.com/stagehand/stagehand/internal/model"
	"github.com/uptrace/bun"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
// The Bun dialect takes care of placeholder rewriting, so the shared Bun
// helpers work unchanged across backends.
type PostgresStore struct {
	bun *bun.DB
}

func (s *PostgresStore) CreateRun(startedAt time.Time) (int, error) {
	return CreateRunBun(s.bun, startedAt)
}

func (s *PostgresStore) FinishRun(id int, status, detail string) error {
	err := FinishRunBun(s.bun, id, status, detail)
	if err == nil {
		_ = s.LogAction("FINISH_RUN", fmt.Sprintf("run_id: %d, status: %s", id, status))
	}
	return err
}

func (s *PostgresStore) GetRun(id int) (*model.Run, error) {
	return GetRunBun(s.bun, id)
}

func (s *PostgresStore) GetLatestRun() (*model.Run, error) {
	return GetLatestRunBun(s.bun)
}

func (s *PostgresStore) GetAllRuns() ([]model.Run, error) {
	return GetAllRunsBun(s.bun)
}

func (s *PostgresStore) AddStep(runID int, step model.Step) (int, error) {
	return AddStepBun(s.bun, runID, step)
}

func (s *PostgresStore) GetStepsForRun(runID int) ([]model.Step, error) {
	return GetStepsForRunBun(s.bun, runID)
}

func (s *PostgresStore) AddArtifact(runID int, artifact model.Artifact) (int, error) {
	id, err := AddArtifactBun(s.bun, runID, artifact)
	if err == nil {
		_ = s.LogAction("ADD_ARTIFACT", fmt.Sprintf("kind: %s, path: %s", artifact.Kind, artifact.Path))
	}
	return id, err
}

func (s *PostgresStore) GetArtifactsForRun(runID int) ([]model.Artifact, error) {
	return GetArtifactsForRunBun(s.bun, runID)
}

func (s *PostgresStore) GetLatestArtifactByKind(kind string) (*model.Artifact, error) {
	return GetLatestArtifactByKindBun(s.bun, kind)
}

func (s *PostgresStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

func (s *PostgresStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

func (s *PostgresStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}

func (s *PostgresStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportDataFromBackupBun(s.bun, backup)
}
