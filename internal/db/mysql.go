// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// This file contains the MySQL implementation of the journal store.
package db // import "github.com/stagehand/stagehand/internal/db"

import (
	"fmt"
	"time"

	"github.com/stagehand/stagehand/internal/model"
	"github.com/uptrace/bun"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLStore is the MySQL implementation of the Store interface.
type MySQLStore struct {
	bun *bun.DB
}

func (s *MySQLStore) CreateRun(startedAt time.Time) (int, error) {
	return CreateRunBun(s.bun, startedAt)
}

func (s *MySQLStore) FinishRun(id int, status, detail string) error {
	err := FinishRunBun(s.bun, id, status, detail)
	if err == nil {
		_ = s.LogAction("FINISH_RUN", fmt.Sprintf("run_id: %d, status: %s", id, status))
	}
	return err
}

func (s *MySQLStore) GetRun(id int) (*model.Run, error) {
	return GetRunBun(s.bun, id)
}

func (s *MySQLStore) GetLatestRun() (*model.Run, error) {
	return GetLatestRunBun(s.bun)
}

func (s *MySQLStore) GetAllRuns() ([]model.Run, error) {
	return GetAllRunsBun(s.bun)
}

func (s *MySQLStore) AddStep(runID int, step model.Step) (int, error) {
	return AddStepBun(s.bun, runID, step)
}

func (s *MySQLStore) GetStepsForRun(runID int) ([]model.Step, error) {
	return GetStepsForRunBun(s.bun, runID)
}

func (s *MySQLStore) AddArtifact(runID int, artifact model.Artifact) (int, error) {
	id, err := AddArtifactBun(s.bun, runID, artifact)
	if err == nil {
		_ = s.LogAction("ADD_ARTIFACT", fmt.Sprintf("kind: %s, path: %s", artifact.Kind, artifact.Path))
	}
	return id, err
}

func (s *MySQLStore) GetArtifactsForRun(runID int) ([]model.Artifact, error) {
	return GetArtifactsForRunBun(s.bun, runID)
}

func (s *MySQLStore) GetLatestArtifactByKind(kind string) (*model.Artifact, error) {
	return GetLatestArtifactByKindBun(s.bun, kind)
}

func (s *MySQLStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return GetAllAuditLogEntriesBun(s.bun)
}

func (s *MySQLStore) LogAction(action string, details string) error {
	return LogActionBun(s.bun, action, details)
}

func (s *MySQLStore) ExportDataForBackup() (*model.BackupData, error) {
	return ExportDataForBackupBun(s.bun)
}

func (s *MySQLStore) ImportDataFromBackup(backup *model.BackupData) error {
	return ImportDataFromBackupBun(s.bun, backup)
}
