// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"time"

	"github.com/stagehand/stagehand/internal/model"
)

// Store defines the interface for all journal operations in Stagehand.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Run methods
	CreateRun(startedAt time.Time) (int, error)
	FinishRun(id int, status, detail string) error
	GetRun(id int) (*model.Run, error)
	GetLatestRun() (*model.Run, error)
	GetAllRuns() ([]model.Run, error)

	// Step methods
	AddStep(runID int, step model.Step) (int, error)
	GetStepsForRun(runID int) ([]model.Step, error)

	// Artifact methods
	AddArtifact(runID int, artifact model.Artifact) (int, error)
	GetArtifactsForRun(runID int) ([]model.Artifact, error)
	GetLatestArtifactByKind(kind string) (*model.Artifact, error)

	// Audit Log methods
	GetAllAuditLogEntries() ([]model.AuditLogEntry, error)
	LogAction(action string, details string) error

	// Backup methods
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(backup *model.BackupData) error
}
