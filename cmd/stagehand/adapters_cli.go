// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"time"

	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/model"
)

// facadeStore adapts the db package facade to the db.Store interface so the
// provisioning engine and bundle code can be handed the initialized journal
// without threading the concrete store through the CLI.
type facadeStore struct{}

var _ db.Store = facadeStore{}

func (facadeStore) CreateRun(startedAt time.Time) (int, error) { return db.CreateRun(startedAt) }
func (facadeStore) FinishRun(id int, status, detail string) error {
	return db.FinishRun(id, status, detail)
}
func (facadeStore) GetRun(id int) (*model.Run, error)    { return db.GetRun(id) }
func (facadeStore) GetLatestRun() (*model.Run, error)    { return db.GetLatestRun() }
func (facadeStore) GetAllRuns() ([]model.Run, error)     { return db.GetAllRuns() }
func (facadeStore) AddStep(runID int, step model.Step) (int, error) {
	return db.AddStep(runID, step)
}
func (facadeStore) GetStepsForRun(runID int) ([]model.Step, error) {
	return db.GetStepsForRun(runID)
}
func (facadeStore) AddArtifact(runID int, artifact model.Artifact) (int, error) {
	return db.AddArtifact(runID, artifact)
}
func (facadeStore) GetArtifactsForRun(runID int) ([]model.Artifact, error) {
	return db.GetArtifactsForRun(runID)
}
func (facadeStore) GetLatestArtifactByKind(kind string) (*model.Artifact, error) {
	return db.GetLatestArtifactByKind(kind)
}
func (facadeStore) GetAllAuditLogEntries() ([]model.AuditLogEntry, error) {
	return db.GetAllAuditLogEntries()
}
func (facadeStore) LogAction(action, details string) error { return db.LogAction(action, details) }
func (facadeStore) ExportDataForBackup() (*model.BackupData, error) {
	return db.ExportDataForBackup()
}
func (facadeStore) ImportDataFromBackup(backup *model.BackupData) error {
	return db.ImportDataFromBackup(backup)
}
