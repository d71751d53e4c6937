package model

import (
	"fmt"
	"time"
)

// Step statuses recorded in the journal.
const (
	StepOK      = "ok"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// Artifact kinds.
const (
	ArtifactCert = "cert"
	ArtifactKey  = "key"
	ArtifactVenv = "venv"
)

// Run represents one invocation of the provisioning pipeline.
type Run struct {
	ID         int
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Detail     string
}

// Step is the recorded outcome of a single pipeline step within a run.
type Step struct {
	ID       int
	RunID    int
	Name     string
	Status   string
	Detail   string
	Duration time.Duration
}

// String returns the step in "name: status" form.
func (s Step) String() string {
	return fmt.Sprintf("%s: %s", s.Name, s.Status)
}

// Artifact is a file or directory produced by provisioning, e.g. the
// self-signed certificate, its private key, or the virtual environment.
type Artifact struct {
	ID          int
	RunID       int
	Kind        string
	Path        string
	Fingerprint string
	NotAfter    time.Time
	CreatedAt   time.Time
}

// AuditLogEntry is a single row from the audit trail.
type AuditLogEntry struct {
	ID        int
	Timestamp string
	Username  string
	Action    string
	Details   string
}

// Tool describes one entry of the tool verification manifest.
type Tool struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path,omitempty"`
	Required  bool   `yaml:"required,omitempty"`
	Helper    string `yaml:"helper,omitempty"`
	Installed bool   `yaml:"-"`
}

// String returns the tool name, with the explicit path when one is set.
func (t Tool) String() string {
	if t.Path != "" {
		return fmt.Sprintf("%s (%s)", t.Name, t.Path)
	}
	return t.Name
}

// BackupData aggregates the whole journal for support-bundle export.
type BackupData struct {
	Runs      []Run           `json:"runs"`
	Steps     []Step          `json:"steps"`
	Artifacts []Artifact      `json:"artifacts"`
	AuditLog  []AuditLogEntry `json:"audit_log"`
}
