// Copyright (c) 2026 Stagehand Authors
// Stagehand - test bench provisioning for S3 services
// This source code is licensed under the MIT license found in the LICENSE file.

// Package bundle exports and restores the provisioning journal as a
// zstd-compressed JSON support bundle.
package bundle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/stagehand/stagehand/internal/db"
	"github.com/stagehand/stagehand/internal/model"
)

// Export pulls the whole journal from the store.
func Export(st db.Store) (*model.BackupData, error) {
	return st.ExportDataForBackup()
}

// Write writes compressed JSON bundle data to writer.
func Write(data *model.BackupData, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode bundle: %w", err)
	}
	return zw.Close()
}

// Read decodes a zstd-compressed JSON bundle from reader.
func Read(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &data, nil
}

// Restore reads a bundle from reader and imports it via the Store, replacing
// the journal contents.
func Restore(r io.Reader, st db.Store) error {
	data, err := Read(r)
	if err != nil {
		return err
	}
	return st.ImportDataFromBackup(data)
}

// WriteFile exports the journal and writes the bundle to path.
func WriteFile(path string, st db.Store) error {
	data, err := Export(st)
	if err != nil {
		return fmt.Errorf("export journal: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle file: %w", err)
	}
	if err := Write(data, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// RestoreFile reads a bundle file and imports it via the Store.
func RestoreFile(path string, st db.Store) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open bundle file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Restore(f, st)
}
