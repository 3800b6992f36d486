/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package snapshot

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"imagevault/internal/domain"
	"imagevault/internal/version"
)

// backupSchema describes the on-disk backup document. Validation happens on
// read so a truncated or hand-edited file is rejected before any import
// touches the store.
const backupSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["timestamp", "version"],
  "properties": {
    "timestamp": {"type": "string"},
    "version": {"type": "string"},
    "settings": {"type": "object"},
    "store": {
      "type": "object",
      "required": ["folders"],
      "properties": {
        "version": {"type": "integer", "minimum": 1},
        "folders": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["folder"],
            "properties": {
              "folder": {
                "type": "object",
                "required": ["name"],
                "properties": {
                  "name": {"type": "string", "minLength": 1},
                  "description": {"type": "string"},
                  "color": {"type": "string"}
                }
              },
              "images": {"type": "array"},
              "results": {"type": "array"}
            }
          }
        }
      }
    }
  }
}`

// ValidateBackup checks a raw backup document against the schema and returns
// a single error describing every violation.
func ValidateBackup(data []byte) error {
	res, err := gojsonschema.Validate(gojsonschema.NewStringLoader(backupSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate backup: %w", err)
	}
	if res.Valid() {
		return nil
	}
	var b strings.Builder
	for i, e := range res.Errors() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.String())
	}
	return fmt.Errorf("invalid backup document: %s", b.String())
}

// NewBackupFile wraps a snapshot and the caller's settings map into a backup
// document stamped with the current time and app version.
func NewBackupFile(snap domain.Snapshot, settings map[string]any) domain.BackupFile {
	return domain.BackupFile{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.String(),
		Settings:  settings,
		Store:     &snap,
	}
}

// WriteBackupFile writes the backup document to path. The write goes to a
// temp file in the same directory first and is renamed over the target, so a
// crash mid-write never leaves a half-written backup behind.
func WriteBackupFile(path string, bf domain.BackupFile) error {
	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}
	data = append(data, '\n')
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp backup: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace backup: %w", rerr)
	}
	return nil
}

// ReadBackupFile loads and validates a backup document. Files written by
// settings-only exports carry no "store" key; those come back with a nil
// Store and callers decide whether that is acceptable.
func ReadBackupFile(path string) (domain.BackupFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.BackupFile{}, fmt.Errorf("read backup: %w", err)
	}
	if err := ValidateBackup(data); err != nil {
		return domain.BackupFile{}, err
	}
	var bf domain.BackupFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return domain.BackupFile{}, fmt.Errorf("parse backup: %w", err)
	}
	return bf, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}
