/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// FolderExport is one folder subtree of a snapshot: the folder record, every
// image it owns, and every result referencing those images.
type FolderExport struct {
	Folder  Folder   `json:"folder"`
	Images  []Image  `json:"images"`
	Results []Result `json:"results"`
}

// Snapshot is a complete, self-contained serialization of all folders,
// images and results. Record ids inside a snapshot are only meaningful for
// relinking during import; fresh identities are assigned on restore.
type Snapshot struct {
	Folders       []FolderExport `json:"folders"`
	SchemaVersion int            `json:"version"`
}

// BackupFile is the on-disk export document. Timestamp is an RFC3339 string
// as written by the exporting app. Settings carries the application settings
// as exported; Store may be absent, in which case import leaves storage
// untouched.
type BackupFile struct {
	Timestamp string         `json:"timestamp"`
	Version   string         `json:"version"`
	Settings  map[string]any `json:"settings,omitempty"`
	Store     *Snapshot      `json:"store,omitempty"`
}
