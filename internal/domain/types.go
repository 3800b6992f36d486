/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package domain defines the core data model: folders that own images, and
// the analysis results attached to images. JSON tags follow the export file
// format, so these structs serialize directly into snapshots.
package domain

import "time"

// Folder is a named grouping that owns zero or more images.
// ImageCount is a denormalized cache of owned images, maintained
// incrementally by the store; ComputeStats recounts authoritatively.
type Folder struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	ImageCount  int64     `json:"imageCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Image is one uploaded picture plus its derived thumbnail and processing
// status. Data holds the raw binary payload; Thumbnail is a small rendered
// preview encoded as a data URL so it stays portable across export/import.
type Image struct {
	ID           int64      `json:"id"`
	FolderID     int64      `json:"folderId"`
	Name         string     `json:"name"`
	OriginalName string     `json:"originalName"`
	Size         int64      `json:"size"`
	MimeType     string     `json:"mimeType"`
	Data         []byte     `json:"file,omitempty"`
	Thumbnail    string     `json:"thumbnail,omitempty"`
	Processed    bool       `json:"processed"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// FileUpload describes a file accepted into a folder. Size is derived from
// the payload length when the image record is created.
type FileUpload struct {
	Name     string
	MimeType string
	Data     []byte
}

// Result is the structured analysis payload produced by the analysis service
// for exactly one image. FolderID is a denormalized copy of the owning
// image's folder, kept for folder-scoped queries without a join.
// A result is created once and never mutated.
type Result struct {
	ID        int64      `json:"id"`
	ImageID   int64      `json:"imageId"`
	FolderID  int64      `json:"folderId"`
	Data      ResultData `json:"result"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Stats are the authoritative aggregate counts, computed by scanning every
// folder's image list rather than trusting the cached counters.
type Stats struct {
	TotalFolders      int `json:"totalFolders"`
	TotalImages       int `json:"totalImages"`
	ProcessedImages   int `json:"processedImages"`
	UnprocessedImages int `json:"unprocessedImages"`
}

// SearchGroup is one folder's portion of a search result: the folder and the
// images in it whose name or original name matched the query.
type SearchGroup struct {
	Folder Folder  `json:"folder"`
	Images []Image `json:"images"`
}
