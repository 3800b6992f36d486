/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package snapshot moves the entire repository contents as one transferable
// unit: export to a tree of folders with their images and results, and
// import with replace-not-merge semantics.
package snapshot

import (
	"context"
	"log/slog"

	"imagevault/internal/domain"
	applog "imagevault/internal/log"
	"imagevault/internal/store"
)

// Engine serializes the whole store to a snapshot and restores snapshots
// back into it.
type Engine struct {
	st *store.Store
	l  *slog.Logger
}

// NewEngine returns an engine bound to the given store.
func NewEngine(st *store.Store) *Engine {
	return &Engine{st: st, l: applog.WithComponent("snapshot")}
}

// Export reads every folder and, for each, every image it owns and every
// result referencing those images. Read-only: no updated_at is touched.
func (e *Engine) Export(ctx context.Context) (domain.Snapshot, error) {
	folders, err := e.st.ListFolders(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap := domain.Snapshot{SchemaVersion: store.SchemaVersion, Folders: []domain.FolderExport{}}
	for _, f := range folders {
		images, err := e.st.ListImagesByFolder(ctx, f.ID)
		if err != nil {
			return domain.Snapshot{}, err
		}
		results, err := e.st.ListResultsByFolder(ctx, f.ID)
		if err != nil {
			return domain.Snapshot{}, err
		}
		snap.Folders = append(snap.Folders, domain.FolderExport{Folder: f, Images: images, Results: results})
	}
	e.l.Info("export complete", slog.Int("folders", len(snap.Folders)))
	return snap, nil
}

// Import replaces all existing data with the snapshot: every collection is
// cleared first, then folders, images and results are recreated with fresh
// identities, relinking foreign keys along the way. Destructive: data not in
// the snapshot is gone afterwards. A failure partway leaves the store
// partially imported; there is no rollback at this level, so callers should
// confirm with the user before starting.
func (e *Engine) Import(ctx context.Context, snap domain.Snapshot) error {
	if err := e.st.ClearAll(ctx); err != nil {
		return err
	}
	for _, fe := range snap.Folders {
		folder, err := e.st.CreateFolder(ctx, fe.Folder.Name, fe.Folder.Description)
		if err != nil {
			return err
		}
		for _, img := range fe.Images {
			created, err := e.st.AddImage(ctx, folder.ID, img.Name, domain.FileUpload{
				Name:     img.OriginalName,
				MimeType: img.MimeType,
				Data:     img.Data,
			}, img.Thumbnail)
			if err != nil {
				return err
			}
			// Relink this image's result, if any, to the fresh ids.
			for _, r := range fe.Results {
				if r.ImageID != img.ID {
					continue
				}
				if _, err := e.st.SaveResult(ctx, created.ID, folder.ID, r.Data); err != nil {
					return err
				}
				break
			}
		}
	}
	e.l.Info("import complete", slog.Int("folders", len(snap.Folders)))
	return nil
}

// ClearAll empties all three collections atomically.
func (e *Engine) ClearAll(ctx context.Context) error {
	return e.st.ClearAll(ctx)
}
