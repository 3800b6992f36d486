/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"fmt"
	"strings"

	"imagevault/internal/domain"
)

// ComputeStats computes aggregate counts by scanning every folder's image
// list. It is authoritative even if the cached per-folder counters have
// drifted, and exists precisely to verify or repair them.
func (s *Store) ComputeStats(ctx context.Context) (domain.Stats, error) {
	folders, err := s.ListFolders(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	stats := domain.Stats{TotalFolders: len(folders)}
	for _, f := range folders {
		var total, processed int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(SUM(processed), 0) FROM images WHERE folder_id=?`, f.ID).
			Scan(&total, &processed)
		if err != nil {
			return domain.Stats{}, fmt.Errorf("count images for folder %d: %w", f.ID, err)
		}
		stats.TotalImages += total
		stats.ProcessedImages += processed
	}
	stats.UnprocessedImages = stats.TotalImages - stats.ProcessedImages
	return stats, nil
}

// SearchImages matches query case-insensitively against image names and
// original file names and returns the hits grouped by owning folder.
// Folders with no matching image are omitted.
func (s *Store) SearchImages(ctx context.Context, query string) ([]domain.SearchGroup, error) {
	folders, err := s.ListFolders(ctx)
	if err != nil {
		return nil, err
	}
	// Case folding happens in Go: SQLite's lower() folds ASCII only, so
	// e.g. "ÉCOLE" would never match "école" if the database compared.
	needle := strings.ToLower(query)
	var out []domain.SearchGroup
	for _, f := range folders {
		images, err := s.ListImagesByFolder(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("search folder %d: %w", f.ID, err)
		}
		var matches []domain.Image
		for _, img := range images {
			if strings.Contains(strings.ToLower(img.Name), needle) ||
				strings.Contains(strings.ToLower(img.OriginalName), needle) {
				matches = append(matches, img)
			}
		}
		if len(matches) > 0 {
			out = append(out, domain.SearchGroup{Folder: f, Images: matches})
		}
	}
	return out, nil
}
