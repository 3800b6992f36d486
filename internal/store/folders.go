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
	"database/sql"
	"errors"
	"fmt"

	"imagevault/internal/domain"
)

// FolderPalette is the fixed set of colors a new folder is assigned from.
var FolderPalette = []string{
	"#2196F3", "#4CAF50", "#FF9800", "#9C27B0", "#F44336",
	"#00BCD4", "#8BC34A", "#FFC107", "#673AB7", "#E91E63",
	"#009688", "#CDDC39", "#FF5722", "#3F51B5", "#795548",
}

// FolderPatch carries the mutable folder fields for UpdateFolder. Nil fields
// are left unchanged.
type FolderPatch struct {
	Name        *string
	Description *string
}

const selectFolderCols = `id, name, description, color, image_count, created_at, updated_at`

// CreateFolder creates a new folder with a generated id, zero image count
// and a random palette color. Returns *DuplicateNameError when the name is
// already taken (byte-exact match, enforced by the unique index).
func (s *Store) CreateFolder(ctx context.Context, name, description string) (domain.Folder, error) {
	if name == "" {
		return domain.Folder{}, errors.New("folder name is required")
	}
	now := s.now()
	f := domain.Folder{
		Name:        name,
		Description: description,
		Color:       FolderPalette[s.rnd.Intn(len(FolderPalette))],
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.withTx(ctx, "create_folder", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO folders(name, description, color, image_count, created_at, updated_at) VALUES(?,?,?,0,?,?)`,
			f.Name, f.Description, f.Color, formatTime(now), formatTime(now))
		if err != nil {
			if isUniqueViolation(err, "folders.name") {
				return &DuplicateNameError{Name: name}
			}
			return err
		}
		f.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return domain.Folder{}, err
	}
	return f, nil
}

// ListFolders returns all folders, unordered.
func (s *Store) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectFolderCols+` FROM folders`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFolder returns the folder with the given id.
func (s *Store) GetFolder(ctx context.Context, id int64) (domain.Folder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectFolderCols+` FROM folders WHERE id=?`, id)
	f, err := scanFolder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Folder{}, &NotFoundError{Entity: "folder", ID: id}
	}
	if err != nil {
		return domain.Folder{}, fmt.Errorf("get folder: %w", err)
	}
	return f, nil
}

// UpdateFolder merges the patch into the folder and refreshes updated_at.
// A folder name can never become empty, same as on create.
func (s *Store) UpdateFolder(ctx context.Context, id int64, patch FolderPatch) (domain.Folder, error) {
	if patch.Name != nil && *patch.Name == "" {
		return domain.Folder{}, errors.New("folder name is required")
	}
	var out domain.Folder
	err := s.withTx(ctx, "update_folder", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+selectFolderCols+` FROM folders WHERE id=?`, id)
		f, err := scanFolder(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "folder", ID: id}
		}
		if err != nil {
			return err
		}
		if patch.Name != nil {
			f.Name = *patch.Name
		}
		if patch.Description != nil {
			f.Description = *patch.Description
		}
		f.UpdatedAt = s.now()
		if _, err := tx.ExecContext(ctx,
			`UPDATE folders SET name=?, description=?, updated_at=? WHERE id=?`,
			f.Name, f.Description, formatTime(f.UpdatedAt), id); err != nil {
			if isUniqueViolation(err, "folders.name") {
				return &DuplicateNameError{Name: f.Name}
			}
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return domain.Folder{}, err
	}
	return out, nil
}

// DeleteFolder deletes the folder and cascades: all its images and each
// image's result go with it, in one transaction. No orphan image or result
// survives a completed call.
func (s *Store) DeleteFolder(ctx context.Context, id int64) error {
	return s.withTx(ctx, "delete_folder", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM folders WHERE id=?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "folder", ID: id}
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE folder_id=?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE folder_id=?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM folders WHERE id=?`, id)
		return err
	})
}

// AdjustFolderImageCount shifts the cached image counter by delta and
// refreshes updated_at. Callers deleting an image use this to settle the
// owning folder's count as part of the same logical operation.
func (s *Store) AdjustFolderImageCount(ctx context.Context, id int64, delta int64) error {
	return s.withTx(ctx, "adjust_image_count", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE folders SET image_count=image_count+?, updated_at=? WHERE id=?`,
			delta, formatTime(s.now()), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return &NotFoundError{Entity: "folder", ID: id}
		}
		return nil
	})
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(sc scanner) (domain.Folder, error) {
	var f domain.Folder
	var created, updated string
	if err := sc.Scan(&f.ID, &f.Name, &f.Description, &f.Color, &f.ImageCount, &created, &updated); err != nil {
		return domain.Folder{}, err
	}
	f.CreatedAt = parseTime(created)
	f.UpdatedAt = parseTime(updated)
	return f, nil
}
