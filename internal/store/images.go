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

// ImagePatch carries the mutable image fields for UpdateImage. Nil fields
// are left unchanged.
type ImagePatch struct {
	Name      *string
	Thumbnail *string
}

const selectImageCols = `id, folder_id, name, original_name, size, mime_type, data, thumbnail, processed, processed_at, created_at`

// AddImage stores a new image in the folder and increments the folder's
// cached image count in the same transaction. Returns *NotFoundError when
// the folder does not exist.
func (s *Store) AddImage(ctx context.Context, folderID int64, name string, file domain.FileUpload, thumbnail string) (domain.Image, error) {
	now := s.now()
	img := domain.Image{
		FolderID:     folderID,
		Name:         name,
		OriginalName: file.Name,
		Size:         int64(len(file.Data)),
		MimeType:     file.MimeType,
		Data:         file.Data,
		Thumbnail:    thumbnail,
		CreatedAt:    now,
	}
	err := s.withTx(ctx, "add_image", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM folders WHERE id=?`, folderID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "folder", ID: folderID}
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO images(folder_id, name, original_name, size, mime_type, data, thumbnail, processed, created_at)
			 VALUES(?,?,?,?,?,?,?,0,?)`,
			img.FolderID, img.Name, img.OriginalName, img.Size, img.MimeType, img.Data, img.Thumbnail, formatTime(now))
		if err != nil {
			return err
		}
		if img.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE folders SET image_count=image_count+1, updated_at=? WHERE id=?`,
			formatTime(now), folderID)
		return err
	})
	if err != nil {
		return domain.Image{}, err
	}
	return img, nil
}

// ListImagesByFolder returns all images with the given folder id.
func (s *Store) ListImagesByFolder(ctx context.Context, folderID int64) ([]domain.Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectImageCols+` FROM images WHERE folder_id=?`, folderID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// GetImage returns the image with the given id.
func (s *Store) GetImage(ctx context.Context, id int64) (domain.Image, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectImageCols+` FROM images WHERE id=?`, id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Image{}, &NotFoundError{Entity: "image", ID: id}
	}
	if err != nil {
		return domain.Image{}, fmt.Errorf("get image: %w", err)
	}
	return img, nil
}

// UpdateImage merges the patch into the image.
func (s *Store) UpdateImage(ctx context.Context, id int64, patch ImagePatch) (domain.Image, error) {
	var out domain.Image
	err := s.withTx(ctx, "update_image", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+selectImageCols+` FROM images WHERE id=?`, id)
		img, err := scanImage(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "image", ID: id}
		}
		if err != nil {
			return err
		}
		if patch.Name != nil {
			img.Name = *patch.Name
		}
		if patch.Thumbnail != nil {
			img.Thumbnail = *patch.Thumbnail
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE images SET name=?, thumbnail=? WHERE id=?`, img.Name, img.Thumbnail, id); err != nil {
			return err
		}
		out = img
		return nil
	})
	if err != nil {
		return domain.Image{}, err
	}
	return out, nil
}

// DeleteImage deletes the image and any attached result in one transaction
// and returns the owning folder's id. The caller is responsible for settling
// the folder's image count via AdjustFolderImageCount as part of the same
// logical operation.
func (s *Store) DeleteImage(ctx context.Context, id int64) (int64, error) {
	var folderID int64
	err := s.withTx(ctx, "delete_image", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT folder_id FROM images WHERE id=?`, id).Scan(&folderID)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "image", ID: id}
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE image_id=?`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM images WHERE id=?`, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return folderID, nil
}

func scanImage(sc scanner) (domain.Image, error) {
	var img domain.Image
	var created string
	var processed int64
	var processedAt, thumbnail sql.NullString
	if err := sc.Scan(&img.ID, &img.FolderID, &img.Name, &img.OriginalName, &img.Size, &img.MimeType,
		&img.Data, &thumbnail, &processed, &processedAt, &created); err != nil {
		return domain.Image{}, err
	}
	img.Thumbnail = thumbnail.String
	img.Processed = processed != 0
	if processedAt.Valid {
		t := parseTime(processedAt.String)
		img.ProcessedAt = &t
	}
	img.CreatedAt = parseTime(created)
	return img, nil
}
