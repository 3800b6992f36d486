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
	"encoding/json"
	"errors"
	"fmt"

	"imagevault/internal/domain"
)

// SaveResult attaches an analysis result to an image and marks the image
// processed, all in one transaction. At most one result per image: a second
// save fails with *DuplicateResultError and leaves the first untouched.
func (s *Store) SaveResult(ctx context.Context, imageID, folderID int64, data domain.ResultData) (domain.Result, error) {
	now := s.now()
	r := domain.Result{
		ImageID:   imageID,
		FolderID:  folderID,
		Data:      data,
		CreatedAt: now,
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return domain.Result{}, fmt.Errorf("encode result data: %w", err)
	}
	err = s.withTx(ctx, "save_result", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM images WHERE id=?`, imageID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return &NotFoundError{Entity: "image", ID: imageID}
		}
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO results(image_id, folder_id, data, created_at) VALUES(?,?,?,?)`,
			imageID, folderID, string(payload), formatTime(now))
		if err != nil {
			if isUniqueViolation(err, "results.image_id") {
				return &DuplicateResultError{ImageID: imageID}
			}
			return err
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE images SET processed=1, processed_at=? WHERE id=?`, formatTime(now), imageID)
		return err
	})
	if err != nil {
		return domain.Result{}, err
	}
	return r, nil
}

// GetResultByImage returns the result attached to the image, or nil when the
// image has none.
func (s *Store) GetResultByImage(ctx context.Context, imageID int64) (*domain.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, image_id, folder_id, data, created_at FROM results WHERE image_id=?`, imageID)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return &r, nil
}

// ListResultsByFolder returns all results with the given folder id.
func (s *Store) ListResultsByFolder(ctx context.Context, folderID int64) ([]domain.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, image_id, folder_id, data, created_at FROM results WHERE folder_id=?`, folderID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanResult(sc scanner) (domain.Result, error) {
	var r domain.Result
	var payload, created string
	if err := sc.Scan(&r.ID, &r.ImageID, &r.FolderID, &payload, &created); err != nil {
		return domain.Result{}, err
	}
	if err := json.Unmarshal([]byte(payload), &r.Data); err != nil {
		return domain.Result{}, fmt.Errorf("decode result data: %w", err)
	}
	r.CreatedAt = parseTime(created)
	return r, nil
}
