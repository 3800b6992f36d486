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
	"fmt"
	"strings"
)

// StoreOpenError means the underlying database could not be opened or its
// schema could not be created/upgraded. It is fatal to every dependent
// operation until the open is retried.
type StoreOpenError struct {
	Path string
	Err  error
}

func (e *StoreOpenError) Error() string {
	return fmt.Sprintf("open store %s: %v", e.Path, e.Err)
}

func (e *StoreOpenError) Unwrap() error { return e.Err }

// NotFoundError means a referenced id does not exist. Recoverable; surfaced
// to the caller as is.
type NotFoundError struct {
	Entity string // "folder", "image" or "result"
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// DuplicateNameError means a folder name is already in use. Folder names are
// unique case-sensitively, enforced by the store's unique index.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("folder name %q already exists", e.Name)
}

// DuplicateResultError means the image already has a result attached. At most
// one result per image, enforced by the unique index on results.image_id.
type DuplicateResultError struct {
	ImageID int64
}

func (e *DuplicateResultError) Error() string {
	return fmt.Sprintf("image %d already has a result", e.ImageID)
}

// TransactionAbortedError wraps any other failure inside a read-write
// transaction. The transaction was rolled back; none of its mutations
// were applied.
type TransactionAbortedError struct {
	Op  string
	Err error
}

func (e *TransactionAbortedError) Error() string {
	return fmt.Sprintf("%s: transaction aborted: %v", e.Op, e.Err)
}

func (e *TransactionAbortedError) Unwrap() error { return e.Err }

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// violation on the given table.column. The pure-Go driver surfaces
// constraint failures only through the error text, e.g.
// "constraint failed: UNIQUE constraint failed: folders.name (2067)".
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
