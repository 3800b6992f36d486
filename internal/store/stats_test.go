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
	"testing"

	"imagevault/internal/domain"
)

func TestComputeStatsEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.ComputeStats(context.Background())
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if got != (domain.Stats{}) {
		t.Fatalf("empty store stats: %+v", got)
	}
}

func TestComputeStatsCountsAcrossFolders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fa, err := s.CreateFolder(ctx, "A", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	fb, err := s.CreateFolder(ctx, "B", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	var first domain.Image
	for i, name := range []string{"a1.png", "a2.png", "a3.png"} {
		img, err := s.AddImage(ctx, fa.ID, name, testFile(name), "")
		if err != nil {
			t.Fatalf("AddImage: %v", err)
		}
		if i == 0 {
			first = img
		}
	}
	for _, name := range []string{"b1.png", "b2.png"} {
		if _, err := s.AddImage(ctx, fb.ID, name, testFile(name), ""); err != nil {
			t.Fatalf("AddImage: %v", err)
		}
	}
	if _, err := s.SaveResult(ctx, first.ID, fa.ID, flatResult("1", "B")); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}

	got, err := s.ComputeStats(ctx)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	want := domain.Stats{TotalFolders: 2, TotalImages: 5, ProcessedImages: 1, UnprocessedImages: 4}
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestComputeStatsCountsRowsNotCachedCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f, err := s.CreateFolder(ctx, "Skewed", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := s.AddImage(ctx, f.ID, "x.png", testFile("x.png"), ""); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	// Skew the denormalized counter; stats must still count actual rows.
	if err := s.AdjustFolderImageCount(ctx, f.ID, 10); err != nil {
		t.Fatalf("AdjustFolderImageCount: %v", err)
	}
	got, err := s.ComputeStats(ctx)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if got.TotalImages != 1 {
		t.Fatalf("TotalImages = %d, want 1 (row count, not cached counter)", got.TotalImages)
	}
}

func TestSearchImagesGroupsByFolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fa, err := s.CreateFolder(ctx, "Vacation", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	fb, err := s.CreateFolder(ctx, "Work", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := s.AddImage(ctx, fa.ID, "Beach Sunset.png", testFile("DSC_100.png"), ""); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if _, err := s.AddImage(ctx, fa.ID, "mountains.png", testFile("DSC_101.png"), ""); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if _, err := s.AddImage(ctx, fb.ID, "whiteboard.png", testFile("sunset_notes.png"), ""); err != nil {
		t.Fatalf("AddImage: %v", err)
	}

	groups, err := s.SearchImages(ctx, "SUNSET")
	if err != nil {
		t.Fatalf("SearchImages: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected matches in both folders, got %d groups", len(groups))
	}
	for _, g := range groups {
		if len(g.Images) != 1 {
			t.Fatalf("folder %s: %d matches, want 1", g.Folder.Name, len(g.Images))
		}
	}
}

func TestSearchImagesFoldsNonASCIICase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f, err := s.CreateFolder(ctx, "Photos", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := s.AddImage(ctx, f.ID, "école primaire.png", testFile("ÉCOLE.png"), ""); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	for _, q := range []string{"ÉCOLE", "école", "École"} {
		groups, err := s.SearchImages(ctx, q)
		if err != nil {
			t.Fatalf("SearchImages(%q): %v", q, err)
		}
		if len(groups) != 1 || len(groups[0].Images) != 1 {
			t.Fatalf("query %q did not match: %+v", q, groups)
		}
	}
}

func TestSearchImagesNoMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f, err := s.CreateFolder(ctx, "Quiet", "")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := s.AddImage(ctx, f.ID, "cat.png", testFile("cat.png"), ""); err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	groups, err := s.SearchImages(ctx, "zebra")
	if err != nil {
		t.Fatalf("SearchImages: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}
}
