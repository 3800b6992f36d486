/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"imagevault/internal/snapshot"
	"imagevault/internal/store"
)

// TestRecover_PanickingGoroutine ensures Recover handles a panic, writes a report,
// attempts an emergency snapshot, and does not terminate the test process due to injected exitFn.
func TestRecover_PanickingGoroutine(t *testing.T) {
	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(os.Stderr, r) // drain pipe
	}()

	// Override exitFn to avoid os.Exit during test and to assert it was called
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	st, err := store.Open(filepath.Join(root, "vault.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	if _, err := st.CreateFolder(context.Background(), "Keep", ""); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	// Trigger a panic that Recover will catch
	func() {
		defer Recover(st)
		panic("boom")
	}()

	// Allow time for filesystem writes
	time.Sleep(50 * time.Millisecond)

	// Crash report and emergency snapshot land in backups next to the db
	bdir := filepath.Join(root, "backups")
	files, _ := os.ReadDir(bdir)
	var report, snapFile string
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = filepath.Join(bdir, f.Name())
		case strings.HasPrefix(f.Name(), "emergency-") && strings.HasSuffix(f.Name(), ".json"):
			snapFile = filepath.Join(bdir, f.Name())
		}
	}
	if report == "" {
		t.Fatalf("expected crash report file under backups dir")
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}

	if snapFile == "" {
		t.Fatalf("expected emergency snapshot under backups dir")
	}
	bf, err := snapshot.ReadBackupFile(snapFile)
	if err != nil {
		t.Fatalf("read emergency snapshot: %v", err)
	}
	if bf.Store == nil || len(bf.Store.Folders) != 1 || bf.Store.Folders[0].Folder.Name != "Keep" {
		t.Fatalf("emergency snapshot missing data: %+v", bf.Store)
	}

	// Ensure exit was attempted with code 2 (but intercepted)
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}
