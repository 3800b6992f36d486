/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package analyzer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imagevault/internal/domain"
)

var testUpload = domain.FileUpload{Name: "sheet.png", MimeType: "image/png", Data: []byte{0x89, 0x50}}

func TestAnalyzeFlatResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile: %v", err)
		} else {
			defer f.Close()
			if hdr.Filename != "sheet.png" {
				t.Errorf("filename: got %q", hdr.Filename)
			}
			if data, _ := io.ReadAll(f); len(data) != 2 {
				t.Errorf("payload: got %d bytes", len(data))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "success", "data": [{"question_number": 1, "answer": "B"}, {"question_number": "2", "answer": "D"}]}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, 0).Analyze(context.Background(), testUpload)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.Sectioned() {
		t.Fatalf("expected flat payload")
	}
	if len(got.Answers) != 2 || got.Answers[0].QuestionNumber != "1" || got.Answers[1].Answer != "D" {
		t.Fatalf("unexpected payload: %+v", got.Answers)
	}
}

func TestAnalyzeSectionedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "success", "data": {"Part A": [{"question_number": "1", "answer": "C"}], "Part B": [{"question_number": "1", "answer": "A"}]}}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, 0).Analyze(context.Background(), testUpload)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !got.Sectioned() || len(got.Sections) != 2 {
		t.Fatalf("expected 2 sections: %+v", got)
	}
	if got.Sections[0].Name != "Part A" || got.Sections[1].Name != "Part B" {
		t.Fatalf("section order not preserved: %+v", got.Sections)
	}
}

func TestAnalyzeErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "error", "message": "no answer grid detected"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Analyze(context.Background(), testUpload)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if se.Message != "no answer grid detected" {
		t.Fatalf("message: got %q", se.Message)
	}
}

func TestAnalyzeNonJSONFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Analyze(context.Background(), testUpload)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d", se.StatusCode)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	_, err := NewClient(srv.URL, 50*time.Millisecond).Analyze(context.Background(), testUpload)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
}

func TestAnalyzeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL, 0).Analyze(context.Background(), testUpload)
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestAnalyzeSendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		_, _ = w.Write([]byte(`{"status": "success", "data": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	c.APIKey = "secret-key"
	if _, err := c.Analyze(context.Background(), testUpload); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if gotKey != "secret-key" {
		t.Fatalf("api key header: got %q", gotKey)
	}
}

func TestAnalyzeRejectsEmptyUpload(t *testing.T) {
	if _, err := NewClient("http://127.0.0.1:1", 0).Analyze(context.Background(), domain.FileUpload{Name: "x"}); err == nil {
		t.Fatalf("expected error for empty upload")
	}
}
