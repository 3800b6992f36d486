/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package analyzer talks to the external image analysis service. The service
// accepts one image per request as a multipart upload and answers with a JSON
// envelope carrying either an error message or the extracted result payload.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"imagevault/internal/domain"
	applog "imagevault/internal/log"
)

// DefaultTimeout bounds a single analysis request end to end.
const DefaultTimeout = 30 * time.Second

// fieldName is the multipart form field the service reads the upload from.
const fieldName = "image"

// Client is a minimal HTTP client for the analysis service. One request per
// image; the caller decides what to do with the result.
type Client struct {
	Endpoint string
	APIKey   string // sent as X-Api-Key when set
	client   *http.Client
	log      *slog.Logger
}

// NewClient creates a client for the given upload endpoint. A non-positive
// timeout falls back to DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		Endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      applog.WithComponent("analyzer"),
	}
}

// envelope matches the service response shape for both outcomes.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Analyze uploads one image and returns the decoded result payload.
// Failures are classified: TimeoutError when the deadline elapsed,
// NetworkError when the service was unreachable, ServerError when it
// answered with a failure.
func (c *Client) Analyze(ctx context.Context, upload domain.FileUpload) (domain.ResultData, error) {
	var zero domain.ResultData
	body, contentType, err := encodeMultipart(upload)
	if err != nil {
		return zero, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, body)
	if err != nil {
		return zero, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.APIKey != "" {
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			c.log.Warn("analysis timed out", slog.String("name", upload.Name), slog.Duration("after", time.Since(start)))
			return zero, &TimeoutError{Name: upload.Name, After: time.Since(start)}
		}
		return zero, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return zero, &NetworkError{Err: err}
	}
	var env envelope
	if jerr := json.Unmarshal(raw, &env); jerr != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return zero, &ServerError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return zero, fmt.Errorf("parse response: %w", jerr)
	}
	if env.Status == "error" {
		return zero, &ServerError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, &ServerError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	var data domain.ResultData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return zero, fmt.Errorf("parse result payload: %w", err)
	}
	c.log.Info("analysis complete", slog.String("name", upload.Name), slog.Duration("took", time.Since(start)))
	return data, nil
}

func encodeMultipart(upload domain.FileUpload) (*bytes.Buffer, string, error) {
	if len(upload.Data) == 0 {
		return nil, "", fmt.Errorf("upload %q has no data", upload.Name)
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(fieldName, upload.Name)
	if err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("build multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func isClientTimeout(err error) bool {
	var ue interface{ Timeout() bool }
	return errors.As(err, &ue) && ue.Timeout()
}
