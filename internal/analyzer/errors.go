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
	"fmt"
	"time"
)

// TimeoutError reports that the service did not answer within the client's
// deadline. The request may still be running server-side.
type TimeoutError struct {
	Name  string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("analysis of %q timed out after %s", e.Name, e.After.Round(time.Millisecond))
}

// NetworkError reports that the service could not be reached at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("analysis service unreachable: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports that the service answered but declined the request,
// either with an error envelope or a bare non-2xx status.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("analysis service error: %s", e.Message)
	}
	return fmt.Sprintf("analysis service error: status %d", e.StatusCode)
}
