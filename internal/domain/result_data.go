/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Answer is one question/answer pair extracted from an image.
type Answer struct {
	QuestionNumber string `json:"question_number"`
	Answer         string `json:"answer"`
}

// UnmarshalJSON accepts question_number as either a JSON string or a number;
// the analysis service is not consistent about which it returns.
func (a *Answer) UnmarshalJSON(b []byte) error {
	var raw struct {
		QuestionNumber json.RawMessage `json:"question_number"`
		Answer         string          `json:"answer"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	a.Answer = raw.Answer
	if len(raw.QuestionNumber) == 0 {
		a.QuestionNumber = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.QuestionNumber, &s); err == nil {
		a.QuestionNumber = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.QuestionNumber, &n); err == nil {
		a.QuestionNumber = n.String()
		return nil
	}
	return fmt.Errorf("question_number: unsupported value %s", raw.QuestionNumber)
}

// Section is a named group of answers, e.g. "Section A" or "Question Paper 1".
type Section struct {
	Name    string
	Answers []Answer
}

// ResultData is the opaque analysis payload: either a flat ordered list of
// answers, or an ordered list of named sections of answers. Exactly one of
// Answers and Sections is set. On the wire the flat form is a JSON array and
// the sectioned form is a JSON object; section order is preserved as
// received, so round-trips do not reorder anything.
type ResultData struct {
	Answers  []Answer
	Sections []Section
}

// Sectioned reports whether the payload carries named sections.
func (d ResultData) Sectioned() bool { return d.Sections != nil }

// UnmarshalJSON dispatches on the top-level JSON shape. The sectioned form is
// decoded token by token so that section order survives (a plain map would
// lose it).
func (d *ResultData) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return errors.New("empty result data")
	}
	switch trimmed[0] {
	case '[':
		answers := []Answer{}
		if err := json.Unmarshal(trimmed, &answers); err != nil {
			return err
		}
		d.Answers = answers
		d.Sections = nil
		return nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil { // opening brace
			return err
		}
		sections := []Section{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			name, ok := tok.(string)
			if !ok {
				return fmt.Errorf("section name: unexpected token %v", tok)
			}
			var answers []Answer
			if err := dec.Decode(&answers); err != nil {
				return fmt.Errorf("section %q: %w", name, err)
			}
			sections = append(sections, Section{Name: name, Answers: answers})
		}
		if _, err := dec.Token(); err != nil { // closing brace
			return err
		}
		d.Answers = nil
		d.Sections = sections
		return nil
	default:
		return errors.New("result data must be a list of answers or a mapping of sections")
	}
}

// MarshalJSON writes the flat form as an array and the sectioned form as an
// object with sections in their original order.
func (d ResultData) MarshalJSON() ([]byte, error) {
	if d.Sections == nil {
		answers := d.Answers
		if answers == nil {
			answers = []Answer{}
		}
		return json.Marshal(answers)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range d.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(sec.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		answers := sec.Answers
		if answers == nil {
			answers = []Answer{}
		}
		body, err := json.Marshal(answers)
		if err != nil {
			return nil, err
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Slide is one step of the navigable presentation sequence the UI flattens
// results into.
type Slide struct {
	Section        string `json:"section"`
	QuestionNumber string `json:"questionNumber"`
	Answer         string `json:"answer"`
}

// flatSectionLabel is the caption used when the payload has no sections.
const flatSectionLabel = "Results"

// Slides flattens the payload into a zero-indexed sequence of
// (section, question number, answer) triples, in payload order.
func (d ResultData) Slides() []Slide {
	var out []Slide
	if d.Sections == nil {
		for _, a := range d.Answers {
			out = append(out, Slide{Section: flatSectionLabel, QuestionNumber: a.QuestionNumber, Answer: a.Answer})
		}
		return out
	}
	for _, sec := range d.Sections {
		for _, a := range sec.Answers {
			out = append(out, Slide{Section: sec.Name, QuestionNumber: a.QuestionNumber, Answer: a.Answer})
		}
	}
	return out
}
