/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package thumbnail renders small inline previews of uploaded images so list
// views never have to decode the full-size binary.
package thumbnail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// DefaultMaxDim is the bounding box for generated thumbnails, in pixels.
const DefaultMaxDim = 200

// Generate decodes an image and scales it to fit a maxDim square, preserving
// aspect ratio. Images already inside the box are re-encoded unscaled. The
// result is a PNG data URL suitable for direct embedding.
func Generate(data []byte, maxDim int) (string, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return "", fmt.Errorf("decode image: empty bounds %dx%d", w, h)
	}
	tw, th := fit(w, h, maxDim)
	var out image.Image = src
	if tw != w || th != h {
		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
		out = dst
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// fit shrinks w x h to fit inside a dim square without upscaling.
func fit(w, h, dim int) (int, int) {
	if w <= dim && h <= dim {
		return w, h
	}
	if w >= h {
		th := h * dim / w
		if th < 1 {
			th = 1
		}
		return dim, th
	}
	tw := w * dim / h
	if tw < 1 {
		tw = 1
	}
	return tw, dim
}
