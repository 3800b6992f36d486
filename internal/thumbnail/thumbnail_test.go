/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package thumbnail

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, url string) image.Image {
	t.Helper()
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("unexpected prefix: %q", url[:min(len(url), 40)])
	}
	raw, err := base64.StdEncoding.DecodeString(url[len(prefix):])
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	return img
}

func TestGenerateScalesDownLandscape(t *testing.T) {
	url, err := Generate(encodePNG(t, 800, 400), 200)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := decodeDataURL(t, url).Bounds()
	if got.Dx() != 200 || got.Dy() != 100 {
		t.Fatalf("bounds: got %dx%d, want 200x100", got.Dx(), got.Dy())
	}
}

func TestGenerateScalesDownPortrait(t *testing.T) {
	url, err := Generate(encodePNG(t, 300, 600), 200)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := decodeDataURL(t, url).Bounds()
	if got.Dx() != 100 || got.Dy() != 200 {
		t.Fatalf("bounds: got %dx%d, want 100x200", got.Dx(), got.Dy())
	}
}

func TestGenerateKeepsSmallImages(t *testing.T) {
	url, err := Generate(encodePNG(t, 64, 48), 200)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	got := decodeDataURL(t, url).Bounds()
	if got.Dx() != 64 || got.Dy() != 48 {
		t.Fatalf("small image was rescaled: %dx%d", got.Dx(), got.Dy())
	}
}

func TestGenerateRejectsGarbage(t *testing.T) {
	if _, err := Generate([]byte("definitely not an image"), 200); err == nil {
		t.Fatalf("expected decode error")
	}
}
