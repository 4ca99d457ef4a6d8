// Package imaging turns raw uploads into inline chat payloads. Documents in
// the chat collection carry images as base64 JPEG, so the encoded result has
// to fit under the store's practical per-document size.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

// MaxInlineBytes is the cap on the encoded JPEG payload before base64.
const MaxInlineBytes = 700_000

// ErrImageTooLarge is returned when no quality step brings the image under
// the cap.
var ErrImageTooLarge = errors.New("image exceeds inline size cap after compression")

var qualitySteps = []int{80, 60, 40, 25, 10}

// Compress decodes raw image bytes and re-encodes them as JPEG at
// progressively lower quality until the result is at most maxBytes, then
// returns the base64 payload. It never silently returns an oversized result.
func Compress(raw []byte, maxBytes int) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	for _, q := range qualitySteps {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return "", fmt.Errorf("encode image: %w", err)
		}
		if buf.Len() <= maxBytes {
			return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
		}
	}
	return "", ErrImageTooLarge
}
