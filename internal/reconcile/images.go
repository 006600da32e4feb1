package reconcile

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// DecodeFunc turns an embedded image payload into a usable pixel resource.
type DecodeFunc func(dataURI string) (image.Image, error)

// DecodeDataURI decodes a "data:image/...;base64,..." payload, the form
// images travel in on the wire. There is no out-of-band fetch: the payload
// is the whole picture.
func DecodeDataURI(dataURI string) (image.Image, error) {
	if !strings.HasPrefix(dataURI, "data:") {
		return nil, fmt.Errorf("not a data URI")
	}
	comma := strings.IndexByte(dataURI, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI: missing payload separator")
	}
	meta, payload := dataURI[len("data:"):comma], dataURI[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data URI encoding %q", meta)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding image pixels: %w", err)
	}
	return img, nil
}
