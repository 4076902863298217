package attach

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
)

// jpegQuality is the re-encode quality for queued images.
const jpegQuality = 60

// CompressImage re-encodes a queued JPEG or PNG at reduced quality and
// keeps the smaller of the two encodings. Any decode or encode failure
// falls back to the original file rather than blocking the upload;
// non-image files pass through untouched.
func CompressImage(f PendingFile) PendingFile {
	switch f.ContentType {
	case "image/jpeg", "image/png":
	default:
		return f
	}

	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		log.Printf("attach: decode %s failed, keeping original: %v", f.Name, err)
		return f
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		log.Printf("attach: re-encode %s failed, keeping original: %v", f.Name, err)
		return f
	}
	if buf.Len() >= len(f.Data) {
		return f
	}

	f.Data = buf.Bytes()
	f.Size = buf.Len()
	f.ContentType = "image/jpeg"
	f.Compressed = true
	return f
}
