package payload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/helloakshay27/hi-society-assets/internal/attach"
)

// EncodeMultipart flattens the nested payload into bracket-notation
// form fields and appends the queued files as streamed parts. Field
// order is deterministic: scalar keys sorted, array elements in slice
// order, file buckets in their declared order.
func EncodeMultipart(body map[string]any, files attach.CategoryFiles) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := flatten(w, k, body[k]); err != nil {
			return nil, "", err
		}
	}

	for _, part := range files.Parts() {
		field := "pms_asset[" + part.Field + "][]"
		for _, f := range part.Files {
			if err := writeFile(w, field, f); err != nil {
				return nil, "", fmt.Errorf("encode %s: %w", f.Name, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func flatten(w *multipart.Writer, prefix string, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := flatten(w, prefix+"["+k+"]", val[k]); err != nil {
				return err
			}
		}
		return nil
	case []map[string]any:
		for i, elem := range val {
			if err := flatten(w, fmt.Sprintf("%s[%d]", prefix, i), elem); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return nil
	default:
		return w.WriteField(prefix, scalar(val))
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(val)
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// writeFile emits one file part with the upload's original content
// type; multipart.Writer.CreateFormFile would hardcode octet-stream.
func writeFile(w *multipart.Writer, field string, f attach.PendingFile) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	pw, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = pw.Write(f.Data)
	return err
}
