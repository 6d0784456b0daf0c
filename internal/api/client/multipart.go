package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
)

// Upload is one file sent with a listing.
type Upload struct {
	Filename string
	Content  io.Reader
}

// OpenUpload opens the file at path as an Upload. The caller closes the
// returned file once the request has been sent.
func OpenUpload(path string) (Upload, *os.File, error) {
	f, err := os.Open(path) //nolint:gosec // path from trusted CLI argument
	if err != nil {
		return Upload{}, nil, fmt.Errorf("opening image: %w", err)
	}
	return Upload{Filename: filepath.Base(path), Content: f}, f, nil
}

type multipartBody struct {
	buf         *bytes.Buffer
	contentType string
}

// newMultipartBody flattens fields into form values (nested values such as
// features are sent as JSON strings) and attaches files under fileField.
func newMultipartBody(
	fields any,
	fileField string,
	files []Upload,
	extra map[string]string,
) (*multipartBody, error) {
	values, err := formValues(fields)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		values[k] = v
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, k := range keys {
		if err := w.WriteField(k, values[k]); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(fileField, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("creating file part: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copying %s: %w", f.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	return &multipartBody{buf: buf, contentType: w.FormDataContentType()}, nil
}

func formValues(v any) (map[string]string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding form fields: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding form fields: %w", err)
	}

	out := make(map[string]string, len(raw))
	for k, val := range raw {
		switch tv := val.(type) {
		case nil:
		case string:
			out[k] = tv
		case json.Number:
			out[k] = tv.String()
		case bool:
			out[k] = fmt.Sprint(tv)
		default:
			nested, err := json.Marshal(tv)
			if err != nil {
				return nil, fmt.Errorf("encoding field %s: %w", k, err)
			}
			out[k] = string(nested)
		}
	}
	return out, nil
}
