package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/finn-wa/grocy-trolley-sub000/internal/storage"
)

const (
	contentTypeJSON = "application/json"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Archive stores the run as JSON and XLSX and returns the keys written.
func Archive(ctx context.Context, st storage.Storage, r *Run) ([]string, error) {
	formats := []struct {
		ext         string
		contentType string
		write       func(*bytes.Buffer, *Run) error
	}{
		{"json", contentTypeJSON, func(b *bytes.Buffer, r *Run) error { return WriteJSON(b, r) }},
		{"xlsx", contentTypeXLSX, func(b *bytes.Buffer, r *Run) error { return WriteXLSX(b, r) }},
	}

	keys := make([]string, 0, len(formats))
	for _, f := range formats {
		var buf bytes.Buffer
		if err := f.write(&buf, r); err != nil {
			return keys, fmt.Errorf("encode %s report: %w", f.ext, err)
		}
		key := storage.NewKey(r.Store, r.Source, r.StartedAt, r.ID, f.ext)
		meta := &storage.Metadata{
			ContentType: f.contentType,
			RunID:       r.ID,
			Store:       r.Store,
			Source:      r.Source,
			CreatedAt:   r.StartedAt,
		}
		if err := st.Put(ctx, key, buf.Bytes(), meta); err != nil {
			return keys, err
		}
		keys = append(keys, key.String())
	}
	return keys, nil
}
