package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync/atomic"

	"EstateDesk/api/constants"
)

// Upload is one file to import.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ImportResult is the CMS reply to an import.
type ImportResult struct {
	Success                 bool `json:"success"`
	InsertedEntries         int  `json:"insertedEntries"`
	SkippedDuplicateEntries int  `json:"skippedDuplicateEntries"`
	TotalEntries            int  `json:"totalEntries"`
}

// UnmarshalJSON also accepts the "skippedDuplicateEntires" spelling the CMS
// sends.
func (r *ImportResult) UnmarshalJSON(b []byte) error {
	var raw struct {
		Success    bool `json:"success"`
		Inserted   int  `json:"insertedEntries"`
		Skipped    *int `json:"skippedDuplicateEntries"`
		SkippedAlt *int `json:"skippedDuplicateEntires"`
		Total      int  `json:"totalEntries"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = ImportResult{Success: raw.Success, InsertedEntries: raw.Inserted, TotalEntries: raw.Total}
	switch {
	case raw.Skipped != nil:
		r.SkippedDuplicateEntries = *raw.Skipped
	case raw.SkippedAlt != nil:
		r.SkippedDuplicateEntries = *raw.SkippedAlt
	}
	return nil
}

// ProgressFunc receives bytes sent so far and the body size.
type ProgressFunc func(sent, total int64)

type progressReader struct {
	r     io.Reader
	sent  atomic.Int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.fn != nil {
		p.fn(p.sent.Add(int64(n)), p.total)
	}
	return n, err
}

// Import posts the file as multipart field "file" to /{domain}/import.
// onProgress may be nil.
func (c *Client) Import(ctx context.Context, domain string, up Upload, onProgress ProgressFunc) (*ImportResult, error) {
	u, err := c.endpoint("/"+domain+"/import", nil)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "file", "filename": up.FileName}))
	ct := up.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set(constants.ContentTypeText, ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}

	size := int64(buf.Len())
	body := &progressReader{r: &buf, total: size, fn: onProgress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set(constants.ContentTypeText, mw.FormDataContentType())

	var out ImportResult
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
