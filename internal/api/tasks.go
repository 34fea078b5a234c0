package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"techblok-cli/internal/model"
)

const (
	opTasksCompleted = "tasks.completed"
	opReportUpload   = "report.upload"
	opReportDownload = "report.download"
	opReportClear    = "report.clear"
)

// ReportFilename is the fixed name downloaded spreadsheets are saved under.
const ReportFilename = "Reports.xlsx"

func (c *Client) CompletedTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.getJSON(ctx, opTasksCompleted, "/task/completed", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// progressReader reports cumulative percentage of the request body as the
// transport consumes it. total > 0 always holds here (the multipart body is
// buffered first), so percentages are monotone and bounded by 100.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    func(pct float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			pct := float64(p.sent) * 100 / float64(p.total)
			if pct > 100 {
				pct = 100
			}
			p.fn(pct)
		}
	}
	return n, err
}

// UploadReport posts a report spreadsheet as a multipart form with a single
// file field. progress (optional) receives upload percentage, ending at 100
// once the server has accepted the file.
func (c *Client) UploadReport(ctx context.Context, filename string, src io.Reader, progress func(pct float64)) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return &Error{Kind: KindUnknown, Op: opReportUpload, Err: err}
	}
	if _, err := io.Copy(part, src); err != nil {
		return &Error{Kind: KindUnknown, Op: opReportUpload, Err: err}
	}
	if err := mw.Close(); err != nil {
		return &Error{Kind: KindUnknown, Op: opReportUpload, Err: err}
	}

	body := &progressReader{r: &buf, total: int64(buf.Len()), fn: progress}
	_, _, err = c.roundTrip(ctx, opReportUpload, http.MethodPost, "/task/upload", body, reqOpts{
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return err
	}
	if progress != nil {
		progress(100)
	}
	return nil
}

// DownloadReport fetches the generated spreadsheet as raw bytes. The caller
// saves it under ReportFilename.
func (c *Client) DownloadReport(ctx context.Context) ([]byte, error) {
	data, _, err := c.roundTrip(ctx, opReportDownload, http.MethodPost, "/task/download", nil, reqOpts{})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ClearFiles removes all uploaded report files on the server (admin only).
func (c *Client) ClearFiles(ctx context.Context) error {
	_, _, err := c.roundTrip(ctx, opReportClear, http.MethodDelete, "/task/clear", nil, reqOpts{})
	return err
}
