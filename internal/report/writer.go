package report

import (
	"fmt"
	"time"

	"costalert/internal/core"
)

// errorSeparator divides an appended error block from earlier content.
const errorSeparator = "\n\n---\n\n"

// Files is the byte store daily reports are written to.
type Files interface {
	Exists(name string) (bool, error)
	Write(name string, data []byte) error
	Append(name string, data []byte) error
}

// Writer persists daily reports. A successful run overwrites the day's file;
// a failure is appended so earlier content for the day survives.
type Writer struct {
	files Files
}

func NewWriter(files Files) *Writer {
	return &Writer{files: files}
}

// WriteDaily replaces the report for dc.Date and returns its path.
func (w *Writer) WriteDaily(dc core.DailyCosts, generatedAt time.Time) (string, error) {
	name := core.DailyReportPath(dc.Date)
	if err := w.files.Write(name, RenderDaily(dc, generatedAt)); err != nil {
		return "", fmt.Errorf("write daily report %s: %w", name, err)
	}
	return name, nil
}

// AppendError records a failed run in the report for date. If the file does
// not exist yet it is created holding only the error block.
func (w *Writer) AppendError(date core.Date, errorType string, cause error, at time.Time) (string, error) {
	name := core.DailyReportPath(date)
	block := RenderError(errorType, cause, at)

	exists, err := w.files.Exists(name)
	if err != nil {
		return "", fmt.Errorf("stat daily report %s: %w", name, err)
	}
	if !exists {
		if err := w.files.Write(name, block); err != nil {
			return "", fmt.Errorf("write error report %s: %w", name, err)
		}
		return name, nil
	}

	data := append([]byte(errorSeparator), block...)
	if err := w.files.Append(name, data); err != nil {
		return "", fmt.Errorf("append error report %s: %w", name, err)
	}
	return name, nil
}
