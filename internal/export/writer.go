// Package export renders a validated email record list as a
// tab-separated CSV or an XLSX workbook for download.
package export

import (
	"encoding/csv"
	"io"

	"github.com/ShipCreekGroup/email-parser/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the header row, in wire-schema field order.
var columns = []string{
	"Name",
	"Sender",
	"Subject",
	"Preview",
	"Body",
	"Date",
}

// Writer wraps csv.Writer for exporting email records as tab-separated CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes tab-separated CSV to w.
func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &Writer{csv: cw}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteEmails converts a batch of email records to rows and writes them.
func (w *Writer) WriteEmails(emails []domain.Email) error {
	for i := range emails {
		if err := w.csv.Write(emailToRow(&emails[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func emailToRow(e *domain.Email) []string {
	return []string{
		e.Name,
		e.Sender,
		e.Subject,
		e.Preview,
		e.Body,
		e.Date,
	}
}
