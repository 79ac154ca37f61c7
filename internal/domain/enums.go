package domain

// FailureKind classifies why final validation of a completed response
// stream rejected the document.
type FailureKind string

const (
	// FailureKindParse: the complete buffer is not syntactically valid JSON.
	FailureKindParse FailureKind = "parse"
	// FailureKindSchema: valid JSON that violates the strict email schema.
	FailureKindSchema FailureKind = "schema"
	// FailureKindUnexpected: any other error during final parse/validate.
	FailureKindUnexpected FailureKind = "unexpected"
)

// ExportFormat represents the supported record-list export formats.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)
