package domain

// Email is one structured email record extracted from pasted text.
// Field names mirror the wire schema in internal/schema: five required
// string fields plus an optional Date in yyyy-mm-dd format.
type Email struct {
	Name    string `json:"name"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Preview string `json:"preview"`
	Body    string `json:"body"`
	Date    string `json:"date,omitempty"`
}

// ParseResult is the terminal outcome of one successful parse request.
type ParseResult struct {
	Emails []Email `json:"emails"`
	Count  int     `json:"count"`
	Model  string  `json:"model,omitempty"`
}
