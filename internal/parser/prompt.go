package parser

import "github.com/ShipCreekGroup/email-parser/internal/schema"

// BuildEmailExtractionPrompt returns the extraction prompt for pasted
// email text. The wire schema is embedded verbatim so providers without
// response-schema enforcement still see the exact contract.
func BuildEmailExtractionPrompt(text string) string {
	return `Parse the following text into an array of email objects.

The text was pasted from a document and may contain one or more emails in any layout. For each email, derive a short unique "name" from the subject or content if one is not supplied directly. Preserve line breaks in the body.

Return ONLY valid JSON matching this schema, with no markdown formatting, no code fences, and no explanation:

` + schema.EmailSchemaJSON + `

Text to parse:

` + text
}
