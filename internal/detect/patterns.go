package detect

import "regexp"

// Fixed pattern definitions for the locator and number stages. The shapes
// follow common conventions; correctness of credit-card candidates is
// enforced separately by the Luhn gate.
var (
	urlPattern = regexp.MustCompile(
		`\bhttps?://[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+`,
	)
	emailPattern = regexp.MustCompile(
		`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`,
	)
	ipv4Pattern = regexp.MustCompile(
		`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}` +
			`(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`,
	)
	creditCardPattern = regexp.MustCompile(
		`\b(?:\d{4}[ \-]?){3}\d{4}\b`,
	)
	phonePattern = regexp.MustCompile(
		`(?:\+?\d{1,3}[ .\-]?)?(?:\(\d{3}\)|\d{3})[ .\-]?\d{3}[ .\-]?\d{4}\b`,
	)
)
