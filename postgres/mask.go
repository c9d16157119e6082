package postgres

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// RedactionToken replaces credentials in anything that gets logged.
	RedactionToken = "xxxxx"

	// InvalidConnectionString is what MaskConnectionString returns for input
	// that cannot be parsed as a URL.
	InvalidConnectionString = "invalid configuration"
)

var (
	connectionStringCredentialsPattern = regexp.MustCompile(`://([^:@/\s]*):[^@\s]*@`)
	connectionStringPasswordPattern    = regexp.MustCompile(`(?i)(password=)([^\s&]+)`)
)

// MaskConnectionString returns raw with its password (userinfo or password
// query parameter) replaced by RedactionToken. Input that is not a
// hierarchical URL yields InvalidConnectionString; it never fails.
//
// An unescaped '?', '/' or '#' in a password makes the parser end the
// authority early, leaving the credentials in the path, query or fragment.
// An '@' outside a parsed userinfo is therefore treated as unparseable.
func MaskConnectionString(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Opaque != "" {
		return InvalidConnectionString
	}

	if u.User == nil && strings.Contains(raw, "@") {
		return InvalidConnectionString
	}

	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), RedactionToken)
		}
	}

	if q := u.Query(); q.Has("password") {
		q.Set("password", RedactionToken)
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// sanitizeError renders err with any embedded credentials redacted.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := connectionStringCredentialsPattern.ReplaceAllString(err.Error(), "://${1}:"+RedactionToken+"@")
	sanitized = connectionStringPasswordPattern.ReplaceAllString(sanitized, "${1}"+RedactionToken)

	return sanitized
}
