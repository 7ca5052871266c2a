// Package source holds the static catalog of originating vessel registries.
// Sources are created by an out-of-band seeding step and are immutable
// afterwards; the import pipeline only ever reads them.
package source

import (
	"time"

	"github.com/rotisserie/eris"
)

// AuthorityLevel is the trust tier assigned to a source's data.
type AuthorityLevel string

const (
	Authoritative AuthorityLevel = "AUTHORITATIVE"
	Secondary     AuthorityLevel = "SECONDARY"
	Unverified    AuthorityLevel = "UNVERIFIED"
)

// ParseAuthorityLevel validates a string authority level.
func ParseAuthorityLevel(s string) (AuthorityLevel, error) {
	switch AuthorityLevel(s) {
	case Authoritative, Secondary, Unverified:
		return AuthorityLevel(s), nil
	default:
		return "", eris.Errorf("source: unknown authority level %q (valid: AUTHORITATIVE, SECONDARY, UNVERIFIED)", s)
	}
}

// Source identifies one originating registry.
type Source struct {
	ID        int64          `json:"id"`
	Shortname string         `json:"shortname"`
	Name      string         `json:"name"`
	Authority AuthorityLevel `json:"authority"`
	Adapter   string         `json:"adapter"`
	CreatedAt time.Time      `json:"created_at"`
}
