// Package lnurl implements the LNURL-pay client the payment path uses to
// resolve a lightning address to a BOLT11 invoice, and the server side of
// the same protocol (LnUrlService) that answers those requests for this
// server's own ln_address holders.
package lnurl

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidAddress is returned when parsing an invalid lightning address.
var ErrInvalidAddress = errors.New("lnurl: invalid lightning address")

// addressRegex follows the same pragmatic email-shaped grammar LUD-16 itself
// points to; it intentionally rejects anything RFC 5322 would accept but a
// wallet UI would not.
var addressRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,4}$`)

// Address is a `user@domain.tld` identifier resolvable to an LNURL-pay
// endpoint per LUD-16.
type Address struct {
	User   string
	Domain string
}

// String returns the user@domain.tld form of the address.
func (a Address) String() string {
	return a.User + "@" + a.Domain
}

// WellKnownURL returns the HTTPS endpoint a payer's wallet queries to
// resolve a pay request document for this address.
func (a Address) WellKnownURL() string {
	return "https://" + a.Domain + "/.well-known/lnurlp/" + a.User
}

// ParseAddress parses s into an Address, normalizing to lower case first
// since lightning addresses are case-insensitive per LUD-16.
func ParseAddress(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !addressRegex.MatchString(s) {
		return Address{}, ErrInvalidAddress
	}
	i := strings.Index(s, "@")
	return Address{User: s[:i], Domain: s[i+1:]}, nil
}
