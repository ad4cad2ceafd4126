package identity

import (
	"net/mail"
	"strings"

	"golang.org/x/text/secure/precis"

	"github.com/deskhive/deskhive/internal/shared"
)

// NormalizeEmail canonicalizes an address before it reaches the provider so
// logins and account creation agree on one spelling. The local part goes
// through the PRECIS username profile, the domain is lowercased.
func NormalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", shared.ErrValidation
	}
	at := strings.LastIndex(addr.Address, "@")
	if at <= 0 || at == len(addr.Address)-1 {
		return "", shared.ErrValidation
	}
	local, domain := addr.Address[:at], addr.Address[at+1:]
	normalized, err := precis.UsernameCaseMapped.String(local)
	if err != nil {
		return "", shared.ErrValidation
	}
	return normalized + "@" + strings.ToLower(domain), nil
}
