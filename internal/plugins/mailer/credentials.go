package mailer

import "strings"

// Resolve picks the authentication mode for creds without touching the
// network. A bearer token wins over a secret when both are present.
func Resolve(creds Credentials) (AuthMode, error) {
	if strings.TrimSpace(creds.Email) == "" {
		return "", newError(KindMissingAuthentication, "account identifier is required")
	}
	switch {
	case creds.AccessToken != "":
		return ModeOAuth2, nil
	case creds.Password != "":
		return ModePassword, nil
	default:
		return "", newError(KindMissingAuthentication, "no authentication method provided")
	}
}
