package httpx

import (
	"net/http"
	"strings"
)

// CarriagePreference selects which token source wins when both the
// cookie and the Authorization header are present.
type CarriagePreference string

const (
	CarriageCookie CarriagePreference = "cookie"
	CarriageHeader CarriagePreference = "header"
)

// TokenSource reports where a token was taken from.
type TokenSource string

const (
	SourceNone   TokenSource = ""
	SourceCookie TokenSource = "cookie"
	SourceHeader TokenSource = "header"
)

// DefaultAccessCookie is the cookie name access tokens ride in.
const DefaultAccessCookie = "access_token"

// TokenFromRequest extracts the raw token per the carriage decision
// table: a present preferred source is always used, even when its value
// later fails validation — it is never skipped in favour of the
// secondary source. The secondary source is consulted only when the
// preferred one is absent entirely.
func TokenFromRequest(r *http.Request, cookieName string, pref CarriagePreference) (string, TokenSource) {
	cookieVal, cookiePresent := tokenFromCookie(r, cookieName)
	headerVal, headerPresent := tokenFromHeader(r)

	primaryFirst := pref != CarriageHeader // cookie-preferred is the default

	if primaryFirst {
		if cookiePresent {
			return cookieVal, SourceCookie
		}
		if headerPresent {
			return headerVal, SourceHeader
		}
	} else {
		if headerPresent {
			return headerVal, SourceHeader
		}
		if cookiePresent {
			return cookieVal, SourceCookie
		}
	}
	return "", SourceNone
}

func tokenFromCookie(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func tokenFromHeader(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer")), true
}
