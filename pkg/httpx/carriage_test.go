package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func carriageRequest(t *testing.T, cookie, header string) *http.Request {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: DefaultAccessCookie, Value: cookie})
	}
	if header != "" {
		r.Header.Set("Authorization", "Bearer "+header)
	}
	return r
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		pref       CarriagePreference
		cookie     string
		header     string
		wantToken  string
		wantSource TokenSource
	}{
		{"cookie pref, both present, cookie wins", CarriageCookie, "from-cookie", "from-header", "from-cookie", SourceCookie},
		{"cookie pref, cookie only", CarriageCookie, "from-cookie", "", "from-cookie", SourceCookie},
		{"cookie pref, header only", CarriageCookie, "", "from-header", "from-header", SourceHeader},
		{"cookie pref, neither", CarriageCookie, "", "", "", SourceNone},
		{"header pref, both present, header wins", CarriageHeader, "from-cookie", "from-header", "from-header", SourceHeader},
		{"header pref, cookie only", CarriageHeader, "from-cookie", "", "from-cookie", SourceCookie},
		{"header pref, header only", CarriageHeader, "", "from-header", "from-header", SourceHeader},
		{"header pref, neither", CarriageHeader, "", "", "", SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := carriageRequest(t, tt.cookie, tt.header)
			token, source := TokenFromRequest(r, DefaultAccessCookie, tt.pref)
			require.Equal(t, tt.wantToken, token)
			require.Equal(t, tt.wantSource, source)
		})
	}

	t.Run("present but garbage cookie still wins over a header", func(t *testing.T) {
		// The preferred source is used as-is and fails validation later;
		// it is never skipped in favour of the secondary source.
		r := carriageRequest(t, "not-a-jwt", "valid-looking-token")
		token, source := TokenFromRequest(r, DefaultAccessCookie, CarriageCookie)
		require.Equal(t, "not-a-jwt", token)
		require.Equal(t, SourceCookie, source)
	})

	t.Run("authorization without bearer scheme is absent", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic dXNlcjpwdw==")
		_, source := TokenFromRequest(r, DefaultAccessCookie, CarriageHeader)
		require.Equal(t, SourceNone, source)
	})
}
