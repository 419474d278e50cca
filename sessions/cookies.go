package sessions

import (
	"net/http"
	"time"
)

// Cookie names of the three session parts.
const (
	HeaderPayloadCookie = "gHdrPyl"
	SignatureCookie     = "gSgn"
	TokenCookie         = "gTkn"
)

// Part is one of the three cookies a session is split across.
type Part struct {
	Name     string
	Value    string
	HTTPOnly bool
}

// SplitCookie is a session ready to be written to a response. The
// header-payload part stays readable by client-side script so the dashboard
// can show who is signed in; the signature and the encrypted bearer token
// are HTTP-only.
type SplitCookie struct {
	HeaderPayload Part
	Signature     Part
	Token         Part
	Expires       time.Time
	// MaxAge follows net/http: zero leaves it unset, negative deletes.
	MaxAge int
}

func newSplitCookie(headerPayload, signature, token string, expires time.Time, maxAge int) *SplitCookie {
	return &SplitCookie{
		HeaderPayload: Part{Name: HeaderPayloadCookie, Value: headerPayload},
		Signature:     Part{Name: SignatureCookie, Value: signature, HTTPOnly: true},
		Token:         Part{Name: TokenCookie, Value: token, HTTPOnly: true},
		Expires:       expires,
		MaxAge:        maxAge,
	}
}

// Parts returns the raw values, as Decode expects them.
func (c *SplitCookie) Parts() Parts {
	return Parts{
		HeaderPayload: c.HeaderPayload.Value,
		Signature:     c.Signature.Value,
		Token:         c.Token.Value,
	}
}

// Cookies renders the three parts as response cookies.
func (c *SplitCookie) Cookies(secure bool) []*http.Cookie {
	parts := []Part{c.HeaderPayload, c.Signature, c.Token}
	cookies := make([]*http.Cookie, 0, len(parts))
	for _, p := range parts {
		cookies = append(cookies, &http.Cookie{
			Name:     p.Name,
			Value:    p.Value,
			Path:     "/",
			Expires:  c.Expires,
			MaxAge:   c.MaxAge,
			Secure:   secure,
			HttpOnly: p.HTTPOnly,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return cookies
}

// Write sets the three cookies on w.
func (c *SplitCookie) Write(w http.ResponseWriter, secure bool) {
	for _, cookie := range c.Cookies(secure) {
		http.SetCookie(w, cookie)
	}
}

// Parts are the cookie values presented by a client. An empty value means
// the cookie was absent.
type Parts struct {
	HeaderPayload string
	Signature     string
	Token         string
}

// Complete reports whether all three values are present.
func (p Parts) Complete() bool {
	return p.HeaderPayload != "" && p.Signature != "" && p.Token != ""
}

// PartsFromRequest collects the session cookies sent with r.
func PartsFromRequest(r *http.Request) Parts {
	return Parts{
		HeaderPayload: cookieValue(r, HeaderPayloadCookie),
		Signature:     cookieValue(r, SignatureCookie),
		Token:         cookieValue(r, TokenCookie),
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
