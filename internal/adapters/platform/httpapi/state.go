package httpapi

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bnema/pacer/internal/domain"
)

const stateVersion = 1

type deviceFields struct {
	DeviceID        string `json:"device_id"`
	PhoneID         string `json:"phone_id"`
	UUID            string `json:"uuid"`
	ClientSessionID string `json:"client_session_id"`
	AdvertisingID   string `json:"advertising_id"`
}

// cookieState keeps the scope of a cookie. An empty Path restores as "/".
type cookieState struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

type cookieKey struct {
	name   string
	domain string
	path   string
}

func (s cookieState) key() cookieKey {
	return cookieKey{
		name:   s.Name,
		domain: strings.ToLower(strings.TrimPrefix(s.Domain, ".")),
		path:   s.Path,
	}
}

func (s cookieState) expired(now time.Time) bool {
	return !s.Expires.IsZero() && !s.Expires.After(now)
}

func (s cookieState) httpCookie() *http.Cookie {
	path := s.Path
	if path == "" {
		path = "/"
	}

	return &http.Cookie{
		Name:     s.Name,
		Value:    s.Value,
		Path:     path,
		Domain:   s.Domain,
		Expires:  s.Expires,
		Secure:   s.Secure,
		HttpOnly: s.HttpOnly,
	}
}

type stateBlob struct {
	Version  int           `json:"version"`
	Token    string        `json:"token,omitempty"`
	UserID   string        `json:"user_id,omitempty"`
	Username string        `json:"username,omitempty"`
	Device   deviceFields  `json:"device"`
	Cookies  []cookieState `json:"cookies"`
}

// trackCookiesLocked records cookies the platform set on resp. Responses
// from other hosts are ignored since they could not be restored against the
// base URL.
func (c *Client) trackCookiesLocked(resp *http.Response, now time.Time) {
	if resp.Request == nil || resp.Request.URL == nil || !strings.EqualFold(resp.Request.URL.Host, c.baseURL.Host) {
		return
	}

	for _, cookie := range resp.Cookies() {
		state := cookieState{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		}
		if state.Path == "" || state.Path[0] != '/' {
			state.Path = defaultCookiePath(resp.Request.URL.Path)
		}
		switch {
		case cookie.MaxAge < 0:
			state.Expires = now
		case cookie.MaxAge > 0:
			state.Expires = now.Add(time.Duration(cookie.MaxAge) * time.Second)
		}

		if state.expired(now) {
			delete(c.cookies, state.key())
			continue
		}
		c.cookies[state.key()] = state
	}
}

// defaultCookiePath is the path a cookie without a Path attribute is scoped
// to: the request path up to, not including, its last slash.
func defaultCookiePath(requestPath string) string {
	if requestPath == "" || requestPath[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(requestPath, "/")
	if i == 0 {
		return "/"
	}

	return requestPath[:i]
}

func (c *Client) ExportState(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, cookie := range c.cookies {
		if cookie.expired(now) {
			delete(c.cookies, key)
		}
	}
	if !c.authenticatedLocked() {
		return nil, errors.New("export state: client is not authenticated")
	}

	state := stateBlob{
		Version:  stateVersion,
		Token:    c.token,
		UserID:   c.userID,
		Username: c.username,
		Device:   deviceFields(c.device),
		Cookies:  make([]cookieState, 0, len(c.cookies)),
	}
	for _, cookie := range c.cookies {
		state.Cookies = append(state.Cookies, cookie)
	}
	slices.SortFunc(state.Cookies, func(a, b cookieState) int {
		return cmp.Or(
			cmp.Compare(a.Domain, b.Domain),
			cmp.Compare(a.Path, b.Path),
			cmp.Compare(a.Name, b.Name),
		)
	})

	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	return data, nil
}

// ImportState replaces the client's authentication state. Blobs that cannot
// be decoded are reported as rejected sessions.
func (c *Client) ImportState(ctx context.Context, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(blob) == 0 {
		return fmt.Errorf("import state: %w: empty state", domain.ErrAuthRejected)
	}

	var state stateBlob
	if err := json.Unmarshal(blob, &state); err != nil {
		return fmt.Errorf("import state: %w: %w", domain.ErrAuthRejected, err)
	}
	if state.Version > stateVersion {
		return fmt.Errorf("import state: %w: unsupported state version %d", domain.ErrAuthRejected, state.Version)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.resetLocked()
	c.token = state.Token
	c.userID = state.UserID
	c.username = state.Username
	c.device = domain.DeviceIdentifiers(state.Device)

	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(state.Cookies))
	for _, cookie := range state.Cookies {
		if cookie.Path == "" {
			cookie.Path = "/"
		}
		if cookie.expired(now) {
			continue
		}
		c.cookies[cookie.key()] = cookie
		cookies = append(cookies, cookie.httpCookie())
	}
	c.jar.SetCookies(c.baseURL, cookies)

	return nil
}
