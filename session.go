package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/net/html"
)

const (
	sessionCookieName = "PHPSESSID_cf"
	maxPageSize       = 4 << 20
)

var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`var\s+token\s*=\s*'([^']*)'`),
	regexp.MustCompile(`var\s+token\s*=\s*"([^"]*)"`),
}

// AuthSession is the cookie and bearer token pair handed out by the priming page.
// It is never mutated after creation; a refresh replaces it as a whole.
type AuthSession struct {
	Cookie string
	Token  string
	Expiry int64 // unix seconds, 0 when unknown
}

// FreshAt reports whether the session can still be used at now, keeping skew in reserve.
func (s *AuthSession) FreshAt(now time.Time, skew time.Duration) bool {
	if s == nil || s.Token == "" || s.Cookie == "" || s.Expiry == 0 {
		return false
	}
	return now.Add(skew).Unix() < s.Expiry
}

// SessionManager owns the process-wide session used for route searches.
//
// The session is shared by every route pair even though the site scopes its
// search-context cookie per route. Refreshes are serialized by mu so that a
// concurrent caller cannot interleave two priming requests.
type SessionManager struct {
	http    *RetryClient
	jar     http.CookieJar
	baseURL string
	skew    time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[AuthSession]
}

func NewSessionManager(client *RetryClient, jar http.CookieJar, baseURL string, skew time.Duration, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		http:    client,
		jar:     jar,
		baseURL: strings.TrimRight(baseURL, "/"),
		skew:    skew,
		now:     time.Now,
		logger:  logger,
	}
}

// Current returns the cached session, nil before the first refresh.
func (m *SessionManager) Current() *AuthSession {
	return m.current.Load()
}

func (m *SessionManager) IsFresh() bool {
	return m.current.Load().FreshAt(m.now(), m.skew)
}

// Refresh loads the priming page for the route and replaces the cached session.
// A page without a token is not an error: the new session just has no token.
func (m *SessionManager) Refresh(ctx context.Context, cityFromID, cityToID, date string) (*AuthSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	url := fmt.Sprintf("%s/en/%s/%s/%s?cookies_cleared=1", m.baseURL, cityFromID, cityToID, date)

	resp, err := m.http.Execute(ctx, http.MethodGet, url, requestOptions{})
	if err != nil {
		return nil, fmt.Errorf("load priming page: %w", err)
	}
	defer resp.Body.Close()

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("read priming page: %w", err)
	}

	session := &AuthSession{
		Cookie: m.sessionCookie(resp),
		Token:  extractToken(page),
	}
	if session.Token != "" {
		session.Expiry = tokenExpiry(session.Token)
	}
	m.current.Store(session)

	m.logger.Info("session refreshed",
		"status", resp.StatusCode,
		"has_cookie", session.Cookie != "",
		"has_token", session.Token != "",
		"expiry", session.Expiry,
	)

	return session, nil
}

// sessionCookie looks the cookie up case-insensitively, the site is not
// consistent about its spelling.
func (m *SessionManager) sessionCookie(resp *http.Response) string {
	var cookies []*http.Cookie
	if m.jar != nil && resp.Request != nil {
		cookies = append(cookies, m.jar.Cookies(resp.Request.URL)...)
	}
	cookies = append(cookies, resp.Cookies()...)

	for _, c := range cookies {
		if strings.EqualFold(c.Name, sessionCookieName) && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// extractToken finds the `var token = '...'` assignment, first in inline
// scripts and then anywhere in the page.
func extractToken(page []byte) string {
	if doc, err := html.Parse(bytes.NewReader(page)); err == nil {
		var token string
		var traverse func(*html.Node)
		traverse = func(n *html.Node) {
			if n.Type == html.ElementNode && n.Data == "script" {
				if t := matchToken(getTextContent(n)); t != "" {
					token = t
					return
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				traverse(c)
				if token != "" {
					return
				}
			}
		}
		traverse(doc)
		if token != "" {
			return token
		}
	}

	return matchToken(string(page))
}

func matchToken(s string) string {
	for _, pattern := range tokenPatterns {
		if m := pattern.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// getTextContent concatenates the text of n and its children.
func getTextContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// tokenExpiry reads the exp claim without verifying the signature. It is only
// used to skip needless refreshes, 0 means unknown.
func tokenExpiry(token string) int64 {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0
	}

	payload, err := jwt.NewParser(jwt.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return 0
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}
