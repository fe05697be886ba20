package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrAuthUnavailable means the priming page gave no usable cookie or token.
	ErrAuthUnavailable = errors.New("auth is missing (token or session cookie)")
	// ErrUnauthorized means the search was rejected again right after a refresh.
	ErrUnauthorized = errors.New("route search unauthorized after session refresh")
)

// HTTPStatusError is a non-success answer from the route search.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("route search: unexpected status %d", e.StatusCode)
}

// InfobusClient searches routes on the target site using the shared session.
type InfobusClient struct {
	http     *RetryClient
	sessions *SessionManager
	baseURL  string
	logger   *slog.Logger
}

func NewInfobusClient(client *RetryClient, sessions *SessionManager, baseURL string, logger *slog.Logger) *InfobusClient {
	return &InfobusClient{
		http:     client,
		sessions: sessions,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

// QueryRoutes posts a get_routes search. A stale session is refreshed first,
// and a 401/403 answer triggers exactly one more refresh and one retry.
func (c *InfobusClient) QueryRoutes(ctx context.Context, q RouteQuery) (RouteResponse, error) {
	session := c.sessions.Current()
	if !c.sessions.IsFresh() {
		var err error
		if session, err = c.sessions.Refresh(ctx, q.CityFromID, q.CityToID, q.Date); err != nil {
			return RouteResponse{}, err
		}
	}
	if session == nil || session.Token == "" || session.Cookie == "" {
		return RouteResponse{}, ErrAuthUnavailable
	}

	endpoint := c.baseURL + "/en/script"
	body := []byte(routesForm(q).Encode())

	resp, err := c.http.Execute(ctx, http.MethodPost, endpoint, requestOptions{
		Header: c.routesHeader(q, session),
		Body:   body,
	})
	if err != nil {
		return RouteResponse{}, err
	}

	if isAuthFailure(resp.StatusCode) {
		drain(resp)
		c.logger.Info("route search unauthorized, refreshing session",
			"status", resp.StatusCode,
			"from", q.CityFromID,
			"to", q.CityToID,
		)

		if session, err = c.sessions.Refresh(ctx, q.CityFromID, q.CityToID, q.Date); err != nil {
			return RouteResponse{}, err
		}
		if session.Token == "" || session.Cookie == "" {
			return RouteResponse{}, ErrAuthUnavailable
		}

		resp, err = c.http.Execute(ctx, http.MethodPost, endpoint, requestOptions{
			Header: c.routesHeader(q, session),
			Body:   body,
		})
		if err != nil {
			return RouteResponse{}, err
		}
		if isAuthFailure(resp.StatusCode) {
			drain(resp)
			return RouteResponse{}, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return RouteResponse{}, fmt.Errorf("read route search: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RouteResponse{}, &HTTPStatusError{StatusCode: resp.StatusCode, Body: truncate(string(data), 256)}
	}

	return parseRoutes(data)
}

func (c *InfobusClient) routesHeader(q RouteQuery, session *AuthSession) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	h.Set("Authorization", "Bearer "+session.Token)
	h.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	h.Set("Cookie", routesCookie(q, session))
	h.Set("Origin", c.baseURL)
	h.Set("Referer", fmt.Sprintf("%s/%s/%s/%s", c.baseURL, q.CityFromID, q.CityToID, q.Date))
	h.Set("X-Requested-With", "XMLHttpRequest")
	return h
}

func routesCookie(q RouteQuery, session *AuthSession) string {
	return fmt.Sprintf("cf_cookies_cleared=1; %s=%s; lang=en; search-items=bus%%7C%s%%7C%s",
		sessionCookieName, session.Cookie, q.CityFromID, q.CityToID)
}

func routesForm(q RouteQuery) url.Values {
	form := url.Values{}
	form.Set("transport_type", "all")
	form.Set("city_from_id", q.CityFromID)
	form.Set("city_to_id", q.CityToID)
	form.Set("dateFrom", q.Date)
	form.Set("dateTo", "")
	form.Set("Function", "get_routes")
	form.Set("period", "0")
	form.Set("route_id", "")
	form.Set("filter_time_from", "")
	form.Set("from_name", q.FromName)
	form.Set("to_name", q.ToName)
	form.Set("screen_width", strconv.Itoa(q.ScreenWidth))
	form.Set("screen_height", strconv.Itoa(q.ScreenHeight))
	form.Set("ws", "0")
	return form
}

// parseRoutes turns the search answer into offers sorted by departure.
// A false status, a missing or malformed routes list, or a malformed entry
// yields fewer offers, not an error.
func parseRoutes(data []byte) (RouteResponse, error) {
	var payload routesPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return RouteResponse{}, fmt.Errorf("decode route search: %w", err)
	}

	res := RouteResponse{Status: payload.Status, Offers: []RouteOffer{}}
	if !payload.Status || len(payload.Routes) == 0 {
		return res, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(payload.Routes, &raw); err != nil {
		return res, nil
	}

	for _, r := range raw {
		var route routePayload
		if err := json.Unmarshal(r, &route); err != nil {
			continue
		}
		res.Offers = append(res.Offers, RouteOffer{
			Depart: formatClock(route.ClearDepTime),
			Arrive: formatClock(route.ClearArrTime),
			Price:  string(route.Price),
			Rating: string(route.Rating),
		})
	}

	slices.SortStableFunc(res.Offers, func(a, b RouteOffer) int {
		return strings.Compare(a.Depart, b.Depart)
	})

	return res, nil
}

// formatClock turns "HHMM" into "HH:MM", anything else is kept as is.
func formatClock(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 4 {
		return s[:2] + ":" + s[2:]
	}
	return s
}

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageSize))
	resp.Body.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
