package main

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Represents a user subscription to a route and departure window
type Subscription struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	CityFromID  string `json:"city_from_id"`
	CityToID    string `json:"city_to_id"`
	FromName    string `json:"from_name"`
	ToName      string `json:"to_name"`
	DateStr     string `json:"date_str"`      // "DD.MM.YYYY"
	DepFromHHMM string `json:"dep_from_hhmm"` // "HH:MM"
	DepToHHMM   string `json:"dep_to_hhmm"`   // "HH:MM"
	LastHash    string `json:"last_hash"`     // empty: no matching offers ever observed
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// NewSubscription is what /subscribe collects before the store assigns an id.
type NewSubscription struct {
	UserID      int64
	CityFromID  string
	CityToID    string
	FromName    string
	ToName      string
	DateStr     string
	DepFromHHMM string
	DepToHHMM   string
}

// RouteOffer is a single departure returned by the route search.
type RouteOffer struct {
	Depart string // "HH:MM"
	Arrive string // "HH:MM"
	Price  string
	Rating string
}

type RouteQuery struct {
	CityFromID   string
	CityToID     string
	FromName     string
	ToName       string
	Date         string
	ScreenWidth  int
	ScreenHeight int
}

type RouteResponse struct {
	Status bool
	Offers []RouteOffer // sorted by Depart
}

// wire shape of POST /en/script
type routesPayload struct {
	Status bool            `json:"status"`
	Routes json.RawMessage `json:"routes"`
}

type routePayload struct {
	ClearDepTime string     `json:"ClearDepTime"`
	ClearArrTime string     `json:"ClearArrTime"`
	Price        looseValue `json:"price"`
	Rating       looseValue `json:"rating"`
}

// looseValue accepts a JSON number or string and keeps its text.
type looseValue string

func (v *looseValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = looseValue(strings.TrimSpace(s))
		return nil
	}
	*v = looseValue(data)
	return nil
}
