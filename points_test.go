package main

import (
	"errors"
	"testing"
)

func TestPointIndex_Resolve(t *testing.T) {
	tests := []struct {
		token  string
		wantID string
	}{
		{"78", "78"},
		{"2376", "2376"},
		{"Vilnius", "78"},
		{"  MINSK ", "2"},
		{"минск", "2"},
		{"Vilnius Airport", "2376"},
		{"vno", "2376"},
		{"airport", "2376"},
		{"mins", "2"},
		{"вильн", ""}, // "вильнюс" and "аэропорт вильнюс"
		{"vil", ""},
		{"99", ""},
		{"riga", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p, err := points.Resolve(tt.token)
			if tt.wantID == "" {
				if !errors.Is(err, ErrUnknownPoint) {
					t.Errorf("Resolve(%q) = (%+v, %v), want ErrUnknownPoint", tt.token, p, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.token, err)
			}
			if p.ID != tt.wantID {
				t.Errorf("Resolve(%q).ID = %s, want %s", tt.token, p.ID, tt.wantID)
			}
		})
	}
}

func TestPointIndex_CanonicalByID(t *testing.T) {
	if name, ok := points.CanonicalByID("2376"); !ok || name != "Vilnius Airport" {
		t.Errorf("CanonicalByID(2376) = (%q, %v)", name, ok)
	}
	if _, ok := points.CanonicalByID("1"); ok {
		t.Error("CanonicalByID(1) should not be found")
	}
}

func TestPointIndex_ListAndSearch(t *testing.T) {
	ids := func(ps []Point) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}
	equal := func(a, b []string) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	if got := ids(points.List()); !equal(got, []string{"2", "78", "2376"}) {
		t.Errorf("List = %v", got)
	}
	if got := ids(points.Search("VIL")); !equal(got, []string{"78", "2376"}) {
		t.Errorf("Search(VIL) = %v", got)
	}
	if got := ids(points.Search("мин")); !equal(got, []string{"2"}) {
		t.Errorf("Search(мин) = %v", got)
	}
	if got := points.Search("riga"); len(got) != 0 {
		t.Errorf("Search(riga) = %+v, want none", got)
	}
}
