package main

import "testing"

func TestInRange(t *testing.T) {
	tests := []struct {
		name       string
		time       string
		start, end string
		want       bool
	}{
		{"inside", "22:59", "20:00", "23:00", true},
		{"after end", "23:01", "20:00", "23:00", false},
		{"start is inclusive", "20:00", "20:00", "23:00", true},
		{"end is inclusive", "23:00", "20:00", "23:00", true},
		{"before start", "19:59", "20:00", "23:00", false},
		{"wrap, late evening", "23:30", "23:00", "01:00", true},
		{"wrap, after midnight", "00:30", "23:00", "01:00", true},
		{"wrap, midday", "12:00", "23:00", "01:00", false},
		{"single digit hour", "7:05", "07:00", "08:00", true},
		{"malformed time is midnight", "garbage", "00:00", "01:00", true},
		{"malformed window start is midnight", "00:00", "xx", "01:00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inRange(tt.time, tt.start, tt.end); got != tt.want {
				t.Errorf("inRange(%q, %q, %q) = %v, want %v", tt.time, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestHHMMToInt(t *testing.T) {
	tests := map[string]int{
		"00:00": 0,
		"09:05": 905,
		"23:59": 2359,
		"7:30":  730,
		"2130":  0,
		"":      0,
		"ab:cd": 0,
	}
	for in, want := range tests {
		if got := hhmmToInt(in); got != want {
			t.Errorf("hhmmToInt(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	offers := []RouteOffer{
		{Depart: "18:00", Arrive: "20:10"},
		{Depart: "21:00", Arrive: "21:45"},
		{Depart: "22:30", Arrive: "23:10"},
	}

	got := fingerprint(offers, "20:00", "23:00")
	want := "21:00->21:45|22:30->23:10"
	if got != want {
		t.Errorf("fingerprint = %q, want %q", got, want)
	}

	if again := fingerprint(offers, "20:00", "23:00"); again != got {
		t.Errorf("fingerprint is not deterministic: %q vs %q", again, got)
	}

	swapped := []RouteOffer{offers[0], offers[2], offers[1]}
	if fp := fingerprint(swapped, "20:00", "23:00"); fp == got {
		t.Errorf("swapping matching offers should change the fingerprint, got %q for both", fp)
	}
}

func TestFingerprint_EmptyIffNoMatches(t *testing.T) {
	offers := []RouteOffer{{Depart: "10:00", Arrive: "12:00"}}

	if fp := fingerprint(offers, "20:00", "23:00"); fp != "" {
		t.Errorf("fingerprint = %q, want empty", fp)
	}
	if fp := fingerprint(nil, "20:00", "23:00"); fp != "" {
		t.Errorf("fingerprint(nil) = %q, want empty", fp)
	}
	if fp := fingerprint(offers, "09:00", "11:00"); fp == "" {
		t.Error("fingerprint should not be empty when an offer matches")
	}
}

func TestHasChanged(t *testing.T) {
	tests := []struct {
		newFP, stored string
		want          bool
	}{
		{"21:00->21:45", "", true},
		{"21:00->21:45", "21:00->21:45", false},
		{"21:00->21:45", "22:30->23:10", true},
		{"", "21:00->21:45", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := hasChanged(tt.newFP, tt.stored); got != tt.want {
			t.Errorf("hasChanged(%q, %q) = %v, want %v", tt.newFP, tt.stored, got, tt.want)
		}
	}
}

func TestFingerprintPairs(t *testing.T) {
	pairs := fingerprintPairs("21:00->21:45|22:30->23:10| |bogus")
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2: %v", len(pairs), pairs)
	}
	if pairs[1] != [2]string{"22:30", "23:10"} {
		t.Errorf("pairs[1] = %v", pairs[1])
	}
	if got := fingerprintPairs(""); len(got) != 0 {
		t.Errorf("fingerprintPairs(\"\") = %v, want none", got)
	}
}
