package main

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCommandArgs(t *testing.T) {
	got := commandArgs("/subscribe  01.09.2025 78   2 20:00 23:00")
	want := []string{"01.09.2025", "78", "2", "20:00", "23:00"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("commandArgs = %q, want %q", got, want)
	}
	if got := commandArgs("/subs"); len(got) != 0 {
		t.Errorf("commandArgs(/subs) = %q, want none", got)
	}
	if got := commandArgs("   "); got != nil {
		t.Errorf("commandArgs(blank) = %q, want nil", got)
	}
}

func TestParseSubscribeArgs(t *testing.T) {
	ns, err := parseSubscribeArgs(7, []string{"01.09.2025", "Vilnius", "2", "20:00", "23:00"}, points)
	if err != nil {
		t.Fatalf("parseSubscribeArgs failed: %v", err)
	}
	want := NewSubscription{
		UserID:      7,
		CityFromID:  "78",
		CityToID:    "2",
		FromName:    "Vilnius",
		ToName:      "Minsk",
		DateStr:     "01.09.2025",
		DepFromHHMM: "20:00",
		DepToHHMM:   "23:00",
	}
	if ns != want {
		t.Errorf("parseSubscribeArgs = %+v, want %+v", ns, want)
	}

	// overnight windows are allowed
	if _, err := parseSubscribeArgs(7, []string{"01.09.2025", "78", "2", "23:00", "01:00"}, points); err != nil {
		t.Errorf("overnight window rejected: %v", err)
	}
}

func TestParseSubscribeArgs_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"too few", []string{"01.09.2025", "78", "2", "20:00"}, ErrInvalidSubscribeArgs},
		{"bad date", []string{"2025-09-01", "78", "2", "20:00", "23:00"}, ErrInvalidSubscribeArgs},
		{"bad time", []string{"01.09.2025", "78", "2", "20:00", "25:00"}, ErrInvalidSubscribeArgs},
		{"minutes", []string{"01.09.2025", "78", "2", "20:60", "23:00"}, ErrInvalidSubscribeArgs},
		{"unknown from", []string{"01.09.2025", "riga", "2", "20:00", "23:00"}, ErrUnknownPoint},
		{"unknown to id", []string{"01.09.2025", "78", "99", "20:00", "23:00"}, ErrUnknownPoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseSubscribeArgs(1, tt.args, points); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidHHMM(t *testing.T) {
	for s, want := range map[string]bool{
		"00:00": true,
		"9:05":  true,
		"23:59": true,
		"24:00": false,
		"12:5":  false,
		"1200":  false,
		"":      false,
	} {
		if got := validHHMM(s); got != want {
			t.Errorf("validHHMM(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParseUnix(t *testing.T) {
	if ts, ok := parseUnix(" 1700000000 "); !ok || ts != 1_700_000_000 {
		t.Errorf("parseUnix = (%d, %v)", ts, ok)
	}
	for _, bad := range []string{"", "0", "-5", "abc"} {
		if _, ok := parseUnix(bad); ok {
			t.Errorf("parseUnix(%q) should fail", bad)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("splitMessage(short) = %q", got)
	}

	text := "aaaa\nbbbb\ncccc"
	got := splitMessage(text, 9)
	if strings.Join(got, "|") != "aaaa\nbbbb|cccc" {
		t.Errorf("splitMessage = %q", got)
	}

	long := strings.Repeat("я", 25)
	got = splitMessage("head\n"+long, 10)
	for _, chunk := range got {
		if n := utf8.RuneCountInString(chunk); n > 10 {
			t.Errorf("chunk %q has %d runes, limit 10", chunk, n)
		}
	}
	if strings.Join(got, "") != "head"+long {
		t.Errorf("chunks lost text: %q", got)
	}
}
