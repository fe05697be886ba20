package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// telegram rejects longer messages
const maxMessageLen = 4096

var ErrInvalidSubscribeArgs = errors.New("invalid subscribe arguments")

// commandArgs drops the "/command" word.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields[1:]
}

// parseSubscribeArgs reads "<date> <from> <to> <fromHH:MM> <toHH:MM>".
func parseSubscribeArgs(userID int64, args []string, idx *pointIndex) (NewSubscription, error) {
	if len(args) < 5 {
		return NewSubscription{}, fmt.Errorf("%w: need 5 arguments, got %d", ErrInvalidSubscribeArgs, len(args))
	}

	date := args[0]
	if _, err := time.Parse("02.01.2006", date); err != nil {
		return NewSubscription{}, fmt.Errorf("%w: date %q is not DD.MM.YYYY", ErrInvalidSubscribeArgs, date)
	}

	depFrom, depTo := args[len(args)-2], args[len(args)-1]
	for _, hhmm := range []string{depFrom, depTo} {
		if !validHHMM(hhmm) {
			return NewSubscription{}, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidSubscribeArgs, hhmm)
		}
	}

	from, err := idx.Resolve(args[1])
	if err != nil {
		return NewSubscription{}, err
	}
	to, err := idx.Resolve(args[2])
	if err != nil {
		return NewSubscription{}, err
	}

	return NewSubscription{
		UserID:      userID,
		CityFromID:  from.ID,
		CityToID:    to.ID,
		FromName:    from.Canonical,
		ToName:      to.Canonical,
		DateStr:     date,
		DepFromHHMM: depFrom,
		DepToHHMM:   depTo,
	}, nil
}

func validHHMM(s string) bool {
	m := hhmmPattern.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return h < 24 && mins < 60
}

func parseUnix(s string) (int64, bool) {
	ts, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || ts <= 0 {
		return 0, false
	}
	return ts, true
}

// splitMessage cuts text on line breaks into pieces of at most limit runes.
// A single line longer than limit is cut mid-line.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()
			r := []rune(line)
			chunks = append(chunks, string(r[:limit]))
			line = string(r[limit:])
		}

		n := utf8.RuneCountInString(line)
		if curLen > 0 && curLen+1+n > limit {
			flush()
		}
		if curLen > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()

	return chunks
}
