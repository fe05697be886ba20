package main

import (
	"regexp"
	"strconv"
	"strings"
)

const fingerprintSeparator = "|"

var hhmmPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// hhmmToInt maps "HH:MM" to HH*100+MM. Malformed input maps to 0.
func hhmmToInt(hhmm string) int {
	m := hhmmPattern.FindStringSubmatch(strings.TrimSpace(hhmm))
	if m == nil {
		return 0
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return h*100 + mins
}

// inRange tests t against an inclusive window. A window whose start is after
// its end wraps past midnight.
func inRange(t, start, end string) bool {
	v := hhmmToInt(t)
	a := hhmmToInt(start)
	b := hhmmToInt(end)
	if a <= b {
		return a <= v && v <= b
	}
	return v >= a || v <= b
}

// matchingOffers keeps the offers departing inside the window, in input order.
func matchingOffers(offers []RouteOffer, start, end string) []RouteOffer {
	var out []RouteOffer
	for _, o := range offers {
		if inRange(o.Depart, start, end) {
			out = append(out, o)
		}
	}
	return out
}

// fingerprint summarizes the matching offers as "dep->arr|dep->arr".
// It is empty iff nothing matched.
func fingerprint(offers []RouteOffer, start, end string) string {
	picked := []string{}
	for _, o := range matchingOffers(offers, start, end) {
		picked = append(picked, o.Depart+"->"+o.Arrive)
	}
	return strings.Join(picked, fingerprintSeparator)
}

// hasChanged is false for an empty fingerprint: losing all matches is not
// something users get notified about.
func hasChanged(newFingerprint, stored string) bool {
	return newFingerprint != "" && newFingerprint != stored
}

// fingerprintPairs splits a stored fingerprint back into depart/arrive pairs.
func fingerprintPairs(fp string) [][2]string {
	var out [][2]string
	for _, part := range strings.Split(fp, fingerprintSeparator) {
		dep, arr, ok := strings.Cut(strings.TrimSpace(part), "->")
		if !ok {
			continue
		}
		out = append(out, [2]string{dep, arr})
	}
	return out
}
