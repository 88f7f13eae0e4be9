package thais

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var roomPrefixPattern = regexp.MustCompile(`^(\d+)\s*-`)

// Rooms is a sorted set of available room identifiers.
type Rooms struct {
	IDs   []string
	Count int
}

// CSV renders the ids comma-joined.
func (r Rooms) CSV() string { return strings.Join(r.IDs, ",") }

// ParseRoomTitles keeps the numeric prefix of titles shaped "12 - Double".
func ParseRoomTitles(titles []string) Rooms {
	seen := make(map[string]struct{})
	for _, title := range titles {
		if n, ok := roomNumber(title); ok {
			seen[n] = struct{}{}
		}
	}
	return newRooms(seen)
}

func roomNumber(label string) (string, bool) {
	m := roomPrefixPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return "", false
	}
	// Normalize "07" and "7" to the same room.
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}

func newRooms(set map[string]struct{}) Rooms {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return Rooms{IDs: ids, Count: len(ids)}
}

// sortIDs orders numeric ids numerically and places any others after them.
func sortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, aErr := strconv.Atoi(ids[i])
		b, bErr := strconv.Atoi(ids[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}
