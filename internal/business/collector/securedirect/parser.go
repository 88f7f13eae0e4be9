package securedirect

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sylvlondon/hotelmonitoring/pkg/util"
)

var (
	roomWordPattern     = regexp.MustCompile(`(?i)chambre|room`)
	roomNumberPattern   = regexp.MustCompile(`\b(\d{1,3})\b`)
	stockCounterPattern = regexp.MustCompile(`(?i)(?:plus que|more than)\s+(\d+)\s+(?:disponibles?(?:\(s\))?|available)`)
)

// NumberedRooms is the parse of a numbered-room listing.
type NumberedRooms struct {
	IDs   []int
	Count int
}

// CSV renders the ids ascending and comma-joined.
func (n NumberedRooms) CSV() string {
	parts := make([]string, len(n.IDs))
	for i, id := range n.IDs {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// ParseNumberedTitles extracts distinct room numbers from listing titles.
// Titles that do not mention a room are ignored.
func ParseNumberedTitles(titles []string) NumberedRooms {
	seen := make(map[int]struct{})
	for _, title := range titles {
		if !roomWordPattern.MatchString(title) {
			continue
		}
		for _, m := range roomNumberPattern.FindAllStringSubmatch(title, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			seen[n] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return NumberedRooms{IDs: ids, Count: len(ids)}
}

// CategoryCount is the remaining stock of one room category.
type CategoryCount struct {
	Category string
	Count    int
}

// StockCounter is the parse of "only N left" widgets.
type StockCounter struct {
	Categories     []CategoryCount
	SumBeforeCap   int
	AvailableCount int
}

// CSV renders category:count pairs in encounter order.
func (s StockCounter) CSV() string {
	parts := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		parts[i] = c.Category + ":" + strconv.Itoa(c.Count)
	}
	return strings.Join(parts, ",")
}

// ParseStockCounter takes, for each category, the largest counter found in
// its blocks, sums them and caps the sum at capacity. The sum assumes each
// category counter is independent stock.
func ParseStockCounter(blocks []util.CategoryBlock, capacity int) StockCounter {
	index := make(map[string]int)
	var cats []CategoryCount
	for _, b := range blocks {
		max := 0
		for _, m := range stockCounterPattern.FindAllStringSubmatch(b.Text, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n > max {
				max = n
			}
		}
		if i, ok := index[b.Category]; ok {
			if max > cats[i].Count {
				cats[i].Count = max
			}
			continue
		}
		index[b.Category] = len(cats)
		cats = append(cats, CategoryCount{Category: b.Category, Count: max})
	}

	sum := 0
	for _, c := range cats {
		sum += c.Count
	}
	available := sum
	if available > capacity {
		available = capacity
	}
	if available < 0 {
		available = 0
	}
	return StockCounter{Categories: cats, SumBeforeCap: sum, AvailableCount: available}
}
