package listview

import (
	"strconv"

	"github.com/open-gsa/gsa/internal/gmp"
)

// RangeText is "first - last of filtered", or "0 - 0 of 0" when nothing
// matched.
func RangeText(c gmp.Counts) string {
	if c.Length <= 0 {
		return "0 - 0 of " + strconv.Itoa(c.Filtered)
	}
	return strconv.Itoa(c.First) + " - " + strconv.Itoa(c.Last()) + " of " + strconv.Itoa(c.Filtered)
}
