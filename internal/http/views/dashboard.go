package views

import (
	"strconv"

	"github.com/open-gsa/gsa/internal/http/viewmodels"
)

// footnote repeats the total and the applied filter below the data rows.
func footnote(data viewmodels.DashboardViewData) string {
	text := "Total: " + strconv.Itoa(data.Total)
	if data.Filter != "" {
		text += " (Applied filter: " + data.Filter + ")"
	}
	return text
}
