package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/foodiepair/foodiepair-cli/internal/geo"
	"github.com/foodiepair/foodiepair-cli/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

// table writes tab-aligned rows; the first row is the header.
func table(w io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return eris.Wrap(err, "write table")
		}
	}
	return eris.Wrap(tw.Flush(), "flush table")
}

func restaurantRows(restaurants []model.Restaurant) [][]string {
	rows := [][]string{{"ID", "NAME", "STATUS", "CUISINE", "PRICE", "FAVORITE"}}
	for _, r := range restaurants {
		rows = append(rows, []string{
			r.ID,
			r.Name,
			string(r.VisitStatus),
			dash(r.CuisineType),
			dash(strings.Repeat("$", r.PriceRange)),
			yesNo(r.IsFavorite),
		})
	}
	return rows
}

func formatDistance(km *float64) string {
	if km == nil {
		return "-"
	}
	return geo.FormatKM(*km) + " km"
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 1, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
