// Package export writes a pair's restaurant log to spreadsheets and reads
// it back.
package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/foodiepair/foodiepair-cli/internal/model"
)

// SheetName is the worksheet holding one row per restaurant.
const SheetName = "Restaurants"

var header = []string{
	"ID", "Name", "Status", "Cuisine", "Price", "Favorite", "Address",
	"Lat", "Lng", "Visit date", "Average score", "Ratings",
}

const dateLayout = "2006-01-02"

// WriteXLSX writes restaurants with their rating summaries as an XLSX workbook.
func WriteXLSX(w io.Writer, restaurants []model.Restaurant, ratings []model.Rating) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}

	byRestaurant := make(map[string][]model.Rating)
	for _, r := range ratings {
		byRestaurant[r.RestaurantID] = append(byRestaurant[r.RestaurantID], r)
	}

	for _, r := range restaurants {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ID)
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(string(r.VisitStatus))
		row.AddCell().SetString(r.CuisineType)
		row.AddCell().SetInt(r.PriceRange)
		row.AddCell().SetString(yesNo(r.IsFavorite))
		row.AddCell().SetString(r.Address)
		addOptionalFloat(row, r.Lat)
		addOptionalFloat(row, r.Lng)
		if r.VisitDate != nil {
			row.AddCell().SetString(r.VisitDate.UTC().Format(dateLayout))
		} else {
			row.AddCell().SetString("")
		}

		rs := byRestaurant[r.ID]
		if len(rs) > 0 {
			row.AddCell().SetFloat(averageScore(rs))
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetInt(len(rs))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// ReadXLSX reads restaurants back from a workbook written by WriteXLSX.
// Rating summary columns are ignored.
func ReadXLSX(r io.Reader, pairID string) ([]model.Restaurant, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "export: read workbook")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "export: open workbook")
	}
	sheet, ok := f.Sheet[SheetName]
	if !ok {
		return nil, eris.Errorf("export: sheet %q not found", SheetName)
	}

	var out []model.Restaurant
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := rowToStrings(row)
		if len(cells) < 7 || strings.TrimSpace(cells[1]) == "" {
			continue
		}
		rest, err := parseRow(cells, pairID)
		if err != nil {
			return nil, eris.Wrapf(err, "export: row %d", i+1)
		}
		out = append(out, rest)
	}
	return out, nil
}

func parseRow(cells []string, pairID string) (model.Restaurant, error) {
	get := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	r := model.Restaurant{
		ID:          get(0),
		PairID:      pairID,
		Name:        get(1),
		VisitStatus: model.VisitStatus(get(2)),
		CuisineType: get(3),
		Address:     get(6),
	}
	if !r.VisitStatus.Valid() {
		return r, eris.Errorf("unknown status %q", r.VisitStatus)
	}
	if v := get(4); v != "" {
		price, err := strconv.Atoi(v)
		if err != nil {
			return r, eris.Wrapf(err, "price %q", v)
		}
		r.PriceRange = price
	}
	switch strings.ToLower(get(5)) {
	case "yes", "true", "1":
		r.IsFavorite = true
	}

	lat, err := parseOptionalFloat(get(7))
	if err != nil {
		return r, eris.Wrap(err, "lat")
	}
	lng, err := parseOptionalFloat(get(8))
	if err != nil {
		return r, eris.Wrap(err, "lng")
	}
	r.Lat, r.Lng = lat, lng

	if v := get(9); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return r, eris.Wrapf(err, "visit date %q", v)
		}
		r.VisitDate = &t
	}
	return r, nil
}

func addOptionalFloat(row *xlsx.Row, v *float64) {
	if v == nil {
		row.AddCell().SetString("")
		return
	}
	// Coordinates go in as text so they survive the round trip exactly.
	row.AddCell().SetString(strconv.FormatFloat(*v, 'f', -1, 64))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// averageScore is the mean over every sub-score of every rating.
func averageScore(ratings []model.Rating) float64 {
	var sum float64
	for _, r := range ratings {
		sum += r.Average()
	}
	return sum / float64(len(ratings))
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
