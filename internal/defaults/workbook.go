package defaults

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/identifier"
	"github.com/wonny/acr/pkg/logger"
)

// notesSheet is documentation, not data
const notesSheet = "Notes"

// ReadWorkbook reads the manual default tracker: one sheet per year (every sheet
// except Notes), header row with mlTicker, mlName, defaultDate and optionally cusip.
// Rows without a ticker or name are not tied to an index constituent and are dropped.
func ReadWorkbook(path string, log *logger.Logger) ([]Event, error) {
	if log == nil {
		log = logger.Nop()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var out []Event
	for _, sheet := range f.GetSheetList() {
		if strings.EqualFold(sheet, notesSheet) {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		events, err := parseSheet(sheet, rows)
		if err != nil {
			return nil, err
		}

		for _, ev := range events {
			key := ev.Ticker + "|" + ev.Name + "|" + ev.Date.Format(contracts.DateLayout)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, ev)
		}
		log.WithFields(map[string]interface{}{
			"sheet":  sheet,
			"events": len(events),
		}).Debug("Workbook sheet parsed")
	}
	return out, nil
}

func parseSheet(sheet string, rows [][]string) ([]Event, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"mlticker", "mlname", "defaultdate"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("sheet %s: missing column %s", sheet, req)
		}
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Event
	for n, row := range rows[1:] {
		ticker, name := get(row, "mlticker"), get(row, "mlname")
		if ticker == "" || name == "" {
			continue
		}
		date, err := cellDate(get(row, "defaultdate"))
		if err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", sheet, n+2, err)
		}
		out = append(out, Event{
			Source: SourceManual,
			Ticker: ticker,
			Name:   name,
			CUSIP:  identifier.Normalize(get(row, "cusip"), identifier.CUSIP),
			Rating: "Manual D",
			Date:   date,
		})
	}
	return out, nil
}

// cellDate accepts formatted dates and raw spreadsheet serials
func cellDate(s string) (time.Time, error) {
	if t, err := contracts.ParseDate(s); err == nil {
		return t, nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed default date %q", s)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, fmt.Errorf("default date serial %q: %w", s, err)
	}
	return contracts.DateOf(t), nil
}
