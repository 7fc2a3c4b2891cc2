package pipeline

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/lightsheet-rebuild/bomtool/internal/sheet"
)

// Excel serials accepted as dates: 1 is 1900-01-01, 2958465 is 9999-12-31.
const (
	minDateSerial = 1
	maxDateSerial = 2958465
)

// dateLayouts are the text date forms seen in purchasing sheets, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"1/2/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2-Jan-06",
}

// parseQuantity reads an integer count. Numbers truncate toward zero; text may carry a
// unit suffix ("5 pcs"). Anything else is absent.
func parseQuantity(v sheet.Value) (int, bool) {
	if v.IsNumber {
		return truncateInt(v.Number)
	}

	s := strings.ReplaceAll(strings.TrimSpace(v.Text), ",", "")
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return truncateInt(f)
	}

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func truncateInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

// parseCurrency reads a money amount, ignoring dollar signs, thousands separators and
// spaces. "N/A" and empty cells are absent.
func parseCurrency(v sheet.Value) (float64, bool) {
	if v.IsNumber {
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return 0, false
		}
		return v.Number, true
	}

	s := strings.Map(func(r rune) rune {
		if r == '$' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, v.Text)
	if s == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseDate reads a calendar date from an Excel serial or from text. date1904 selects
// the workbook's epoch for serials.
func parseDate(v sheet.Value, date1904 bool) (civil.Date, bool) {
	if v.IsNumber {
		return serialToDate(v.Number, date1904)
	}

	s := strings.TrimSpace(v.Text)
	if s == "" {
		return civil.Date{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return serialToDate(f, date1904)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

func serialToDate(serial float64, date1904 bool) (civil.Date, bool) {
	if math.IsNaN(serial) || serial < minDateSerial || serial > maxDateSerial {
		return civil.Date{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}
