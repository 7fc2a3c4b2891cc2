package pipeline

import (
	"testing"

	"cloud.google.com/go/civil"

	"github.com/lightsheet-rebuild/bomtool/internal/sheet"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name   string
		value  sheet.Value
		want   float64
		wantOK bool
	}{
		{"dollar and thousands", sheet.Text("$1,234.50"), 1234.50, true},
		{"plain text", sheet.Text("27.5"), 27.5, true},
		{"spaces", sheet.Text(" $ 12.00 "), 12, true},
		{"numeric cell", sheet.Number(99.95), 99.95, true},
		{"negative", sheet.Text("-5"), -5, true},
		{"not available", sheet.Text("N/A"), 0, false},
		{"empty", sheet.Text(""), 0, false},
		{"only symbols", sheet.Text("$,"), 0, false},
		{"overflow", sheet.Text("1e400"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseCurrency(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("parseCurrency(%+v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("parseCurrency(%+v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name   string
		value  sheet.Value
		want   int
		wantOK bool
	}{
		{"integer text", sheet.Text("5"), 5, true},
		{"numeric cell", sheet.Number(3), 3, true},
		{"fraction truncates", sheet.Number(2.9), 2, true},
		{"fraction text truncates", sheet.Text("4.5"), 4, true},
		{"thousands", sheet.Text("1,200"), 1200, true},
		{"unit suffix", sheet.Text("5 pcs"), 5, true},
		{"zero", sheet.Text("0"), 0, true},
		{"negative", sheet.Text("-2"), -2, true},
		{"words", sheet.Text("several"), 0, false},
		{"empty", sheet.Text("  "), 0, false},
		{"sign only", sheet.Text("+"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseQuantity(tt.value)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseQuantity(%+v) = (%d, %v), want (%d, %v)", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := civil.Date{Year: 2024, Month: 3, Day: 15}

	tests := []struct {
		name     string
		value    sheet.Value
		date1904 bool
		want     civil.Date
		wantOK   bool
	}{
		{"serial 1900 system", sheet.Number(45366), false, want, true},
		{"serial text", sheet.Text("45366"), false, want, true},
		{"serial 1904 system", sheet.Number(43904), true, want, true},
		{"iso", sheet.Text("2024-03-15"), false, want, true},
		{"rfc3339", sheet.Text("2024-03-15T10:00:00Z"), false, want, true},
		{"us slashes", sheet.Text("3/15/2024"), false, want, true},
		{"year first slashes", sheet.Text("2024/03/15"), false, want, true},
		{"short month", sheet.Text("Mar 15, 2024"), false, want, true},
		{"long month", sheet.Text("March 15, 2024"), false, want, true},
		{"day month year", sheet.Text("15-Mar-2024"), false, want, true},
		{"day month short year", sheet.Text("15-Mar-24"), false, want, true},
		{"garbage", sheet.Text("next week"), false, civil.Date{}, false},
		{"empty", sheet.Text(""), false, civil.Date{}, false},
		{"negative serial", sheet.Number(-3), false, civil.Date{}, false},
		{"serial out of range", sheet.Number(1e9), false, civil.Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDate(tt.value, tt.date1904)
			if ok != tt.wantOK {
				t.Fatalf("parseDate(%+v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("parseDate(%+v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
