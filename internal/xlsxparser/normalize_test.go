package xlsxparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		" 3774 ": "3774",
		"134.0":  "134",
		"134.00": "134",
		"0134":   "0134",
		"12.5":   "12.5",
		"A-100":  "A-100",
		"":       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCode(in), "input %q", in)
	}
}

func TestParseEntryNumber(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "integer", in: "42", want: 42},
		{name: "float integer", in: "42.0", want: 42},
		{name: "zero", in: "0", want: 0},
		{name: "thousands", in: "1,042", want: 1042},
		{name: "fraction", in: "4.5", wantErr: true},
		{name: "text", in: "JE-1", wantErr: true},
		{name: "empty", in: " ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntryNumber(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		date1904 bool
		want     string
		wantErr  bool
	}{
		{name: "iso", in: "2024-01-01", want: "2024-01-01"},
		{name: "iso with time", in: "2024-01-01 00:00:00", want: "2024-01-01"},
		{name: "rfc3339", in: "2024-01-01T00:00:00Z", want: "2024-01-01"},
		{name: "serial", in: "45292", want: "2024-01-01"},
		{name: "serial 1904", in: "43830", date1904: true, want: "2024-01-01"},
		{name: "day first", in: "31/12/2023", want: "2023-12-31"},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "soon", wantErr: true},
		{name: "negative serial", in: "-1", wantErr: true},
		{name: "compact", in: "20240101", want: "2024-01-01"},
		{name: "compact invalid month", in: "20241301", wantErr: true},
		{name: "serial past year 9999", in: "9999999", wantErr: true},
		{name: "year before 1900", in: "0099-01-01", wantErr: true},
		{name: "month first short year", in: "01-02-06", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in, tt.date1904)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_XLSLayouts(t *testing.T) {
	got, err := parseDate("01-02-06", false, xlsDateLayouts)
	require.NoError(t, err)
	assert.Equal(t, "2006-01-02", got)

	got, err = parseDate("31/12/2023", false, xlsDateLayouts)
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", got)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "0.00"},
		{in: "-", want: "0.00"},
		{in: "100", want: "100.00"},
		{in: "1,234.5", want: "1234.50"},
		{in: "0.005", want: "0.01"},
		{in: "(12.50)", want: "-12.50"},
		{in: "0.30000000000000004", want: "0.30"},
		{in: "n/a", wantErr: true},
		{in: "1,234", want: "1234.00"},
		{in: "1,234,567.8", want: "1234567.80"},
		{in: "1000,50", wantErr: true},
		{in: "(12,5)", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got.StringFixed(2), "input %q", tt.in)
	}
}
