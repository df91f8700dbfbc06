package amount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// english groups thousands with commas, exercising a non-space separator.
var english = NewConvention("english", '.', ',', false)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		conv Convention
		want string
	}{
		{"comma with spaces", "+12 345,67", Comma, "12345.67"},
		{"comma negative", "-1 000,00", Comma, "-1000"},
		{"nbsp thousands", "12\u00a0345,67\u00a0₽", Comma, "12345.67"},
		{"narrow nbsp and minus sign", "\u22125\u202f000,50", Comma, "-5000.5"},
		{"dot", "12 345.67", Dot, "12345.67"},
		{"either comma", "250,00 RUR", Either, "250"},
		{"either dot", "-99.90 руб.", Either, "-99.9"},
		{"english", "$12,345.67", english, "12345.67"},
		{"integer", "500", Comma, "500"},
		{"sign separated", "- 300,00", Comma, "-300"},
		{"first match wins", "abc 10,50 / 20,00", Comma, "10.5"},
		{"no digits", "n/a", Comma, "0"},
		{"empty", "", Dot, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.in, tt.conv)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParse_ZeroConvention(t *testing.T) {
	assert.Equal(t, "1.5", Parse("1,5", Convention{}).String())
}

func TestFormat(t *testing.T) {
	d := decimal.RequireFromString("-12345.6")
	assert.Equal(t, "-12 345,60", Format(d, Comma))
	assert.Equal(t, "-12 345.60", Format(d, Dot))
	assert.Equal(t, "-12,345.60", Format(d, english))
	assert.Equal(t, "0.00", Format(decimal.Zero, Dot))
	assert.Equal(t, "999,00", Format(decimal.NewFromInt(999), Comma))
	assert.Equal(t, "1 000 000,00", Format(decimal.NewFromInt(1000000), Comma))
}

func TestFormatParse_RoundTrip(t *testing.T) {
	values := []string{"0.01", "-0.01", "1", "12.5", "-999.99", "1000", "12345.67", "-1234567.89", "1000000"}
	for _, conv := range []Convention{Comma, Dot, Either, english} {
		for _, v := range values {
			d := decimal.RequireFromString(v)
			got := Parse(Format(d, conv), conv)
			assert.True(t, got.Equal(d), "%s: %s -> %q -> %s", conv.Name, v, Format(d, conv), got)
		}
	}
}

func TestFromFloat(t *testing.T) {
	assert.Equal(t, "-1500.5", FromFloat(-1500.5).String())
}
