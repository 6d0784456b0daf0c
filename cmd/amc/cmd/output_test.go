package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short", in: "Golf", max: 10, want: "Golf"},
		{name: "exact", in: "Octavia", max: 7, want: "Octavia"},
		{name: "long", in: "Mercedes-Benz C 220", max: 10, want: "Mercede..."},
		{name: "multibyte", in: "Škoda Octavia Combi", max: 8, want: "Škoda..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, truncate(tt.in, tt.max))
		})
	}
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want string
	}{
		{in: 0, want: "€0"},
		{in: 950, want: "€950"},
		{in: 2900, want: "€2,900"},
		{in: 1250000, want: "€1,250,000"},
		{in: -4500, want: "€-4,500"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatPrice(tt.in))
		})
	}
}

func TestPrintListingsTable(t *testing.T) {
	t.Parallel()

	fav := domain.Listing{ID: 3, Title: "BMW 320d 2016", Price: 16500, YearOfManufacture: 2016, FuelType: domain.FuelDiesel}
	fav.SetFavorite(true)
	unknown := domain.Listing{ID: 7, Title: "Ford Focus 2015", Price: 6200, YearOfManufacture: 2015}

	var buf bytes.Buffer
	require.NoError(t, printListingsTable(&buf, []domain.Listing{fav, unknown}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "FAV")
	assert.Contains(t, string(lines[1]), "€16,500")
	assert.True(t, bytes.HasSuffix(lines[1], []byte("*")))
	assert.True(t, bytes.HasSuffix(lines[2], []byte("-")))
}
