package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLeadCSV(t *testing.T) {
	input := `place_id,name,category,phone,rating,review_count
p1,La Parrilla de Palermo,restaurant,+54 11 4832-1098,4.6,213
p2,Bodegón El Trébol,restaurant,,4.1,58
`
	leads, err := readLeadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, leads, 2)

	assert.Equal(t, "p1", leads[0].PlaceID)
	assert.Equal(t, "La Parrilla de Palermo", leads[0].Name)
	assert.Equal(t, "restaurant", leads[0].Category)
	assert.InDelta(t, 4.6, leads[0].Rating, 0.001)
	assert.Equal(t, 213, leads[0].ReviewCount)
	assert.Equal(t, "new", leads[0].Status)

	assert.Empty(t, leads[1].Phone)
	assert.Equal(t, 58, leads[1].ReviewCount)
}

func TestReadLeadCSVMissingColumns(t *testing.T) {
	_, err := readLeadCSV(strings.NewReader("name\nSolo Nombre\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "place_id")
}

func TestReadLeadCSVRequiredFields(t *testing.T) {
	_, err := readLeadCSV(strings.NewReader("place_id,name\n,Sin ID\n"))
	require.Error(t, err)
}

func TestReadLeadCSVBadNumeric(t *testing.T) {
	_, err := readLeadCSV(strings.NewReader("place_id,name,rating\np1,X,cuatro\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rating")
}
