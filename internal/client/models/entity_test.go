package models

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/placekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntity() *Entity {
	return &Entity{
		EntityID: "e1",
		Type:     EntityTypeRestaurant,
		Name:     "Trattoria Uno",
		Status:   StatusActive,
	}
}

func TestEntityValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Entity)
		wantErr bool
	}{
		{"valid", func(e *Entity) {}, false},
		{"unknown type", func(e *Entity) { e.Type = "spaceport" }, true},
		{"unknown status", func(e *Entity) { e.Status = "gone" }, true},
		{"empty name", func(e *Entity) { e.Name = "" }, true},
		{"name too long", func(e *Entity) { e.Name = strings.Repeat("x", 501) }, true},
		{"name at limit", func(e *Entity) { e.Name = strings.Repeat("x", 500) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntity()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrValidation)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRecordsFromStrings(t *testing.T) {
	records, err := RecordsFromStrings([]string{"cuisine=pasta", "price=cheap"})
	require.NoError(t, err)
	assert.Equal(t, []MetadataRecord{
		{Category: "cuisine", Value: "pasta"},
		{Category: "price", Value: "cheap"},
	}, records)

	_, err = RecordsFromStrings([]string{"noseparator"})
	assert.ErrorIs(t, err, common.ErrIncorrectRecord)

	// value may itself contain '='
	records, err = RecordsFromStrings([]string{"url=https://a.example?q=1"})
	require.NoError(t, err)
	assert.Equal(t, "https://a.example?q=1", records[0].Value)
}

func TestCurationValidate(t *testing.T) {
	c := &Curation{CurationID: "c1", EntityID: "e1", CuratorID: "u1"}
	require.NoError(t, c.Validate())

	c.EntityID = ""
	require.ErrorIs(t, c.Validate(), common.ErrUnknownEntity)

	c.EntityID = "e1"
	c.CuratorID = ""
	require.ErrorIs(t, c.Validate(), common.ErrValidation)
}
