package sync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldDiff_EqualDocuments(t *testing.T) {
	a := json.RawMessage(`{"name":"Uno","data":{"city":"Napoli"},"version":2}`)
	b := json.RawMessage(`{"data":{"city":"Napoli"},"name":"Uno","version":7}`)

	diff, err := fieldDiff(a, b)
	require.NoError(t, err)
	assert.Empty(t, diff, "key order and bookkeeping fields never diff")
}

func TestFieldDiff_DivergingField(t *testing.T) {
	a := json.RawMessage(`{"name":"Uno","status":"active"}`)
	b := json.RawMessage(`{"name":"Due","status":"active"}`)

	diff, err := fieldDiff(a, b)
	require.NoError(t, err)
	require.Len(t, diff, 1)
	assert.Equal(t, "name", diff[0].Field)
	assert.JSONEq(t, `"Uno"`, string(diff[0].Local))
	assert.JSONEq(t, `"Due"`, string(diff[0].Server))
}

func TestFieldDiff_NestedStructures(t *testing.T) {
	a := json.RawMessage(`{"notes":{"public":"nice","private":"meh"}}`)
	b := json.RawMessage(`{"notes":{"private":"meh","public":"nice"}}`)
	diff, err := fieldDiff(a, b)
	require.NoError(t, err)
	assert.Empty(t, diff)

	c := json.RawMessage(`{"notes":{"public":"loud","private":"meh"}}`)
	diff, err = fieldDiff(a, c)
	require.NoError(t, err)
	require.Len(t, diff, 1)
	assert.Equal(t, "notes", diff[0].Field)
}

func TestFieldDiff_OneSidedField(t *testing.T) {
	a := json.RawMessage(`{"name":"Uno","extra":"x"}`)
	b := json.RawMessage(`{"name":"Uno"}`)

	diff, err := fieldDiff(a, b)
	require.NoError(t, err)
	require.Len(t, diff, 1)
	assert.Equal(t, "extra", diff[0].Field)
	assert.Equal(t, "null", string(diff[0].Server))
}

func TestFieldDiff_SortedOutput(t *testing.T) {
	a := json.RawMessage(`{"zeta":1,"alpha":1,"mid":1}`)
	b := json.RawMessage(`{"zeta":2,"alpha":2,"mid":2}`)

	diff, err := fieldDiff(a, b)
	require.NoError(t, err)
	require.Len(t, diff, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"},
		[]string{diff[0].Field, diff[1].Field, diff[2].Field})
}

func TestFieldDiff_MalformedPayload(t *testing.T) {
	_, err := fieldDiff(json.RawMessage(`{`), json.RawMessage(`{}`))
	require.Error(t, err)
}
