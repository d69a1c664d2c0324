package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.30","b":7.5,"c":"-4"}`), &v))
	assert.Equal(t, Cents(1230), v.A)
	assert.Equal(t, Cents(750), v.B)
	assert.Equal(t, Cents(-400), v.C)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"12.30","b":"7.50","c":"-4.00"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"twelve"}`), &v))
}

func TestDateJSON(t *testing.T) {
	var v struct {
		Due  Date `json:"due"`
		Open Date `json:"open"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"due":"2025-03-10","open":null}`), &v))
	assert.Equal(t, NewDate(2025, 3, 10), v.Due)
	assert.True(t, v.Open.IsEmpty())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2025-03-10","open":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"due":"10/03/2025"}`), &v))
}
