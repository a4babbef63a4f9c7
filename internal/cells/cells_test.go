package cells

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ParamOrder(t *testing.T) {
	t.Parallel()

	c, err := New("Ga1", 8, []string{"Tip Ratio (%)"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{TempParam, "Tip Ratio (%)"}, c.Params)
	assert.Nil(t, c.Defaults[TempParam])
	assert.Nil(t, c.Defaults["Tip Ratio (%)"])
}

func TestNew_DefaultForUnknownParam(t *testing.T) {
	t.Parallel()

	_, err := New("Ga1", 8, nil, map[string]float64{"Tip Ratio (%)": 350})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a cell parameter")
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New("", 1, nil, nil)
	assert.Error(t, err)

	_, err = New("As", 0, nil, nil)
	assert.Error(t, err)

	_, err = New("As", -3, nil, nil)
	assert.Error(t, err)
}

func TestPresets(t *testing.T) {
	t.Parallel()

	t.Run("dual filament", func(t *testing.T) {
		t.Parallel()
		c, err := NewDualFilamentCell("Ga1", 8, 350)
		require.NoError(t, err)
		assert.Equal(t, []string{TempParam, "Tip Ratio (%)"}, c.Params)
		require.NotNil(t, c.Defaults["Tip Ratio (%)"])
		assert.Equal(t, 350.0, *c.Defaults["Tip Ratio (%)"])
	})

	t.Run("arsenic cracker", func(t *testing.T) {
		t.Parallel()
		c, err := NewArsenicCell("As", 1, 950)
		require.NoError(t, err)
		assert.Equal(t,
			[]string{TempParam, "Valve (%)", "Crack Temp (°C)", "Time after opening (min)"},
			c.Params)
		require.NotNil(t, c.Defaults["Crack Temp (°C)"])
		assert.Equal(t, 950.0, *c.Defaults["Crack Temp (°C)"])
		assert.Nil(t, c.Defaults["Valve (%)"])
	})

	t.Run("antimony cracker", func(t *testing.T) {
		t.Parallel()
		c, err := NewAntimonyCell("Sb", 11, 950, 800)
		require.NoError(t, err)
		assert.Equal(t,
			[]string{TempParam, "Valve (%)", "Crack Temp (°C)", "Cond Temp (°C)"},
			c.Params)
		require.NotNil(t, c.Defaults["Cond Temp (°C)"])
		assert.Equal(t, 800.0, *c.Defaults["Cond Temp (°C)"])
	})
}

func TestList_Lookup(t *testing.T) {
	t.Parallel()

	l := DefaultList()

	c, err := l.FindByPort(11)
	require.NoError(t, err)
	assert.Equal(t, "Sb", c.Name)

	c, err = l.FindByName("Ga1")
	require.NoError(t, err)
	assert.Equal(t, 8, c.Port)

	_, err = l.FindByPort(42)
	var unknown *UnknownChannelError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, 42, unknown.Port)

	_, err = l.FindByName("Bi")
	assert.ErrorAs(t, err, &unknown)
}

func TestNewList_Duplicates(t *testing.T) {
	t.Parallel()

	a, err := NewSingleFilamentCell("Al1", 10)
	require.NoError(t, err)
	b, err := NewSingleFilamentCell("Al1", 12)
	require.NoError(t, err)
	_, err = NewList(a, b)
	assert.Contains(t, err.Error(), "duplicate cell name")

	c, err := NewSingleFilamentCell("Al2", 10)
	require.NoError(t, err)
	_, err = NewList(a, c)
	assert.Contains(t, err.Error(), "duplicate cell port")
}

func TestParse_CellTable(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"cells": [
			{"name": "Ga1", "port": 8, "extra_params": ["Tip Ratio (%)"],
			 "defaults": {"Tip Ratio (%)": 350}},
			{"name": "Al1", "port": 10}
		]
	}`)

	l, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, l.Cells(), 2)

	c, err := l.FindByName("Ga1")
	require.NoError(t, err)
	require.NotNil(t, c.Defaults["Tip Ratio (%)"])
	assert.Equal(t, 350.0, *c.Defaults["Tip Ratio (%)"])
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`{`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"cells": []}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"cells": [{"name": "As", "port": 0}]}`))
	assert.Error(t, err)
}
