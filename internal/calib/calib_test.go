package calib

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/fsutil"
	"github.com/banshee-data/fluxlog/internal/reading"
)

var calTime = time.Date(2021, 2, 3, 11, 39, 38, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func ga1(t *testing.T) *cells.Cell {
	t.Helper()
	c, err := cells.DefaultList().FindByName("Ga1")
	require.NoError(t, err)
	return c
}

func calReading(t *testing.T, current float64) *reading.CorrectedReading {
	t.Helper()
	return &reading.CorrectedReading{
		Timestamp: calTime,
		Cell:      ga1(t),
		Params: map[string]*float64{
			cells.TempParam: ptr(950),
			"Tip Ratio (%)": ptr(350),
		},
		Current:            current,
		SNR:                ptr(100),
		SignalToBackground: 60,
	}
}

func TestIsGroupIII(t *testing.T) {
	t.Parallel()

	registry := cells.DefaultList()
	for name, want := range map[string]bool{
		"Ga1": true, "Ga2": true, "In1": true, "In2": true,
		"Al1": true, "Al2": true, "As": false, "Sb": false,
	} {
		c, err := registry.FindByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, IsGroupIII(c), name)
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	in := Input{
		Growth:    "G1234",
		TargetMIG: 12.0,
		Cell:      ga1(t),
		Readings: []*reading.CorrectedReading{
			calReading(t, 12.0),
			calReading(t, 12.3),
			calReading(t, 12.5),
		},
	}

	message, summary, err := Report(in)
	require.NoError(t, err)

	assert.Contains(t, message, "Cell: Ga1")
	assert.Contains(t, message, "Growth: G1234")
	assert.Contains(t, message, "Timestamp: 2021-02-03 11:39:38")
	assert.Contains(t, message, "Ga1 Temp (°C): 950")
	assert.Contains(t, message, "Ga1 Tip Ratio (%): 350")
	assert.Contains(t, message, "Found 3 MIG readings:")
	// avg of last two = (12.3+12.5)/2 = 12.4; ratio = 12.4/12.0
	assert.Contains(t, message, "Average of last two (nA): 12.4")
	assert.Contains(t, message, "A coef correction: 1.03333333333")
	assert.Contains(t, summary, "Ga1 correction:")
	assert.Contains(t, summary, "Min sig-to-noise: 100")
}

func TestReport_SNRUnavailable(t *testing.T) {
	t.Parallel()

	a := calReading(t, 12.0)
	b := calReading(t, 12.5)
	a.SNR = nil
	b.SNR = nil

	message, summary, err := Report(Input{
		Growth: "G1", TargetMIG: 12.0, Cell: ga1(t),
		Readings: []*reading.CorrectedReading{a, b},
	})
	require.NoError(t, err)
	assert.Contains(t, message, "sig/noise=n/a")
	assert.Contains(t, summary, "Min sig-to-noise: n/a")
}

func TestReport_TooFewReadings(t *testing.T) {
	t.Parallel()

	_, _, err := Report(Input{
		Growth: "G1", TargetMIG: 12.0, Cell: ga1(t),
		Readings: []*reading.CorrectedReading{calReading(t, 12.0)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 readings")
}

func TestReport_ZeroTarget(t *testing.T) {
	t.Parallel()

	_, _, err := Report(Input{
		Growth: "G1", TargetMIG: 0, Cell: ga1(t),
		Readings: []*reading.CorrectedReading{calReading(t, 12.0), calReading(t, 12.1)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target MIG must be nonzero")
}

func TestReport_NonUniformParams(t *testing.T) {
	t.Parallel()

	a := calReading(t, 12.0)
	b := calReading(t, 12.1)
	b.Params["Tip Ratio (%)"] = ptr(300)

	_, _, err := Report(Input{
		Growth: "G1", TargetMIG: 12.0, Cell: ga1(t),
		Readings: []*reading.CorrectedReading{a, b},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not the same for each reading")
}

func TestWriteReport_Uniquifies(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	cell := ga1(t)

	p1, err := WriteReport("calibs", cell, "G1234", "first", fs)
	require.NoError(t, err)
	assert.Equal(t, "calibs/Ga1/G1234.txt", p1)

	p2, err := WriteReport("calibs", cell, "G1234", "second", fs)
	require.NoError(t, err)
	assert.Equal(t, "calibs/Ga1/G1234-(1).txt", p2)

	p3, err := WriteReport("calibs", cell, "G1234", "third", fs)
	require.NoError(t, err)
	assert.Equal(t, "calibs/Ga1/G1234-(2).txt", p3)

	data, err := fs.ReadFile(p1)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	fs := fsutil.NewMemoryFileSystem()
	path, err := WriteSummary("calibs", "G1234", "summary text", fs)
	require.NoError(t, err)
	assert.Equal(t, "calibs/Summaries/G1234.txt", path)
}
