package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func openTestDB(t *testing.T) *History {
	h, err := Open(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	return h
}

func addRecord(t *testing.T, h *History, prediction string, confidence float64, at time.Time) *Record {
	rec := &Record{
		Filename:   "test.jpg",
		Prediction: prediction,
		Confidence: confidence,
		RawScore:   confidence / 100,
		Time:       dbh.MakeIntTime(at),
		Image:      []byte{0xff, 0xd8, 0xff},
	}
	require.NoError(t, h.Add(rec))
	require.NotZero(t, rec.ID)
	return rec
}

func TestAddAndGet(t *testing.T) {
	h := openTestDB(t)
	rec := addRecord(t, h, "LIGHTS ON", 94, time.Now())

	got, err := h.Get(rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, rec.Filename, got.Filename)
	require.Equal(t, rec.Prediction, got.Prediction)
	require.Equal(t, rec.Image, got.Image)
}

func TestGetMissing(t *testing.T) {
	h := openTestDB(t)
	got, err := h.Get(12345)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLatestOrderAndLimit(t *testing.T) {
	h := openTestDB(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		addRecord(t, h, "LIGHTS ON", float64(50+i), base.Add(time.Duration(i)*time.Minute))
	}

	recs, err := h.Latest(3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// Newest first.
	require.Equal(t, float64(54), recs[0].Confidence)
	require.Equal(t, float64(53), recs[1].Confidence)
	require.Equal(t, float64(52), recs[2].Confidence)
	// The listing omits image payloads.
	require.Nil(t, recs[0].Image)
}

func TestStats(t *testing.T) {
	h := openTestDB(t)

	s, err := h.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 0, s.Total)
	require.Equal(t, float64(0), s.AverageConfidence)

	now := time.Now()
	addRecord(t, h, "LIGHTS ON", 90, now)
	addRecord(t, h, "LIGHTS ON", 80, now)
	addRecord(t, h, "LIGHTS OFF", 70, now)

	s, err = h.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 3, s.Total)
	require.EqualValues(t, 2, s.LightsOn)
	require.EqualValues(t, 1, s.LightsOff)
	require.InDelta(t, 80, s.AverageConfidence, 1e-6)
}

func TestClear(t *testing.T) {
	h := openTestDB(t)
	now := time.Now()
	addRecord(t, h, "LIGHTS ON", 90, now)
	addRecord(t, h, "LIGHTS OFF", 60, now)

	n, err := h.Clear()
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	s, err := h.Stats()
	require.NoError(t, err)
	require.EqualValues(t, 0, s.Total)

	// Clearing an empty store is fine.
	n, err = h.Clear()
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.sqlite")
	h, err := Open(logs.NewTestingLog(t), path)
	require.NoError(t, err)
	addRecord(t, h, "LIGHTS ON", 90, time.Now())
}
