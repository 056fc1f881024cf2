package csvtable

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-resilience/internal/domain"
)

const mobilityCSV = `origin_census_block_group,destination_cbg,device_count,destination_device_count,year,uid
483610101001,483610223005,12,40,2019,260
483610101002,483610223005,7,n/a,2019,260
483610101001,483610224001,3,15,2019,261
483610101003,483610223005,9,22,2019,261
`

func TestLoad(t *testing.T) {
	table, err := Load(strings.NewReader(mobilityCSV))
	require.NoError(t, err)
	require.Len(t, table, 4)

	first := table[0]
	assert.Equal(t, "483610101001", first.OriginUnit)
	assert.Equal(t, "483610223005", first.DestinationUnit)
	assert.Equal(t, 12.0, first.DeviceCount)
	assert.Equal(t, 40.0, first.DestinationDeviceCount)
	assert.Equal(t, 2019, first.Year)
	assert.Equal(t, 260, first.UID)
	assert.Equal(t, time.Date(2019, 9, 17, 0, 0, 0, 0, time.UTC), first.Date)

	assert.True(t, math.IsNaN(table[1].DestinationDeviceCount), "unparsable counts coerce to NaN")
	assert.Equal(t, time.Date(2019, 9, 18, 0, 0, 0, 0, time.UTC), table[2].Date)
}

func TestLoad_ColumnOrderIndependent(t *testing.T) {
	in := "uid,year,destination_device_count,device_count,destination_cbg,origin_census_block_group\n1,2019,5,1,B,A\n"

	table, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "A", table[0].OriginUnit)
	assert.Equal(t, "B", table[0].DestinationUnit)
	assert.Equal(t, domain.Epoch, table[0].Date)
}

func TestLoad_Errors(t *testing.T) {
	header := "origin_census_block_group,destination_cbg,device_count,destination_device_count,year,uid\n"
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"missing column", "origin_census_block_group,destination_cbg\nA,B\n", `"device_count"`},
		{"non-integer uid", header + "A,B,1,2,2019,abc\n", "line 2"},
		{"zero uid", header + "A,B,1,2,2019,0\n", "uid"},
		{"bad year", header + "A,B,1,2,twenty,5\n", "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("invalid uid wraps sentinel", func(t *testing.T) {
		_, err := Load(strings.NewReader(header + "A,B,1,2,2019,-3\n"))
		assert.ErrorIs(t, err, domain.ErrInvalidUID)
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mobility.csv")
	require.NoError(t, os.WriteFile(path, []byte(mobilityCSV), 0o600))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, table, 4)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestUnits(t *testing.T) {
	table, err := Load(strings.NewReader(mobilityCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"483610223005", "483610224001"}, Units(table))
	assert.Empty(t, Units(nil))
}

func TestSource_ExtractBatch(t *testing.T) {
	table := domain.Table{
		{DestinationUnit: "a"}, {DestinationUnit: "b"}, {DestinationUnit: "a"},
		{DestinationUnit: "c"}, {DestinationUnit: "d"}, {DestinationUnit: "e"},
	}
	src := NewSource(table)
	require.Equal(t, 5, src.Len())
	ctx := context.Background()

	batch, err := src.ExtractBatch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].Unit)
	assert.Len(t, batch[0].Rows, 2)
	assert.Equal(t, "b", batch[1].Unit)

	batch, err = src.ExtractBatch(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	batch, err = src.ExtractBatch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "e", batch[0].Unit)

	_, err = src.ExtractBatch(ctx, 2)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSource_ExtractBatch_Cancelled(t *testing.T) {
	src := NewSource(domain.Table{{DestinationUnit: "a"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.ExtractBatch(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func testSummaries() []domain.Summary {
	return []domain.Summary{
		{Unit: "483610223005", Resilience: 40, Robustness: 2.5, Vulnerability: 8, Status: domain.StatusRecovered,
			RecoveryPoint: time.Date(2019, 9, 30, 0, 0, 0, 0, time.UTC)},
		{Unit: "483610224001", Status: domain.StatusNoTrend, IsSpecialCase: true},
		{Unit: "483610225002", Resilience: math.NaN(), Robustness: 1, Vulnerability: 3, Status: domain.StatusNewNormal},
	}
}

func TestSummaryWriter_Triangle(t *testing.T) {
	var buf bytes.Buffer
	w := NewSummaryWriter(&buf, domain.ModelTriangle)

	require.NoError(t, w.LoadBatch(context.Background(), testSummaries()))
	require.NoError(t, w.Close())

	want := "CBG,Resilience,Robustness,Vulnerability,Status\n" +
		"483610223005,40,2.5,8,Recovered\n" +
		"483610224001,0,0,0,No Trend Shown\n" +
		"483610225002,,1,3,New normal\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 3, w.Rows())
}

func TestSummaryWriter_AUCFiltered(t *testing.T) {
	var buf bytes.Buffer
	w := NewSummaryWriter(&buf, domain.ModelAUC, WithoutNoTrend())

	batch := testSummaries()
	require.NoError(t, w.LoadBatch(context.Background(), batch[:1]))
	require.NoError(t, w.LoadBatch(context.Background(), batch[1:]))
	require.NoError(t, w.Close())

	want := "CBG,Resilience,RecoveryPoint,Status\n" +
		"483610223005,40,2019-09-30,Recovered\n" +
		"483610225002,,,New normal\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 2, w.Rows())
}

func TestSummaryWriter_EmptyRunStillWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewSummaryWriter(&buf, domain.ModelTriangle)
	require.NoError(t, w.Close())
	assert.Equal(t, "CBG,Resilience,Robustness,Vulnerability,Status\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSummaryWriter_PropagatesWriteErrors(t *testing.T) {
	w := NewSummaryWriter(failingWriter{}, domain.ModelTriangle)
	err := w.LoadBatch(context.Background(), testSummaries())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCreateSummaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cbg_resilience_summary.csv")

	w, err := CreateSummaryFile(path, domain.ModelTriangle)
	require.NoError(t, err)
	require.NoError(t, w.LoadBatch(context.Background(), testSummaries()[:1]))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "483610223005,40,2.5,8,Recovered")
}

func TestFilteredPath(t *testing.T) {
	assert.Equal(t, "cbg_resilience_summary_filtered.csv", FilteredPath("cbg_resilience_summary.csv"))
	assert.Equal(t, "out/run_filtered.csv", FilteredPath("out/run.csv"))
}

func TestWriteTable_LoadRoundTrip(t *testing.T) {
	table, err := Load(strings.NewReader(mobilityCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, table))

	again, err := Load(&buf)
	require.NoError(t, err)
	require.Len(t, again, len(table))
	assert.Equal(t, table[0], again[0])
	assert.True(t, math.IsNaN(again[1].DestinationDeviceCount), "NaN survives as an empty cell")
	assert.Equal(t, table[3], again[3])
}
