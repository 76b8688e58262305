package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/lintang-b-s/ehorizon/pkg/horizon"
	"github.com/lintang-b-s/ehorizon/pkg/storage"
	"github.com/paulmach/orb"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReadCSVTrace(t *testing.T) {
	input := `lat,lon,time,speed
-7.7600,110.3700,2024-05-01T10:00:00Z,12.5
-7.7601,110.3702,2024-05-01T10:00:01Z,
-7.7602, 110.3704
`
	trace, err := readTrace(strings.NewReader(input), TRACE_FORMAT_CSV)
	require.NoError(t, err)
	require.Len(t, trace, 3)

	assert.Equal(t, orb.Point{110.37, -7.76}, trace[0].Point())
	assert.Equal(t, 12.5, trace[0].Speed())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 1, 0, time.UTC), trace[1].Time())
	assert.True(t, trace[2].Time().IsZero())
}

func TestReadTraceErrors(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		format string
	}{
		{name: "bad longitude", input: "1,x\n", format: TRACE_FORMAT_CSV},
		{name: "bad latitude after header", input: "lat,lon\n1,2\nx,2\n", format: TRACE_FORMAT_CSV},
		{name: "single column", input: "1\n", format: TRACE_FORMAT_CSV},
		{name: "bad time", input: "1,2,yesterday\n", format: TRACE_FORMAT_CSV},
		{name: "bad json", input: `[{"lat": }]`, format: TRACE_FORMAT_JSON},
		{name: "unknown format", input: "", format: "gpx"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := readTrace(strings.NewReader(tc.input), tc.format)
			assert.Error(t, err)
		})
	}
}

func TestReadJSONTrace(t *testing.T) {
	input := `[{"lat": 1.5, "lon": 2.5, "time": "2024-05-01T10:00:00Z", "speed": 3}, {"lat": 1.6, "lon": 2.6}]`
	trace, err := readTrace(strings.NewReader(input), TRACE_FORMAT_JSON)
	require.NoError(t, err)
	require.Len(t, trace, 2)
	assert.Equal(t, orb.Point{2.5, 1.5}, trace[0].Point())
	assert.Equal(t, 3.0, trace[0].Speed())
}

func TestParseTime(t *testing.T) {
	ts, err := parseTime("1714557600")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ts)

	ts, err = parseTime("2024-05-01T17:00:00+07:00")
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	_, err = parseTime("noon")
	assert.Error(t, err)
}

func TestDelays(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	timed := []*datastructure.GPSPoint{
		datastructure.NewGPSPoint(0, 0, t0, 0),
		datastructure.NewGPSPoint(0, 0, t0.Add(time.Second), 0),
		datastructure.NewGPSPoint(0, 0, t0.Add(time.Second), 0),
	}
	untimed := []*datastructure.GPSPoint{
		datastructure.NewGPSPoint(0, 0, time.Time{}, 0),
		datastructure.NewGPSPoint(0, 0, time.Time{}, 0),
	}

	testCases := []struct {
		name     string
		trace    []*datastructure.GPSPoint
		interval time.Duration
		want     []time.Duration
	}{
		{name: "timestamps", trace: timed, want: []time.Duration{0, time.Second, 300 * time.Millisecond}},
		{name: "fixed interval", trace: timed, interval: 50 * time.Millisecond,
			want: []time.Duration{0, 50 * time.Millisecond, 50 * time.Millisecond}},
		{name: "no timestamps", trace: untimed, want: []time.Duration{0, 300 * time.Millisecond}},
		{name: "empty", trace: nil, want: []time.Duration{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, delays(tc.trace, tc.interval, 300*time.Millisecond))
		})
	}
}

func TestParseBBox(t *testing.T) {
	b, err := parseBBox("110.3, -7.8, 110.4, -7.7")
	require.NoError(t, err)
	assert.Equal(t, orb.Bound{Min: orb.Point{110.3, -7.8}, Max: orb.Point{110.4, -7.7}}, b)

	for _, s := range []string{"", "1,2,3", "1,2,x,4", "2,0,1,1", "0,-91,1,1"} {
		_, err := parseBBox(s)
		assert.Error(t, err, s)
	}
}

func TestConfigurationChange(t *testing.T) {
	prev := engine.DefaultConfiguration()

	assert.True(t, configurationChange(prev, prev).IsEmpty())

	next := prev.WithHorizonDistance(500).WithExpansion(horizon.FULL)
	change := configurationChange(prev, next)
	require.NotNil(t, change.HorizonDistance)
	assert.Equal(t, 500, *change.HorizonDistance)
	require.NotNil(t, change.Expansion)
	assert.Equal(t, horizon.FULL, *change.Expansion)
	assert.Nil(t, change.UpdateFrequency)

	change = configurationChange(prev, prev.WithUpdateFrequency(50))
	require.NotNil(t, change.UpdateFrequency)
	assert.Equal(t, 50, *change.UpdateFrequency)
}

func withViper(t *testing.T, values map[string]interface{}) {
	t.Helper()
	for k, v := range values {
		prev := viper.Get(k)
		viper.Set(k, v)
		t.Cleanup(func() { viper.Set(k, prev) })
	}
}

func TestEngineConfiguration(t *testing.T) {
	withViper(t, map[string]interface{}{
		"EHORIZON_HORIZON_DISTANCE": 750,
		"EHORIZON_UPDATE_FREQUENCY": 100,
		"EHORIZON_EXPANSION":        "full",
	})

	cfg, err := engineConfiguration()
	require.NoError(t, err)
	assert.Equal(t, 750, cfg.GetHorizonDistance())
	assert.Equal(t, 100*time.Millisecond, cfg.GetUpdateFrequency())
	assert.Equal(t, horizon.FULL, cfg.GetExpansion())

	viper.Set("EHORIZON_HORIZON_DISTANCE", 0)
	_, err = engineConfiguration()
	assert.Error(t, err)

	viper.Set("EHORIZON_HORIZON_DISTANCE", 750)
	viper.Set("EHORIZON_EXPANSION", "wide")
	_, err = engineConfiguration()
	assert.Error(t, err)
}

func TestTileSource(t *testing.T) {
	log := zap.NewNop()

	t.Run("file", func(t *testing.T) {
		dir := t.TempDir()
		withViper(t, map[string]interface{}{"TILE_SOURCE": "file", "TILE_DIR": dir})
		source, err := tileSource(testContext(t), log)
		require.NoError(t, err)
		fs, ok := source.(*storage.FileSource)
		require.True(t, ok)
		assert.Equal(t, dir, fs.GetDir())
	})

	t.Run("http needs an endpoint", func(t *testing.T) {
		withViper(t, map[string]interface{}{"TILE_SOURCE": "http", "TILE_ENDPOINT": "", "TILE_TILESET": ""})
		_, err := tileSource(testContext(t), log)
		assert.Error(t, err)
	})

	t.Run("http", func(t *testing.T) {
		withViper(t, map[string]interface{}{"TILE_SOURCE": "HTTP", "TILE_TILESET": "user.roads", "TILE_RETRY_MAX": 2})
		source, err := tileSource(testContext(t), log)
		require.NoError(t, err)
		_, ok := source.(*storage.HTTPSource)
		assert.True(t, ok)
	})

	t.Run("s3 needs a bucket", func(t *testing.T) {
		withViper(t, map[string]interface{}{"TILE_SOURCE": "s3", "TILE_S3_BUCKET": ""})
		_, err := tileSource(testContext(t), log)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		withViper(t, map[string]interface{}{"TILE_SOURCE": "ftp"})
		_, err := tileSource(testContext(t), log)
		assert.Error(t, err)
	})
}

// testContext returns a context that is cancelled when the test finishes,
// matching testing.T.Context on Go 1.24+.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
