package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/lintang-b-s/ehorizon/pkg/http/router/controllers"
	"github.com/lintang-b-s/ehorizon/pkg/metrics"
	"github.com/lintang-b-s/ehorizon/pkg/vectortile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	TRACE_FORMAT_CSV  = "csv"
	TRACE_FORMAT_JSON = "json"
)

var (
	replayFormat   string
	replayInterval time.Duration
	replaySettle   time.Duration

	replayCmd = &cobra.Command{
		Use:   "replay [trace file]",
		Short: "feed a recorded gps trace through the engine and print every horizon update as a json line",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
)

func init() {
	replayCmd.Flags().StringVar(&replayFormat, "format", "", "trace format, csv or json (default from the file extension)")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 0,
		"delay between positions, 0 uses the sample timestamps or the update frequency")
	replayCmd.Flags().DurationVar(&replaySettle, "settle", 2*time.Second, "wait for tiles of the last position before exiting")
}

type tracePoint struct {
	Lat   float64   `json:"lat"`
	Lon   float64   `json:"lon"`
	Time  time.Time `json:"time"`
	Speed float64   `json:"speed"`
}

// readTrace. csv rows are lat,lon[,time][,speed], time is rfc3339 or unix seconds, a non numeric first row is a header.
func readTrace(r io.Reader, format string) ([]*datastructure.GPSPoint, error) {
	switch format {
	case TRACE_FORMAT_JSON:
		var points []tracePoint
		if err := json.NewDecoder(r).Decode(&points); err != nil {
			return nil, fmt.Errorf("decoding json trace: %w", err)
		}
		trace := make([]*datastructure.GPSPoint, len(points))
		for i, p := range points {
			trace[i] = datastructure.NewGPSPoint(p.Lat, p.Lon, p.Time, p.Speed)
		}
		return trace, nil
	case TRACE_FORMAT_CSV:
		return readCSVTrace(r)
	default:
		return nil, fmt.Errorf("unknown trace format %q", format)
	}
}

func readCSVTrace(r io.Reader) ([]*datastructure.GPSPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	trace := make([]*datastructure.GPSPoint, 0)
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("row %d: expected at least lat,lon", row+1)
		}

		lat, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			if row == 0 {
				continue
			}
			return nil, fmt.Errorf("row %d: invalid latitude %q", row+1, record[0])
		}
		lon, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid longitude %q", row+1, record[1])
		}

		var (
			ts    time.Time
			speed float64
		)
		if len(record) > 2 && record[2] != "" {
			ts, err = parseTime(record[2])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row+1, err)
			}
		}
		if len(record) > 3 && record[3] != "" {
			speed, err = strconv.ParseFloat(record[3], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid speed %q", row+1, record[3])
			}
		}
		trace = append(trace, datastructure.NewGPSPoint(lat, lon, ts, speed))
	}
	return trace, nil
}

func parseTime(s string) (time.Time, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Unix(0, int64(secs*float64(time.Second))).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return ts, nil
}

func traceFormat(path string) string {
	if replayFormat != "" {
		return strings.ToLower(replayFormat)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return TRACE_FORMAT_JSON
	}
	return TRACE_FORMAT_CSV
}

// delays. wait before each point, from the sample timestamps when every point has one.
func delays(trace []*datastructure.GPSPoint, interval, fallback time.Duration) []time.Duration {
	out := make([]time.Duration, len(trace))
	if len(trace) == 0 {
		return out
	}

	timed := true
	for _, p := range trace {
		if p.Time().IsZero() {
			timed = false
			break
		}
	}

	for i := 1; i < len(trace); i++ {
		switch {
		case interval > 0:
			out[i] = interval
		case timed && trace[i].Time().After(trace[i-1].Time()):
			out[i] = trace[i].Time().Sub(trace[i-1].Time())
		default:
			out[i] = fallback
		}
	}
	return out
}

// jsonLines. listener writing every update as one json line.
type jsonLines struct {
	enc *json.Encoder
	log *zap.Logger
}

func (j jsonLines) OnUpdate(update engine.Update) {
	if err := j.enc.Encode(controllers.NewUpdateResponse(update)); err != nil {
		j.log.Error("writing horizon update", zap.Error(err))
	}
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	trace, err := readTrace(f, traceFormat(path))
	if err != nil {
		return err
	}
	log.Info("replaying gps trace", zap.String("file", path), zap.Int("points", len(trace)))

	source, err := tileSource(cmd.Context(), log)
	if err != nil {
		return err
	}
	opts, err := engineOptions(metrics.NewRegistry())
	if err != nil {
		return err
	}

	e, err := engine.NewMapEngine(source, vectortile.NewMVTDecoder(log), opts, log)
	if err != nil {
		return err
	}
	e.Start()
	defer e.Close()

	e.RegisterListener(jsonLines{enc: json.NewEncoder(cmd.OutOrStdout()), log: log})

	// positions closer than the update frequency would collapse into one update.
	fallback := opts.Configuration.GetUpdateFrequency() + opts.Configuration.GetUpdateFrequency()/2
	for i, d := range delays(trace, replayInterval, fallback) {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(d):
		}
		e.UpdateState(trace[i].Point())
	}

	time.Sleep(replaySettle)
	return nil
}
