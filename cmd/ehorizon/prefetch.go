package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lintang-b-s/ehorizon/pkg/concurrent"
	"github.com/lintang-b-s/ehorizon/pkg/storage"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	prefetchBBox     string
	prefetchWorkers  int
	prefetchCompress bool

	prefetchCmd = &cobra.Command{
		Use:   "prefetch",
		Short: "download the tiles covering a bounding box from the http tile source into TILE_DIR",
		RunE:  runPrefetch,
	}
)

func init() {
	prefetchCmd.Flags().StringVar(&prefetchBBox, "bbox", "", "min_lon,min_lat,max_lon,max_lat")
	prefetchCmd.Flags().IntVar(&prefetchWorkers, "workers", storage.TILE_MAX_CONNECTIONS, "concurrent downloads")
	prefetchCmd.Flags().BoolVar(&prefetchCompress, "compress", true, "store tiles bzip2 compressed")
	_ = prefetchCmd.MarkFlagRequired("bbox")
}

func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox must be min_lon,min_lat,max_lon,max_lat, got %q", s)
	}
	v := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid bbox coordinate %q", p)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, fmt.Errorf("bbox minimum must not exceed maximum, got %q", s)
	}
	if v[1] < -90 || v[3] > 90 || v[0] < -180 || v[2] > 180 {
		return orb.Bound{}, fmt.Errorf("bbox out of range, got %q", s)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

type prefetchResult struct {
	tile  tile.CanonicalTileID
	empty bool
	err   error
}

func runPrefetch(cmd *cobra.Command, args []string) error {
	bound, err := parseBBox(prefetchBBox)
	if err != nil {
		return err
	}

	source, err := httpTileSource(log)
	if err != nil {
		return err
	}
	target := storage.NewFileSource(viper.GetString("TILE_DIR"), log)

	tiles := tile.Cover(bound, uint8(viper.GetUint("EHORIZON_ZOOM")))
	log.Info("prefetching tiles", zap.Int("tiles", len(tiles)), zap.String("dir", target.GetDir()))

	ctx := cmd.Context()
	results := concurrent.Run(ctx, max(prefetchWorkers, 1), tiles, func(t tile.CanonicalTileID) prefetchResult {
		resp := storage.Fetch(ctx, source, t)
		if resp.IsError() {
			return prefetchResult{tile: t, err: resp.Err}
		}
		if resp.NoContent {
			return prefetchResult{tile: t, empty: true}
		}
		return prefetchResult{tile: t, err: target.Write(t, resp.Data, prefetchCompress)}
	})

	var stored, empty, failed int
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			log.Error("cannot prefetch tile", zap.String("tile", r.tile.String()), zap.Error(r.err))
		case r.empty:
			empty++
		default:
			stored++
		}
	}

	log.Info("prefetch done", zap.Int("stored", stored), zap.Int("empty", empty), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d tiles failed", failed, len(tiles))
	}
	return nil
}
