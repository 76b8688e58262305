package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"go.uber.org/zap"
)

const (
	MVT_EXT  = ".mvt"
	BZ2_EXT  = ".bz2"
	TILE_DIR = "./data/tiles"
)

// FileSource. tiles on disk at <dir>/<z>/<x>/<y>.mvt, optionally bzip2 compressed as <y>.mvt.bz2.
type FileSource struct {
	dir string
	log *zap.Logger
}

func NewFileSource(dir string, log *zap.Logger) *FileSource {
	if dir == "" {
		dir = TILE_DIR
	}
	return &FileSource{dir: dir, log: log}
}

func (s *FileSource) GetDir() string {
	return s.dir
}

func (s *FileSource) Path(t tile.CanonicalTileID) string {
	return filepath.Join(s.dir, strconv.Itoa(int(t.Z)), strconv.FormatUint(uint64(t.X), 10),
		strconv.FormatUint(uint64(t.Y), 10)+MVT_EXT)
}

func (s *FileSource) Request(ctx context.Context, t tile.CanonicalTileID) *Request {
	return NewRequest(ctx, t, func(ctx context.Context) Response {
		return s.read(ctx, t)
	})
}

func (s *FileSource) read(ctx context.Context, t tile.CanonicalTileID) Response {
	if ctx.Err() != nil {
		return cancelled(ctx, t)
	}

	path := s.Path(t)
	data, err := os.ReadFile(path)
	if err == nil {
		return Success(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return Failure(OTHER, "reading tile %s: %v", t, err)
	}

	data, err = readBzip2(path + BZ2_EXT)
	switch {
	case err == nil:
		return Success(data)
	case errors.Is(err, fs.ErrNotExist):
		return Failure(NOT_FOUND, "tile %s not found in %s", t, s.dir)
	default:
		return Failure(OTHER, "reading tile %s: %v", t, err)
	}
}

func readBzip2(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// Write. store the tile bytes, compressed when compress is set.
func (s *FileSource) Write(t tile.CanonicalTileID, data []byte, compress bool) error {
	path := s.Path(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if !compress {
		return os.WriteFile(path, data, 0o644)
	}

	f, err := os.Create(path + BZ2_EXT)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := bzip2.NewWriter(f, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
