package storage

import (
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
)

const DEFAULT_TILE_CACHE_SIZE = 1 << 10

// TileCache. lru of snappy compressed tile bytes shared by every engine reading from the same source.
type TileCache struct {
	cache *lru.Cache[tile.CanonicalTileID, []byte]
}

func NewTileCache(size int) (*TileCache, error) {
	if size <= 0 {
		size = DEFAULT_TILE_CACHE_SIZE
	}
	cache, err := lru.New[tile.CanonicalTileID, []byte](size)
	if err != nil {
		return nil, err
	}
	return &TileCache{cache: cache}, nil
}

func (c *TileCache) Add(t tile.CanonicalTileID, data []byte) {
	c.cache.Add(t, snappy.Encode(nil, data))
}

func (c *TileCache) Get(t tile.CanonicalTileID) ([]byte, bool) {
	compressed, ok := c.cache.Get(t)
	if !ok {
		return nil, false
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		c.cache.Remove(t)
		return nil, false
	}
	return data, true
}

func (c *TileCache) Len() int {
	return c.cache.Len()
}

func (c *TileCache) Purge() {
	c.cache.Purge()
}
