package storage

import (
	"context"
	"io"
	"sync"

	"github.com/lintang-b-s/ehorizon/pkg/tile"
)

// TileSource. asynchronous tile transport.
type TileSource interface {
	Request(ctx context.Context, t tile.CanonicalTileID) *Request
}

// Request. handle of an in flight tile request. Done yields exactly one response.
type Request struct {
	tile   tile.CanonicalTileID
	cancel context.CancelFunc
	done   chan Response
	once   sync.Once
}

type FetchFunc func(ctx context.Context) Response

// NewRequest. run fetch in its own goroutine and complete the request with its response.
func NewRequest(ctx context.Context, t tile.CanonicalTileID, fetch FetchFunc) *Request {
	ctx, cancel := context.WithCancel(ctx)
	r := &Request{
		tile:   t,
		cancel: cancel,
		done:   make(chan Response, 1),
	}

	go func() {
		defer cancel()
		r.complete(fetch(ctx))
	}()

	return r
}

func (r *Request) complete(resp Response) {
	r.once.Do(func() {
		r.done <- resp
		close(r.done)
	})
}

func (r *Request) Tile() tile.CanonicalTileID {
	return r.tile
}

// Cancel. best effort, a response may still be delivered.
func (r *Request) Cancel() {
	r.cancel()
}

func (r *Request) Done() <-chan Response {
	return r.done
}

// Fetch. request the tile and wait for the response.
func Fetch(ctx context.Context, src TileSource, t tile.CanonicalTileID) Response {
	req := src.Request(ctx, t)
	select {
	case resp := <-req.Done():
		return resp
	case <-ctx.Done():
		req.Cancel()
		return cancelled(ctx, t)
	}
}

func cancelled(ctx context.Context, t tile.CanonicalTileID) Response {
	return Failure(OTHER, "request for tile %s cancelled: %v", t, ctx.Err())
}

// readTile. the tile bytes of body, a failure when body holds more than limit bytes.
func readTile(body io.Reader, t tile.CanonicalTileID, limit int64) Response {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return Failure(CONNECTION_ERROR, "reading tile %s failed: %v", t, err)
	}
	if int64(len(data)) > limit {
		return Failure(OTHER, "tile %s exceeds %d bytes", t, limit)
	}
	return Success(data)
}
