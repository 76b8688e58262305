package router

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gobwas/ws"
	"github.com/lintang-b-s/ehorizon/pkg/concurrent"
	"github.com/lintang-b-s/ehorizon/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/ehorizon/pkg/http/server"
	"github.com/mailru/easygo/netpoll"
	"go.uber.org/zap"
)

const (
	WS_WORKERS        = 128
	WS_QUEUE          = 64
	WS_SPAWN          = 16
	WS_ACCEPT_TIMEOUT = time.Second
	WS_ACCEPT_DELAY   = 5 * time.Millisecond
)

/*
handleWebsocket. vehicle session server. the listener and every connection are registered on the netpoll
poller (epoll/kqueue), reads are served by the goroutine pool so an idle session holds no goroutine stack.
ref: https://sergey.kamardin.org/articles/million-websocket-and-go/
*/
func (api *API) handleWebsocket(ctx context.Context, config http_server.Config,
	sessionService controllers.SessionService) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", config.WebsocketPort))
	if err != nil {
		return err
	}
	api.log.Info(fmt.Sprintf("horizon websocket API run on port %d", config.WebsocketPort))

	acceptDesc, err := netpoll.HandleListener(ln, netpoll.EventRead|netpoll.EventOneShot)
	if err != nil {
		ln.Close()
		return err
	}

	api.poller, err = netpoll.New(nil)
	if err != nil {
		ln.Close()
		return err
	}

	api.pool = concurrent.NewPool(WS_WORKERS, WS_QUEUE, api.log)
	api.pool.Spawn(WS_SPAWN)
	api.hub = controllers.NewHub(sessionService, api.log)

	// accept is a channel to signal about next incoming connection Accept() results.
	accept := make(chan error, 1)

	err = api.poller.Start(acceptDesc, func(ev netpoll.Event) {
		if ctx.Err() != nil {
			return
		}
		err := api.pool.ScheduleTimeout(WS_ACCEPT_TIMEOUT, func() {
			conn, err := ln.Accept()
			if err != nil {
				accept <- err
				return
			}

			accept <- nil
			api.handle(conn)
		})
		if err == nil {
			err = <-accept
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.Is(err, concurrent.ErrScheduleTimeout) || (errors.As(err, &ne) && ne.Timeout()) {
				// pool stayed full, cool down the server before accepting again
				api.log.Info("accept error, retrying", zap.Error(err), zap.Duration("delay", WS_ACCEPT_DELAY))
				time.Sleep(WS_ACCEPT_DELAY)
			} else {
				api.log.Error("accept error", zap.Error(err))
			}
		}
		_ = api.poller.Resume(acceptDesc)
	})
	if err != nil {
		ln.Close()
		return err
	}

	<-ctx.Done()

	_ = api.poller.Stop(acceptDesc)
	ln.Close()
	api.hub.RemoveAllUser()
	api.pool.Close()

	api.log.Info("websocket server stopped")
	return nil
}

// handle. upgrade conn and register it as a vehicle session.
func (api *API) handle(conn net.Conn) {
	br := bufio.NewReader(conn)

	rw := struct {
		io.Reader
		io.Writer
	}{br, conn}

	hs, err := ws.Upgrade(rw)
	if err != nil {
		api.log.Info("upgrade error", zap.Error(err), zap.String("connection", nameConn(conn)))
		conn.Close()
		return
	}

	user, err := api.hub.Register(conn)
	if err != nil {
		api.log.Error("cannot start vehicle session", zap.Error(err), zap.String("connection", nameConn(conn)))
		conn.Close()
		return
	}

	api.log.Info("established websocket connection", zap.String("connection", nameConn(conn)),
		zap.String("protocol", hs.Protocol), zap.String("session_id", user.ID().String()))

	desc, err := netpoll.HandleRead(conn)
	if err != nil {
		api.hub.Remove(user)
		return
	}

	err = api.poller.Start(desc, func(ev netpoll.Event) {
		if ev&(netpoll.EventReadHup|netpoll.EventHup) != 0 {
			// the peer closed its end of the connection
			api.log.Info("vehicle disconnected from websocket server", zap.String("session_id", user.ID().String()))
			_ = api.poller.Stop(desc)
			api.hub.Remove(user)
			return
		}

		err := api.pool.Schedule(func() {
			if err := user.Receive(); err != nil {
				api.log.Info("closing vehicle session", zap.String("session_id", user.ID().String()), zap.Error(err))
				_ = api.poller.Stop(desc)
				api.hub.Remove(user)
			}
		})
		if err != nil {
			_ = api.poller.Stop(desc)
			api.hub.Remove(user)
		}
	})
	if err != nil {
		api.hub.Remove(user)
	}
}
