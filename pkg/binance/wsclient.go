package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"quantfeed/config"
	"quantfeed/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// WSClient keeps one trade stream subscription alive for a single symbol.
// It reconnects after a fixed delay, forever, until its context is cancelled.
type WSClient struct {
	url               string
	symbol            string
	reconnectDelay    time.Duration
	heartbeatInterval time.Duration
	dialer            *websocket.Dialer
	handler           func([]byte)
	logger            *zap.Logger
	reconnects        prometheus.Counter
}

// NewWSClient creates a client for symbol's trade stream under cfg.URL.
func NewWSClient(cfg config.WSConfig, symbol string, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:               StreamURL(cfg.URL, symbol),
		symbol:            symbol,
		reconnectDelay:    cfg.ReconnectDelay,
		heartbeatInterval: cfg.HeartbeatInterval,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		logger:     logger.With(zap.String("symbol", symbol)),
		reconnects: metrics.Reconnects.WithLabelValues(symbol),
	}
}

// SetMessageHandler sets the function to handle incoming messages.
// It runs on the read goroutine and must not block for long.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// URL returns the stream URL this client subscribes to.
func (c *WSClient) URL() string {
	return c.url
}

// Run connects and listens until ctx is cancelled. Connection failures are
// logged and retried after the reconnect delay; Run only returns once ctx is
// done, and then returns nil.
func (c *WSClient) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			c.logger.Info("WebSocket stream stopped")
			return nil
		}

		c.logger.Warn("WebSocket stream interrupted, reconnecting",
			zap.Error(err), zap.Duration("delay", c.reconnectDelay))
		c.reconnects.Inc()

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("WebSocket stream stopped during backoff")
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection from dial to failure.
func (c *WSClient) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()
	c.logger.Info("WebSocket connected", zap.String("url", c.url))

	done := make(chan struct{})
	defer close(done)

	// Unblock the pending read on shutdown.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = conn.Close()
		case <-done:
		}
	}()

	go c.heartbeat(conn, done)

	return c.listen(conn)
}

// listen reads until the connection fails. A connection that delivers no
// frame, pong or ping within two heartbeat intervals is treated as dead.
func (c *WSClient) listen(conn *websocket.Conn) error {
	readTimeout := 2 * c.heartbeatInterval
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	}

	if err := extend(); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error { return extend() })
	conn.SetPingHandler(func(data string) error {
		if err := extend(); err != nil {
			return err
		}
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if err := extend(); err != nil {
			return err
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// heartbeat sends a ping every heartbeat interval until done is closed or a
// write fails; a failed ping surfaces through the read deadline.
func (c *WSClient) heartbeat(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("heartbeat ping failed", zap.Error(err))
				return
			}
		}
	}
}
