package gorilla

import (
	"context"
	"net/http"
	"time"

	gwebsocket "github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultReadLimit        = 655350
)

func NewGorillaWebSocketConn() *GorillaWebSocketConn {
	return &GorillaWebSocketConn{}
}

type GorillaWebSocketConn struct {
	conn *gwebsocket.Conn
}

func (g *GorillaWebSocketConn) Dial(ctx context.Context, endpoint string, requestHeader http.Header) error {
	dialer := gwebsocket.Dialer{
		HandshakeTimeout: defaultHandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, requestHeader)
	if err != nil {
		return err
	}
	conn.SetReadLimit(defaultReadLimit)
	g.conn = conn
	return nil
}

func (g *GorillaWebSocketConn) ReadMessage() (int, []byte, error) {
	return g.conn.ReadMessage()
}

func (g *GorillaWebSocketConn) WriteMessage(messageType int, data []byte) error {
	return g.conn.WriteMessage(messageType, data)
}

func (g *GorillaWebSocketConn) SetPingHandler(h func(appData string) error) {
	g.conn.SetPingHandler(h)
}

func (g *GorillaWebSocketConn) SetPongHandler(h func(appData string) error) {
	g.conn.SetPongHandler(h)
}

func (g *GorillaWebSocketConn) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}
