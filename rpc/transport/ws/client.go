package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crmvault/crmvault/rpc/common"
	"github.com/crmvault/crmvault/rpc/transport"
	"github.com/crmvault/crmvault/rpc/transport/base"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

// NewWSClientTransport creates a new WebSocket client transport
func NewWSClientTransport() transport.IRPCClientTransport {
	return &wsClientTransport{
		nextRequestID: 1,
	}
}

// wsResult contains the result of a request
type wsResult struct {
	data []byte
	err  error
}

// wsConnection is one WebSocket connection with its in-flight request table
type wsConnection struct {
	conn         *websocket.Conn
	endpoint     string
	writeMu      sync.Mutex // gorilla allows one concurrent writer only
	requestChans *xsync.MapOf[uint64, chan wsResult]
	stopCh       chan struct{}
}

type wsClientTransport struct {
	config        common.ClientConfig
	connections   []*wsConnection
	connectionsMu sync.RWMutex
	nextConnIndex uint64
	nextRequestID uint64
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *wsClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}
	t.config = config
	t.closeConnections()

	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(config.TimeoutSecond) * time.Second,
	}

	for _, endpoint := range config.Endpoints {
		conn, _, err := dialer.Dial(endpoint, nil)
		if err != nil {
			Logger.Warningf("Failed to connect to %s: %v", endpoint, err)
			continue
		}

		wsConn := &wsConnection{
			conn:         conn,
			endpoint:     endpoint,
			requestChans: xsync.NewMapOf[uint64, chan wsResult](),
			stopCh:       make(chan struct{}),
		}

		t.connectionsMu.Lock()
		t.connections = append(t.connections, wsConn)
		t.connectionsMu.Unlock()

		Logger.Infof("Connected to %s via websocket", endpoint)
		go wsConn.readResponses()
	}

	if len(t.connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}
	return nil
}

func (t *wsClientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	conn := t.getNextConnection()
	if conn == nil {
		return nil, fmt.Errorf("no active connections available")
	}

	requestID := atomic.AddUint64(&t.nextRequestID, 1)

	respCh := make(chan wsResult, 1)
	conn.requestChans.Store(requestID, respCh)
	defer conn.requestChans.Delete(requestID)

	frame := base.EncodeFrame(shardId, requestID, req)

	conn.writeMu.Lock()
	if t.config.TimeoutSecond > 0 {
		timeout := time.Duration(t.config.TimeoutSecond) * time.Second
		conn.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	err := conn.conn.WriteMessage(websocket.BinaryMessage, frame)
	conn.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to write request: %v", err)
	}

	var timeoutCh <-chan time.Time
	if t.config.TimeoutSecond > 0 {
		timeoutCh = time.After(time.Duration(t.config.TimeoutSecond) * time.Second)
	} else {
		timeoutCh = make(chan time.Time) // Never triggers
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		return nil, fmt.Errorf("request timed out")
	}
}

func (t *wsClientTransport) Close() error {
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *wsClientTransport) getNextConnection() *wsConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}
	index := atomic.AddUint64(&t.nextConnIndex, 1) % uint64(len(t.connections))
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *wsClientTransport) closeConnections() {
	t.connectionsMu.Lock()
	defer t.connectionsMu.Unlock()

	for _, conn := range t.connections {
		close(conn.stopCh)
		conn.conn.Close()
	}
	t.connections = nil
}

// readResponses reads response messages and routes them to waiting requests
func (c *wsConnection) readResponses() {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		msgType, frame, err := c.conn.ReadMessage()
		if err != nil {
			// Fail every in-flight request on this connection
			c.requestChans.Range(func(_ uint64, ch chan wsResult) bool {
				ch <- wsResult{nil, fmt.Errorf("connection to %s lost: %v", c.endpoint, err)}
				return true
			})
			return
		}
		if msgType != websocket.BinaryMessage {
			Logger.Warningf("Ignoring non-binary message from %s", c.endpoint)
			continue
		}

		_, requestID, data, err := base.DecodeFrame(frame)
		if err != nil {
			Logger.Errorf("Failed to decode frame from %s: %v", c.endpoint, err)
			continue
		}

		if respCh, found := c.requestChans.Load(requestID); found {
			// Copy: the frame buffer belongs to the websocket reader
			out := make([]byte, len(data))
			copy(out, data)
			respCh <- wsResult{out, nil}
		} else {
			Logger.Warningf("Received response for unknown request ID %d", requestID)
		}
	}
}
