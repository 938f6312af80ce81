package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/crmvault/crmvault/rpc/common"
	"github.com/crmvault/crmvault/rpc/transport"
	"github.com/crmvault/crmvault/rpc/transport/base"
	"github.com/gorilla/websocket"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// NewWSServerTransport creates a new WebSocket server transport
func NewWSServerTransport() transport.IRPCServerTransport {
	return &wsServerTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

type wsServerTransport struct {
	handler  transport.ServerHandleFunc
	config   common.ServerConfig
	upgrader websocket.Upgrader
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *wsServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *wsServerTransport) Listen(config common.ServerConfig) error {
	t.config = config

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rpc", t.handleUpgrade)

	Logger.Infof("Starting WebSocket server on %s", config.Endpoint)
	return http.ListenAndServe(config.Endpoint, mux)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleUpgrade upgrades the HTTP request and serves frames until the peer
// disconnects
func (t *wsServerTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Errorf("Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	Logger.Infof("WebSocket client connected from %s", r.RemoteAddr)

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// gorilla allows one concurrent writer only
	var writeMu sync.Mutex
	var wg sync.WaitGroup

	for {
		if timeout > 0 {
			conn.SetReadDeadline(time.Now().Add(timeout))
		}

		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				Logger.Infof("Connection closed by client")
			} else {
				Logger.Errorf("Error reading message: %v", err)
			}
			break
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		shardID, requestID, data, err := base.DecodeFrame(frame)
		if err != nil {
			Logger.Errorf("Failed to decode frame: %v", err)
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			resp := t.handler(shardID, data)

			writeMu.Lock()
			defer writeMu.Unlock()

			if timeout > 0 {
				conn.SetWriteDeadline(time.Now().Add(timeout))
			}
			if err := conn.WriteMessage(websocket.BinaryMessage,
				base.EncodeFrame(shardID, requestID, resp)); err != nil {
				Logger.Errorf("Failed to write response: %v", err)
			}
		}()
	}

	wg.Wait()
}
