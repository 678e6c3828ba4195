package livesession

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Client is the viewer side of the live session: it dials the WebSocket handler, hands
// every snapshot to the registered callbacks and reconnects with backoff.
type Client struct {
	url    string
	logger *zap.Logger

	connM sync.Mutex
	conn  *websocket.Conn

	state  State
	stateM sync.RWMutex

	snapCbs  []SnapshotFunc
	stateCbs []StateFunc
	cbM      sync.RWMutex

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration

	startOnce  sync.Once
	spawnM     sync.Mutex
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewClient(url string, maxReconnectAttempts int, reconnectDelay time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:                  url,
		logger:               logger,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

// Connect dials once. On failure the reconnect loop takes over and the dial error is returned.
func (c *Client) Connect(ctx context.Context) error {
	var err error
	c.startOnce.Do(func() {
		c.setState(StateConnecting)
		var conn *websocket.Conn
		conn, err = c.dial(ctx)
		if err != nil {
			c.logger.Warn("session_dial_failed", zap.String("url", c.url), zap.Error(err))
			c.setState(StateFailed)
			c.spawn(c.reconnect)
			return
		}
		c.attach(conn)
	})
	return err
}

func (c *Client) OnSnapshot(cb SnapshotFunc) {
	c.cbM.Lock()
	c.snapCbs = append(c.snapCbs, cb)
	c.cbM.Unlock()
}

func (c *Client) OnStateChange(cb StateFunc) {
	c.cbM.Lock()
	c.stateCbs = append(c.stateCbs, cb)
	c.cbM.Unlock()
}

func (c *Client) State() State {
	c.stateM.RLock()
	defer c.stateM.RUnlock()
	return c.state
}

// Close stops reconnecting, closes the connection and waits for the goroutines.
func (c *Client) Close(ctx context.Context) error {
	c.spawnM.Lock()
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.spawnM.Unlock()
	c.closeConn(websocket.StatusNormalClosure, "close")
	c.rootCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.setState(StateDisconnected)
		return nil
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	return conn, err
}

func (c *Client) attach(conn *websocket.Conn) {
	c.connM.Lock()
	c.conn = conn
	c.connM.Unlock()
	c.setState(StateConnected)
	if !c.spawn(func() { c.listen(conn) }) {
		c.closeConn(websocket.StatusNormalClosure, "close")
		return
	}
	c.spawn(func() { c.pingLoop(conn) })
}

// spawn runs fn under the wait group unless Close has started.
// Close flips stopCh under spawnM, so no Add can race with its Wait.
func (c *Client) spawn(fn func()) bool {
	c.spawnM.Lock()
	defer c.spawnM.Unlock()
	if c.isStopping() {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
	return true
}

func (c *Client) listen(conn *websocket.Conn) {
	for {
		var env Envelope
		if err := wsjson.Read(c.rootCtx, conn, &env); err != nil {
			if c.isStopping() {
				return
			}
			c.logger.Warn("session_read_failed", zap.Error(err))
			c.setState(StateDisconnected)
			c.closeConn(websocket.StatusGoingAway, "reconnect")
			c.spawn(c.reconnect)
			return
		}
		if env.Event != EventGameData {
			continue
		}
		if err := env.Data.Validate(); err != nil {
			c.logger.Warn("session_snapshot_invalid", zap.Error(err))
			continue
		}

		c.cbM.RLock()
		callbacks := append([]SnapshotFunc(nil), c.snapCbs...)
		c.cbM.RUnlock()
		for _, cb := range callbacks {
			cb(env.Data.Clone())
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.rootCtx.Done():
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				// listen sees the closed conn and starts reconnecting
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (c *Client) reconnect() {
	if c.maxReconnectAttempts <= 0 {
		c.setState(StateFailed)
		return
	}
	c.setState(StateReconnecting)
	for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
		t := time.NewTimer(backoffDuration(c.reconnectDelay, attempt))
		select {
		case <-c.stopCh:
			t.Stop()
			return
		case <-t.C:
		}
		conn, err := c.dial(c.rootCtx)
		if err != nil {
			c.logger.Debug("session_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if c.isStopping() {
			_ = conn.Close(websocket.StatusNormalClosure, "close")
			return
		}
		c.attach(conn)
		return
	}
	c.setState(StateFailed)
}

func (c *Client) setState(s State) {
	c.stateM.Lock()
	if c.state == s {
		c.stateM.Unlock()
		return
	}
	c.state = s
	c.stateM.Unlock()

	c.cbM.RLock()
	callbacks := append([]StateFunc(nil), c.stateCbs...)
	c.cbM.RUnlock()
	for _, cb := range callbacks {
		cb(s)
	}
}

func (c *Client) closeConn(code websocket.StatusCode, reason string) {
	c.connM.Lock()
	conn := c.conn
	c.conn = nil
	c.connM.Unlock()
	if conn != nil {
		_ = conn.Close(code, reason)
	}
}

func (c *Client) isStopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}
