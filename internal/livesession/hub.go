package livesession

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/gammon-vision/internal/board"
)

const (
	ttlSnapshot = 24 * time.Hour
)

// Hub fans board snapshots out over a Redis channel and keeps the latest one so late
// viewers can start from the current position.
type Hub struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub(rdb *redis.Client, channel string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "gammon:game_data"
	}
	return &Hub{rdb: rdb, channel: channel, logger: logger, subs: make(map[*Subscription]struct{})}
}

func (h *Hub) keyLatest() string { return h.channel + ":latest" }

// Publish stores gd as the latest snapshot and broadcasts it.
func (h *Hub) Publish(ctx context.Context, gd board.GameData) error {
	if err := gd.Validate(); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	raw, err := json.Marshal(Envelope{Event: EventGameData, Data: gd, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = h.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, h.keyLatest(), raw, ttlSnapshot)
		p.Publish(ctx, h.channel, raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	h.logger.Debug("session_publish", zap.String("channel", h.channel), zap.Int("checkers", gd.CheckerPositions.Total()))
	return nil
}

// Latest returns the stored snapshot; ok is false when no session exists.
func (h *Hub) Latest(ctx context.Context) (board.GameData, bool, error) {
	raw, err := h.rdb.Get(ctx, h.keyLatest()).Bytes()
	if err == redis.Nil {
		return board.GameData{}, false, nil
	}
	if err != nil {
		return board.GameData{}, false, err
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return board.GameData{}, false, err
	}
	return env.Data, true, nil
}

// Subscription delivers snapshots with latest-wins semantics: a slow reader only ever
// sees the newest pending snapshot.
type Subscription struct {
	hub  *Hub
	ps   *redis.PubSub
	out  chan board.GameData
	done chan struct{}
	once sync.Once
}

// Subscribe starts listening on the hub channel until ctx ends or Close is called.
func (h *Hub) Subscribe(ctx context.Context) (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.mu.Unlock()

	ps := h.rdb.Subscribe(ctx, h.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", h.channel, err)
	}
	s := &Subscription{hub: h, ps: ps, out: make(chan board.GameData, 1), done: make(chan struct{})}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = ps.Close()
		return nil, ErrHubClosed
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go s.pump(ctx)
	return s, nil
}

// C is closed when the subscription ends.
func (s *Subscription) C() <-chan board.GameData { return s.out }

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
	})
	return err
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.out)
	defer s.Close()
	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			env, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				s.hub.logger.Warn("session_message_invalid", zap.Error(err))
				continue
			}
			// drop the stale pending snapshot, if any
			select {
			case <-s.out:
			default:
			}
			s.out <- env.Data
		}
	}
}

// Close ends every subscription. The Redis client is owned by the caller.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Event != EventGameData {
		return Envelope{}, fmt.Errorf("unexpected event %q", env.Event)
	}
	if err := env.Data.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
