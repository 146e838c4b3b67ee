package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"DreamsChat/service/metrics"
	"DreamsChat/tools/safe"

	"go.uber.org/zap"
)

// Options 网关依赖；Tokens/Members/Store 必填，其余可为空
type Options struct {
	Node        string
	Registry    *Registry
	Tokens      TokenResolver
	Members     MembershipOracle
	Store       MessageStore
	Events      EventPublisher
	Presence    Presence
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Conf        Conf
	CheckOrigin func(r *http.Request) bool
}

type Server struct {
	node     string
	registry *Registry
	tokens   TokenResolver
	members  MembershipOracle
	store    MessageStore
	events   EventPublisher
	presence Presence
	metrics  *metrics.Metrics
	log      *zap.Logger
	conf     Conf
	origin   func(r *http.Request) bool

	mu       sync.Mutex
	live     map[*Conn]struct{}
	closing  bool
	sessions sync.WaitGroup
}

func NewServer(opts Options) (*Server, error) {
	if safe.IsNil(opts.Tokens) || safe.IsNil(opts.Members) || safe.IsNil(opts.Store) {
		return nil, errors.New("chat: token resolver, membership oracle and message store are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry(opts.Metrics, opts.Logger)
	}
	if opts.CheckOrigin == nil {
		opts.CheckOrigin = func(*http.Request) bool { return true }
	}
	if safe.IsNil(opts.Events) {
		opts.Events = nil
	}
	if safe.IsNil(opts.Presence) {
		opts.Presence = nil
	}
	opts.Conf.norm()

	return &Server{
		node:     opts.Node,
		registry: opts.Registry,
		tokens:   opts.Tokens,
		members:  opts.Members,
		store:    opts.Store,
		events:   opts.Events,
		presence: opts.Presence,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		conf:     opts.Conf,
		origin:   opts.CheckOrigin,
		live:     make(map[*Conn]struct{}),
	}, nil
}

func (s *Server) Registry() *Registry { return s.registry }

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.live[c] = struct{}{}
	s.sessions.Add(1)
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.live, c)
	s.mu.Unlock()
	s.sessions.Done()
}

// Shutdown 以 1001 关闭所有连接，等待会话收尾（Leave + leave 广播）完成
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	conns := make([]*Conn, 0, len(s.live))
	for c := range s.live {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close(closeGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	safe.SafeGo("ws-shutdown-wait", func() {
		s.sessions.Wait()
		close(done)
	})
	select {
	case <-done:
		s.log.Info("[WS] all sessions closed", zap.Int("count", len(conns)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
