package bridge

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-gotop/ibkit/event"
	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/store"
)

var _ gateway.Handler = (*Session)(nil)

// State 会话状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingFirstID
	StateReady
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateAwaitingFirstID:
		return "AWAITING_FIRST_ID"
	case StateReady:
		return "READY"
	case StateDisconnecting:
		return "DISCONNECTING"
	default:
		return "UNKNOWN"
	}
}

// Session 管理一条网关连接及其上所有的挂起请求.
// 网关回调在单独的投递协程中调用 On* 方法, 调用方协程只在信号上阻塞.
type Session struct {
	id     string
	opts   *options
	client gateway.Client
	rows   *store.Store
	tracer trace.Tracer

	// mu 保护会话状态和挂起请求表, 只用于簿记, 不跨越等待和网络发送
	mu       sync.Mutex
	state    State
	connErr  error
	nextID   int64 // 本地分配请求ID的起点
	lastID   int64 // 最近一次按调用下发的ID
	accounts []string
	pendings map[int64]*pending

	firstID       event.Latch   // 区分首个 nextValidId 与后续的按调用下发的ID
	ready         *event.Signal // 首个 nextValidId 到达
	idReady       *event.Signal // 按调用请求的 nextValidId 到达
	accountsReady *event.Signal // managedAccounts 到达
	closed        *event.Signal // 回调投递协程已退出
	idGate        chan struct{} // 串行化 NextRequestID
}

func NewSession(client gateway.Client, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Session{
		id:            uuid.New().String(),
		opts:          o,
		client:        client,
		rows:          store.New(),
		tracer:        o.tracerProvider.Tracer("github.com/go-gotop/ibkit/bridge"),
		state:         StateDisconnected,
		nextID:        -1,
		lastID:        -1,
		pendings:      make(map[int64]*pending),
		ready:         event.NewSignal(),
		idReady:       event.NewSignal(),
		accountsReady: event.NewSignal(),
		closed:        event.NewSignal(),
		idGate:        make(chan struct{}, 1),
	}
}

// ID 会话的唯一标识, 用于日志和事件关联
func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected 会话已就绪
func (s *Session) IsConnected() bool {
	return s.State() == StateReady
}

// Connect 打开底层连接并启动回调投递协程, 返回时会话处于等待首个ID的状态.
// 连接被拒绝时返回 gateway.ErrConnection, 不做自动重试.
func (s *Session) Connect(ctx context.Context, address string, identity gateway.Identity) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.state = StateConnecting
	s.connErr = nil
	s.nextID = -1
	s.lastID = -1
	s.accounts = nil
	s.firstID.Reset()
	s.ready.Clear()
	s.idReady.Clear()
	s.accountsReady.Clear()
	s.closed.Clear()
	s.mu.Unlock()

	s.opts.logger.Infof("session %s connecting to %s clientId=%d", s.id, address, identity.ClientID)
	if err := s.client.Connect(ctx, address, identity, s); err != nil {
		cerr := withSentinel(gateway.ErrConnection, err, "%s", address)
		s.mu.Lock()
		s.state = StateDisconnected
		s.connErr = cerr
		s.mu.Unlock()
		s.ready.Set()
		s.opts.logger.Errorf("session %s connect failed: %v", s.id, err)
		return cerr
	}

	s.mu.Lock()
	// 首个ID可能在 Connect 返回之前就已到达
	if s.state == StateConnecting {
		s.state = StateAwaitingFirstID
	}
	s.mu.Unlock()
	return nil
}

// AwaitReady 阻塞直到首个 nextValidId 到达. 超时返回 gateway.ErrReadinessTimeout,
// 就绪前连接断开返回 gateway.ErrConnection.
func (s *Session) AwaitReady(ctx context.Context) error {
	s.mu.Lock()
	state, connErr := s.state, s.connErr
	s.mu.Unlock()
	switch state {
	case StateReady:
		return nil
	case StateDisconnected, StateDisconnecting:
		if connErr != nil {
			return connErr
		}
		return gateway.ErrNotReady
	}

	if err := s.ready.Wait(ctx); err != nil {
		return waitError(ctx, gateway.ErrReadinessTimeout, "session %s await first id", s.id)
	}

	s.mu.Lock()
	state, connErr = s.state, s.connErr
	s.mu.Unlock()
	if state == StateReady {
		return nil
	}
	if connErr != nil {
		return connErr
	}
	return gateway.ErrNotReady
}

// NextRequestID 向网关请求下一个有效ID并等待返回.
// 就绪之前调用会先等待就绪, 因此永远不会拿到首个ID.
func (s *Session) NextRequestID(ctx context.Context) (int64, error) {
	if err := s.AwaitReady(ctx); err != nil {
		return 0, err
	}

	select {
	case s.idGate <- struct{}{}:
	case <-ctx.Done():
		return 0, waitError(ctx, gateway.ErrRequestTimeout, "next id")
	}
	defer func() { <-s.idGate }()

	// 先清除信号, 避免消费上一次调用遗留的置位.
	// 清除后重新检查状态, 否则期间发生的断开信号会被吞掉.
	s.idReady.Clear()
	if err := s.readyErr(); err != nil {
		return 0, err
	}
	if err := s.opts.limiter.Wait(ctx); err != nil {
		return 0, waitError(ctx, gateway.ErrRequestTimeout, "next id pacing")
	}
	if err := s.client.RequestIDs(1); err != nil {
		return 0, errors.Wrap(err, "request ids")
	}
	if err := s.idReady.Wait(ctx); err != nil {
		return 0, waitError(ctx, gateway.ErrRequestTimeout, "next id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyErrLocked(); err != nil {
		return 0, err
	}
	return s.lastID, nil
}

func (s *Session) readyErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyErrLocked()
}

func (s *Session) readyErrLocked() error {
	if s.state == StateReady {
		return nil
	}
	if s.connErr != nil {
		return s.connErr
	}
	return gateway.ErrConnectionLost
}

// ManagedAccounts 等待连接时网关推送的账户列表
func (s *Session) ManagedAccounts(ctx context.Context) ([]string, error) {
	if err := s.accountsReady.Wait(ctx); err != nil {
		return nil, waitError(ctx, gateway.ErrRequestTimeout, "managed accounts")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts == nil {
		if s.connErr != nil {
			return nil, s.connErr
		}
		return nil, gateway.ErrNotReady
	}
	accounts := make([]string, len(s.accounts))
	copy(accounts, s.accounts)
	return accounts, nil
}

// Disconnect 关闭连接, 所有挂起请求以 gateway.ErrSessionClosed 失败,
// 并在有限的宽限期内等待回调投递结束.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == StateDisconnected || s.state == StateDisconnecting {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisconnecting
	failed := s.failPendingsLocked(gateway.ErrSessionClosed)
	s.mu.Unlock()

	s.opts.logger.Infof("session %s disconnecting, %d pending requests aborted", s.id, len(failed))
	s.signalAll(failed)

	err := s.client.Close()
	if !s.closed.WaitTimeout(s.opts.disconnectGrace) {
		s.opts.logger.Debugf("session %s callback delivery did not settle within %s", s.id, s.opts.disconnectGrace)
	}

	s.mu.Lock()
	s.state = StateDisconnected
	s.connErr = gateway.ErrSessionClosed
	s.mu.Unlock()
	s.rows.Reset()

	s.ready.Set()
	s.idReady.Set()
	s.accountsReady.Set()
	return err
}

// OnNextValidID 首个ID是就绪信号, 后续ID才属于 NextRequestID
func (s *Session) OnNextValidID(id int64) {
	s.mu.Lock()
	if s.firstID.Trip() {
		s.nextID = id
		if s.state == StateConnecting || s.state == StateAwaitingFirstID {
			s.state = StateReady
		}
		s.mu.Unlock()
		s.opts.logger.Infof("session %s received the first valid id %d", s.id, id)
		s.ready.Set()
		return
	}
	s.lastID = id
	// 已交给调用方的ID不再被本地分配
	if id >= s.nextID {
		s.nextID = id + 1
	}
	s.mu.Unlock()
	s.opts.logger.Debugf("session %s next valid id %d", s.id, id)
	s.idReady.Set()
}

func (s *Session) OnManagedAccounts(accounts []string) {
	list := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a != "" {
			list = append(list, a)
		}
	}
	s.mu.Lock()
	s.accounts = list
	s.mu.Unlock()
	s.opts.logger.Infof("session %s managed accounts %v", s.id, list)
	s.accountsReady.Set()
}

// OnDisconnected 回调投递协程退出. 非主动断开时所有挂起请求以 gateway.ErrConnectionLost 失败.
func (s *Session) OnDisconnected(err error) {
	s.mu.Lock()
	var failed []*pending
	switch s.state {
	case StateDisconnecting, StateDisconnected:
	case StateConnecting, StateAwaitingFirstID:
		s.connErr = withSentinel(gateway.ErrConnection, err, "lost before ready")
		s.state = StateDisconnected
		failed = s.failPendingsLocked(s.connErr)
	default:
		s.connErr = withSentinel(gateway.ErrConnectionLost, err, "")
		s.state = StateDisconnected
		failed = s.failPendingsLocked(s.connErr)
	}
	s.mu.Unlock()

	if len(failed) > 0 || err != nil {
		s.opts.logger.Warnf("session %s connection closed: %v, %d pending requests failed", s.id, err, len(failed))
	}
	s.signalAll(failed)
	s.ready.Set()
	s.idReady.Set()
	s.accountsReady.Set()
	s.closed.Set()
}
