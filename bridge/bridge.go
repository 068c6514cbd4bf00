package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-gotop/ibkit/event"
	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/store"
)

// pending 一个在途请求
type pending struct {
	id      int64
	kind    gateway.Kind
	spec    kindSpec
	trace   string
	bucket  *store.Bucket
	done    *event.Signal
	err     error
	ending  bool // 已收到结束回调
	stopped bool // 已发送停止请求
	timer   *time.Timer
}

func (p *pending) key() store.Key {
	return store.Key{Kind: p.kind, RequestID: p.id}
}

// Call 发出一个请求, 阻塞直到结束回调到达, 返回期间累积的全部行.
// ctx 超时返回 gateway.ErrRequestTimeout 并丢弃部分结果, 网关错误返回 *gateway.GatewayError.
// 结果完整但没有数据时返回空切片.
func (s *Session) Call(ctx context.Context, kind gateway.Kind, payload any, opts ...CallOption) ([]any, error) {
	spec, ok := lookupKind(kind)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "%s", kind)
	}
	co := &callOptions{requestID: gateway.NoRequestID}
	for _, opt := range opts {
		opt(co)
	}

	if err := s.AwaitReady(ctx); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "bridge."+kind.String(), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	p, err := s.register(kind, spec, co)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ibkit.session", s.id),
		attribute.String("ibkit.kind", kind.String()),
		attribute.Int64("ibkit.request_id", p.id),
	)

	if err := s.opts.limiter.Wait(ctx); err != nil {
		s.release(p)
		s.rows.Discard(p.key())
		err = waitError(ctx, gateway.ErrRequestTimeout, "%s reqId=%d pacing", kind, p.id)
		recordError(span, err)
		return nil, err
	}
	s.opts.logger.Debugf("session %s send %s reqId=%d trace=%s", s.id, kind, p.id, p.trace)
	if err := s.client.Send(kind, p.id, payload); err != nil {
		s.release(p)
		s.rows.Discard(p.key())
		err = errors.Wrapf(err, "send %s reqId=%d", kind, p.id)
		recordError(span, err)
		return nil, err
	}

	if werr := p.done.Wait(ctx); werr != nil {
		if s.abandon(p) {
			err = waitError(ctx, gateway.ErrRequestTimeout, "%s reqId=%d", kind, p.id)
			s.opts.logger.Warnf("session %s %s reqId=%d abandoned: %v", s.id, kind, p.id, err)
			recordError(span, err)
			return nil, err
		}
		// 超时与完成同时发生时以完成为准
	}

	if err := s.release(p); err != nil {
		recordError(span, err)
		return nil, err
	}
	rows, err := s.rows.Drain(p.key())
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("ibkit.rows", len(rows)))
	return rows, nil
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// register 分配请求ID并登记桶和信号
func (s *Session) register(kind gateway.Kind, spec kindSpec, co *callOptions) (*pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		if s.connErr != nil {
			return nil, s.connErr
		}
		return nil, gateway.ErrNotReady
	}

	if !spec.keyed {
		for _, p := range s.pendings {
			if p.kind == kind {
				return nil, errors.Wrapf(ErrStreamBusy, "%s reqId=%d", kind, p.id)
			}
		}
	}

	id := co.requestID
	if id == gateway.NoRequestID {
		id = s.allocIDLocked()
	} else if _, ok := s.pendings[id]; ok {
		return nil, errors.Wrapf(ErrDuplicateRequest, "reqId=%d", id)
	}

	p := &pending{
		id:    id,
		kind:  kind,
		spec:  spec,
		trace: uuid.New().String(),
		done:  event.NewSignal(),
	}
	bucket, err := s.rows.Open(p.key())
	if err != nil {
		return nil, errors.Wrapf(ErrDuplicateRequest, "reqId=%d", id)
	}
	p.bucket = bucket
	s.pendings[id] = p
	return p, nil
}

// allocIDLocked 从网关下发的ID开始本地递增, 跳过在途的ID
func (s *Session) allocIDLocked() int64 {
	if s.nextID < 0 {
		s.nextID = 0
	}
	for {
		id := s.nextID
		s.nextID++
		if _, ok := s.pendings[id]; !ok {
			return id
		}
	}
}

// release 移除在途请求, 返回网关或会话记录的错误
func (s *Session) release(p *pending) error {
	s.mu.Lock()
	if cur, ok := s.pendings[p.id]; ok && cur == p {
		delete(s.pendings, p.id)
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	err := p.err
	s.mu.Unlock()
	if err != nil {
		s.rows.Discard(p.key())
	}
	return err
}

// abandon 放弃超时的请求. 如果请求已经完成返回 false.
func (s *Session) abandon(p *pending) bool {
	s.mu.Lock()
	if p.done.IsSet() {
		s.mu.Unlock()
		return false
	}
	if cur, ok := s.pendings[p.id]; ok && cur == p {
		delete(s.pendings, p.id)
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	needStop := p.spec.stopOnAbandon && !p.stopped && s.state == StateReady
	p.stopped = p.stopped || needStop
	s.mu.Unlock()

	s.rows.Discard(p.key())
	if needStop {
		if err := s.client.Stop(p.kind, p.id); err != nil {
			s.opts.logger.Errorf("session %s stop %s reqId=%d error: %v", s.id, p.kind, p.id, err)
		}
	}
	return true
}

// lookupLocked 按请求ID查找, 无请求ID时路由到该类型唯一的在途请求
func (s *Session) lookupLocked(reqID int64, kind gateway.Kind) *pending {
	if reqID != gateway.NoRequestID {
		p, ok := s.pendings[reqID]
		if !ok || p.kind != kind {
			return nil
		}
		return p
	}
	var found *pending
	for _, p := range s.pendings {
		if p.kind != kind || p.bucket.IsComplete() {
			continue
		}
		if found != nil {
			// 多个同类型在途请求无法区分
			return nil
		}
		found = p
	}
	return found
}

// OnRow 追加一行到对应的桶, 找不到在途请求时丢弃
func (s *Session) OnRow(reqID int64, kind gateway.Kind, row any) {
	s.mu.Lock()
	p := s.lookupLocked(reqID, kind)
	s.mu.Unlock()
	if p == nil {
		s.opts.logger.Debugf("session %s drop row %s reqId=%d: no pending request", s.id, kind, reqID)
		return
	}
	if !p.bucket.Append(row) {
		s.opts.logger.Debugf("session %s drop row %s reqId=%d: already complete", s.id, kind, p.id)
	}
}

// OnStreamEnd 结束回调. 需要停止订阅的类型先发送停止请求再置位信号.
func (s *Session) OnStreamEnd(reqID int64, kind gateway.Kind) {
	s.mu.Lock()
	p := s.lookupLocked(reqID, kind)
	if p == nil || p.ending {
		s.mu.Unlock()
		s.opts.logger.Debugf("session %s drop end %s reqId=%d", s.id, kind, reqID)
		return
	}
	p.ending = true
	needStop := p.spec.stopOnEnd && !p.stopped
	p.stopped = p.stopped || needStop
	grace := s.opts.grace[kind]
	s.mu.Unlock()

	if needStop {
		if err := s.client.Stop(kind, p.id); err != nil {
			s.opts.logger.Errorf("session %s stop %s reqId=%d error: %v", s.id, kind, p.id, err)
		}
	}

	if grace <= 0 {
		s.complete(p)
		return
	}
	timer := time.AfterFunc(grace, func() { s.complete(p) })
	s.mu.Lock()
	p.timer = timer
	s.mu.Unlock()
}

func (s *Session) complete(p *pending) {
	p.bucket.Complete()
	p.done.Set()
}

// OnError 系统通知和告警只记录日志, 其他错误附加到对应请求并使其完成
func (s *Session) OnError(reqID int64, code int64, message string) {
	if gateway.IsSystemNotice(reqID) {
		s.opts.logger.Infof("session %s notice code=%d msg=%s", s.id, code, message)
		return
	}
	if s.opts.isWarning(code) {
		s.opts.logger.Warnf("session %s warning reqId=%d code=%d msg=%s", s.id, reqID, code, message)
		return
	}

	s.mu.Lock()
	p, ok := s.pendings[reqID]
	if !ok {
		s.mu.Unlock()
		s.opts.logger.Warnf("session %s error for unknown reqId=%d code=%d msg=%s", s.id, reqID, code, message)
		return
	}
	if p.err == nil {
		p.err = &gateway.GatewayError{RequestID: reqID, Code: code, Message: message}
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	s.mu.Unlock()

	s.opts.logger.Errorf("session %s %s reqId=%d failed: code=%d msg=%s", s.id, p.kind, reqID, code, message)
	s.complete(p)
}

// failPendingsLocked 使全部在途请求以 err 失败, 返回需要置位的请求
func (s *Session) failPendingsLocked(err error) []*pending {
	failed := make([]*pending, 0, len(s.pendings))
	for id, p := range s.pendings {
		if p.err == nil {
			p.err = err
		}
		if p.timer != nil {
			p.timer.Stop()
		}
		failed = append(failed, p)
		delete(s.pendings, id)
	}
	return failed
}

func (s *Session) signalAll(ps []*pending) {
	for _, p := range ps {
		s.complete(p)
	}
}

// Pending 当前在途请求数
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendings)
}

func (p *pending) String() string {
	return fmt.Sprintf("%s reqId=%d", p.kind, p.id)
}
