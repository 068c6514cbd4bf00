package store

import (
	"errors"
	"sync"

	"github.com/go-gotop/ibkit/gateway"
)

var (
	ErrBucketExists   = errors.New("bucket already exists")
	ErrBucketNotFound = errors.New("bucket not found")
)

// Key 桶的标识, 同一个请求ID在不同类型下互不干扰
type Key struct {
	Kind      gateway.Kind
	RequestID int64
}

// Bucket 单个请求的累积容器, 行按到达顺序追加
type Bucket struct {
	key      Key
	mu       sync.Mutex
	rows     []any
	complete bool
}

func (b *Bucket) Key() Key {
	return b.key
}

// Append 追加一行, 桶完成后的行被丢弃并返回 false
func (b *Bucket) Append(row any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.complete {
		return false
	}
	b.rows = append(b.rows, row)
	return true
}

// Complete 标记桶完成, 只有第一次调用返回 true
func (b *Bucket) Complete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.complete {
		return false
	}
	b.complete = true
	return true
}

func (b *Bucket) IsComplete() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.complete
}

func (b *Bucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// Rows 返回行的拷贝
func (b *Bucket) Rows() []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := make([]any, len(b.rows))
	copy(rows, b.rows)
	return rows
}

// Store 按请求标识组织的线程安全累积缓冲
type Store struct {
	mu      sync.Mutex
	buckets map[Key]*Bucket
}

func New() *Store {
	return &Store{
		buckets: make(map[Key]*Bucket),
	}
}

// Open 为 key 创建一个空桶
func (s *Store) Open(key Key) (*Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[key]; ok {
		return nil, ErrBucketExists
	}
	b := &Bucket{key: key, rows: make([]any, 0)}
	s.buckets[key] = b
	return b, nil
}

func (s *Store) Get(key Key) (*Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	return b, ok
}

// Append 追加到 key 对应的桶, 桶不存在或已完成返回 false
func (s *Store) Append(key Key, row any) bool {
	b, ok := s.Get(key)
	if !ok {
		return false
	}
	return b.Append(row)
}

// Drain 移除 key 对应的桶并返回其中的行
func (s *Store) Drain(key Key) ([]any, error) {
	s.mu.Lock()
	b, ok := s.buckets[key]
	delete(s.buckets, key)
	s.mu.Unlock()
	if !ok {
		return nil, ErrBucketNotFound
	}
	return b.Rows(), nil
}

// Discard 丢弃 key 对应的桶及其部分结果
func (s *Store) Discard(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[key]; ok {
		b.Complete()
		delete(s.buckets, key)
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Reset 丢弃全部桶, 用于会话断开
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range s.buckets {
		b.Complete()
		delete(s.buckets, k)
	}
}
