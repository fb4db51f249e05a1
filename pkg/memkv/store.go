package memkv

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

type Options struct {
	Shards   int         // number of shards (default 256)
	MaxBytes uint64      // hard cap on total value bytes (0 = unlimited)
	Clock    clock.Clock // time source (default: real clock)
}

func (o Options) withDefaults() Options {
	if o.Shards <= 0 {
		o.Shards = 256
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	return o
}

type Store struct {
	opts    Options
	clk     clock.Clock
	shards  []shard
	expq    expQueue
	expMu   sync.Mutex
	wake    chan struct{}
	closeCh chan struct{}
	closed  sync.Once
	wg      sync.WaitGroup

	mKeys    atomic.Uint64
	mBytes   atomic.Uint64
	mSets    atomic.Uint64
	mHits    atomic.Uint64
	mMisses  atomic.Uint64
	mDels    atomic.Uint64
	mExpired atomic.Uint64
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*entry
}

type entry struct {
	val      []byte
	expireAt int64 // unix nano; 0 = no expiry
}

func New(opts Options) *Store {
	opts = opts.withDefaults()
	s := &Store{
		opts:    opts,
		clk:     opts.Clock,
		shards:  make([]shard, opts.Shards),
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i].m = make(map[string]*entry)
	}
	s.wg.Add(1)
	go s.expirer()
	return s
}

// Close stops the expiry goroutine. The store stays readable.
func (s *Store) Close() {
	s.closed.Do(func() { close(s.closeCh) })
	s.wg.Wait()
}

func (s *Store) shardFor(key string) *shard {
	// FNV-1a 64
	var h uint64 = 1469598103934665603
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= 1099511628211
	}
	return &s.shards[int(h%uint64(len(s.shards)))]
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }

// tryAddBytes reserves delta bytes against MaxBytes.
func (s *Store) tryAddBytes(delta uint64) bool {
	if s.opts.MaxBytes == 0 {
		s.mBytes.Add(delta)
		return true
	}
	for {
		cur := s.mBytes.Load()
		if cur+delta > s.opts.MaxBytes {
			return false
		}
		if s.mBytes.CompareAndSwap(cur, cur+delta) {
			return true
		}
	}
}

func (s *Store) subBytes(n int) {
	if n > 0 {
		s.mBytes.Add(^uint64(n - 1))
	}
}

// removeLocked drops key from sh. Caller holds sh.mu.
func (s *Store) removeLocked(sh *shard, key string, e *entry) {
	delete(sh.m, key)
	s.mKeys.Add(^uint64(0))
	s.subBytes(len(e.val))
}

func (s *Store) expired(e *entry) bool {
	return e.expireAt != 0 && e.expireAt <= s.clk.Now().UnixNano()
}

// Set stores val under key. A ttl <= 0 keeps the key until deleted.
// It returns false when the MaxBytes limit would be exceeded.
func (s *Store) Set(key string, val []byte, ttl time.Duration) bool {
	var expAt int64
	if ttl > 0 {
		expAt = s.clk.Now().Add(ttl).UnixNano()
	}
	v := clone(val)

	sh := s.shardFor(key)
	sh.mu.Lock()
	prev, existed := sh.m[key]
	oldLen := 0
	if existed {
		oldLen = len(prev.val)
	}
	if delta := len(v) - oldLen; delta > 0 {
		if !s.tryAddBytes(uint64(delta)) {
			sh.mu.Unlock()
			return false
		}
	} else {
		s.subBytes(-delta)
	}
	sh.m[key] = &entry{val: v, expireAt: expAt}
	sh.mu.Unlock()

	if !existed {
		s.mKeys.Add(1)
	}
	s.mSets.Add(1)
	if expAt != 0 {
		s.enqueueExpire(key, expAt)
	}
	return true
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.m[key]
	var val []byte
	if ok && !s.expired(e) {
		val = clone(e.val)
	}
	sh.mu.RUnlock()

	if !ok {
		s.mMisses.Add(1)
		return nil, false
	}
	if val == nil && s.expireNow(sh, key) {
		s.mMisses.Add(1)
		return nil, false
	}
	s.mHits.Add(1)
	return val, true
}

// expireNow removes key if it is still expired.
func (s *Store) expireNow(sh *shard, key string) bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.m[key]
	if !ok {
		return true
	}
	if !s.expired(e) {
		return false
	}
	s.removeLocked(sh, key, e)
	s.mExpired.Add(1)
	return true
}

// GetDel returns the value and deletes the key atomically.
func (s *Store) GetDel(key string) ([]byte, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.m[key]
	if !ok {
		s.mMisses.Add(1)
		return nil, false
	}
	s.removeLocked(sh, key, e)
	if s.expired(e) {
		s.mExpired.Add(1)
		s.mMisses.Add(1)
		return nil, false
	}
	s.mDels.Add(1)
	s.mHits.Add(1)
	return e.val, true
}

func (s *Store) Exists(key string) bool {
	_, ok := s.TTL(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.m[key]
	if !ok {
		return false
	}
	s.removeLocked(sh, key, e)
	s.mDels.Add(1)
	return true
}

// Expire sets a new TTL on an existing key. A ttl <= 0 deletes it.
func (s *Store) Expire(key string, ttl time.Duration) bool {
	if ttl <= 0 {
		return s.Delete(key)
	}
	exp := s.clk.Now().Add(ttl).UnixNano()
	sh := s.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.m[key]
	if ok && s.expired(e) {
		s.removeLocked(sh, key, e)
		s.mExpired.Add(1)
		ok = false
	}
	if ok {
		e.expireAt = exp
	}
	sh.mu.Unlock()
	if ok {
		s.enqueueExpire(key, exp)
	}
	return ok
}

// TTL returns the remaining lifetime. A key without TTL reports 0, true.
func (s *Store) TTL(key string) (time.Duration, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.m[key]
	var exp int64
	if ok {
		exp = e.expireAt
	}
	sh.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if exp == 0 {
		return 0, true
	}
	now := s.clk.Now().UnixNano()
	if exp <= now {
		s.expireNow(sh, key)
		return 0, false
	}
	return time.Duration(exp - now), true
}

// Stats is a snapshot of the store counters.
type Stats struct {
	Keys    uint64
	Bytes   uint64
	Sets    uint64
	Hits    uint64
	Misses  uint64
	Dels    uint64
	Expired uint64
}

func (s *Store) Metrics() Stats {
	return Stats{
		Keys:    s.mKeys.Load(),
		Bytes:   s.mBytes.Load(),
		Sets:    s.mSets.Load(),
		Hits:    s.mHits.Load(),
		Misses:  s.mMisses.Load(),
		Dels:    s.mDels.Load(),
		Expired: s.mExpired.Load(),
	}
}

type expItem struct {
	when int64
	key  string
}

type expQueue []expItem

func (q expQueue) Len() int           { return len(q) }
func (q expQueue) Less(i, j int) bool { return q[i].when < q[j].when }
func (q expQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *expQueue) Push(x any)        { *q = append(*q, x.(expItem)) }
func (q *expQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

func (s *Store) enqueueExpire(key string, when int64) {
	s.expMu.Lock()
	heap.Push(&s.expq, expItem{when: when, key: key})
	s.expMu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// expirer sleeps until the earliest deadline and evicts keys that are still
// expired at that point. Stale queue items (key rewritten or deleted) are
// skipped by the expiry check.
func (s *Store) expirer() {
	defer s.wg.Done()
	for {
		s.expMu.Lock()
		var (
			timer clock.Timer
			fire  <-chan time.Time
		)
		if len(s.expq) > 0 {
			it := s.expq[0]
			now := s.clk.Now().UnixNano()
			if it.when <= now {
				heap.Pop(&s.expq)
				s.expMu.Unlock()
				s.expireNow(s.shardFor(it.key), it.key)
				continue
			}
			timer = s.clk.NewTimer(time.Duration(it.when - now))
			fire = timer.C()
		}
		s.expMu.Unlock()

		select {
		case <-fire:
		case <-s.wake:
		case <-s.closeCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}
