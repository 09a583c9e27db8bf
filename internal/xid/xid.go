package xid

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// Sequence derives ids from a namespace and a per-kind counter, so two
// sequences built on the same namespace hand out identical ids in the same order.
type Sequence struct {
	mu        sync.Mutex
	namespace uuid.UUID
	counters  map[string]int
}

func NewSequence(namespace uuid.UUID) *Sequence {
	return &Sequence{namespace: namespace, counters: make(map[string]int)}
}

// NewRandomSequence uses a fresh random namespace.
func NewRandomSequence() *Sequence {
	return NewSequence(uuid.New())
}

// NamespaceFor derives a stable namespace from a generation seed.
func NamespaceFor(seed uint64) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("kasirdemo/seed/"+strconv.FormatUint(seed, 10)))
}

func (s *Sequence) Next(kind string) string {
	s.mu.Lock()
	s.counters[kind]++
	n := s.counters[kind]
	s.mu.Unlock()
	return uuid.NewSHA1(s.namespace, []byte(kind+"/"+strconv.Itoa(n))).String()
}
