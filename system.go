// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"cmp"
	"slices"
	"sync"

	"code.hybscloud.com/xdom/rref"
	"code.hybscloud.com/xdom/sched"
	"github.com/rs/zerolog"
)

// System ties the shared heap, the machine and the domains together.
type System struct {
	heap    *rref.Heap
	machine *sched.Machine
	log     zerolog.Logger

	mu      sync.RWMutex
	domains map[rref.DomainID]*Domain
}

// SystemOption configures a System.
type SystemOption func(*System)

// WithLogger sets the logger domains derive theirs from.
func WithLogger(l zerolog.Logger) SystemOption {
	return func(s *System) { s.log = l }
}

// NewSystem creates a system over an initialized heap and a machine.
func NewSystem(heap *rref.Heap, m *sched.Machine, opts ...SystemOption) *System {
	s := &System{
		heap:    heap,
		machine: m,
		log:     zerolog.Nop(),
		domains: make(map[rref.DomainID]*Domain),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Heap returns the shared heap.
func (s *System) Heap() *rref.Heap { return s.heap }

// Machine returns the machine.
func (s *System) Machine() *sched.Machine { return s.machine }

// NewDomain creates a domain with a fresh id.
func (s *System) NewDomain(name string) *Domain {
	id := nextDomainID()
	d := &Domain{
		id:   id,
		name: name,
		sys:  s,
		log:  s.log.With().Str("domain", name).Uint64("id", uint64(id)).Logger(),
	}
	s.mu.Lock()
	s.domains[id] = d
	s.mu.Unlock()
	d.log.Debug().Msg("xdom: domain created")
	return d
}

// Domain looks up a domain by id.
func (s *System) Domain(id rref.DomainID) (*Domain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.domains[id]
	return d, ok
}

// Domains returns every domain ordered by id.
func (s *System) Domains() []*Domain {
	s.mu.RLock()
	out := make([]*Domain, 0, len(s.domains))
	for _, d := range s.domains {
		out = append(out, d)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Domain) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Connect returns the proxy through which caller calls callee.
func (s *System) Connect(caller, callee *Domain) *Proxy {
	return &Proxy{caller: caller, callee: callee}
}

// Spawn creates a thread that starts executing in d.
func (s *System) Spawn(d *Domain, name string, entry func(*sched.Thread), opts ...sched.ThreadOption) *sched.Thread {
	opts = append(opts, sched.WithDomain(d.id))
	return s.machine.CreateThread(name, entry, opts...)
}
