// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/xdom/rref"
	"github.com/rs/zerolog"
)

// Domain is an isolated compartment. Exchange references name their
// owning domain by its id.
type Domain struct {
	id   rref.DomainID
	name string
	sys  *System
	log  zerolog.Logger

	crashed  atomix.Bool
	calls    atomix.Uint64
	aborts   atomix.Uint64
	leaked   atomix.Uint64
	restarts atomix.Uint64
}

// DomainStats is a snapshot of a domain's counters.
type DomainStats struct {
	Calls    uint64 // calls entered, aborted ones included
	Aborts   uint64 // calls that ended in a panic
	Leaked   uint64 // handles, nested ones included, stranded by aborted calls
	Restarts uint64
	Crashed  bool
}

// ID returns the domain id.
func (d *Domain) ID() rref.DomainID { return d.id }

// Name returns the name given at creation.
func (d *Domain) Name() string { return d.name }

// Crashed reports whether the domain panicked and has not been restarted.
func (d *Domain) Crashed() bool { return d.crashed.Load() }

// Restart clears the crashed mark so calls are accepted again. References
// leaked by the crash stay leaked.
func (d *Domain) Restart() {
	if d.crashed.CompareAndSwap(true, false) {
		d.restarts.Add(1)
		d.log.Info().Msg("xdom: domain restarted")
	}
}

// Stats returns a snapshot of the domain's counters.
func (d *Domain) Stats() DomainStats {
	return DomainStats{
		Calls:    d.calls.Load(),
		Aborts:   d.aborts.Load(),
		Leaked:   d.leaked.Load(),
		Restarts: d.restarts.Load(),
		Crashed:  d.crashed.Load(),
	}
}

func (d *Domain) crash(err error, leaked int) {
	d.crashed.Store(true)
	d.aborts.Add(1)
	d.leaked.Add(uint64(leaked))
	d.log.Error().Err(err).Int("leaked", leaked).Msg("xdom: domain crashed")
}
