// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/xdom"
	"code.hybscloud.com/xdom/rref"
	"code.hybscloud.com/xdom/sched"
	"github.com/rs/zerolog"
)

// diskBlocks is the size of the simulated disk.
const diskBlocks = 256

// blockDevice is the block driver domain's private state. Its disk blocks
// are references owned by the driver and never leave it.
type blockDevice struct {
	disk   *rref.Array[rref.BlockBuffer]
	reads  int
	writes int
}

func newBlockDevice(heap *rref.Heap, owner rref.DomainID) *blockDevice {
	return &blockDevice{
		disk: rref.NewArray(heap, owner, make([]*rref.Ref[rref.BlockBuffer], diskBlocks)),
	}
}

// serve runs inside the driver domain. It handles the requests in order
// and panics at index fail when fail is not negative.
func (d *blockDevice) serve(c *xdom.CallContext, reqs *rref.Deque[rref.BlockRequest], fail int) int {
	n := 0
	for r := range reqs.All() {
		req := r.Get()
		if n == fail {
			panic(fmt.Errorf("blk: media error at block %d", req.Block))
		}
		slot := int(req.Block % diskBlocks)
		blk := d.disk.Get(slot)
		if req.Write {
			if blk == nil {
				blk = rref.New(c.Heap(), c.Callee.ID(), rref.BlockBuffer{})
				d.disk.Set(slot, blk)
			}
			*blk.Get() = *req.Data.Get()
			d.writes++
		} else {
			if blk != nil {
				*req.Data.Get() = *blk.Get()
			} else {
				clear(req.Data.Get()[:])
			}
			d.reads++
		}
		n++
	}
	return n
}

// progress is the state the app's submit loop threads through its rounds.
type progress struct {
	round      int
	served     int
	aborted    int
	mismatched int
}

// workload submits batches of block requests from the app domain. Even
// rounds write a stripe of blocks, odd rounds read the same stripe back.
type workload struct {
	log     zerolog.Logger
	sys     *xdom.System
	th      *sched.Thread
	app     *xdom.Domain
	proxy   *xdom.Proxy
	dev     *blockDevice
	batches int
	batch   int
	crashAt int
}

func (w *workload) stripe(round int) uint64 {
	return uint64(round/2) * uint64(w.batch)
}

func (w *workload) requests(round int) *rref.Deque[rref.BlockRequest] {
	heap, owner := w.sys.Heap(), w.app.ID()
	reqs := rref.NewDeque[rref.BlockRequest](heap, owner, w.batch)
	base := w.stripe(round)
	for i := range w.batch {
		blk := base + uint64(i)
		var buf rref.BlockBuffer
		write := round%2 == 0
		if write {
			buf[0] = byte(blk)
		}
		reqs.PushBack(rref.New(heap, owner, rref.BlockRequest{
			Block: blk,
			Write: write,
			Data:  rref.New(heap, owner, buf),
		}))
	}
	return reqs
}

func (w *workload) verify(round int, reqs *rref.Deque[rref.BlockRequest]) int {
	if round%2 == 0 {
		return 0
	}
	bad := 0
	for r := range reqs.All() {
		if r.Get().Data.Get()[0] != byte(r.Get().Block) {
			bad++
		}
	}
	return bad
}

// step submits one round. Halfway through, the thread asks to move to the
// last CPU and yields so the move takes effect.
func (w *workload) step(p progress) kont.Eff[kont.Either[progress, progress]] {
	if p.round == w.batches {
		return xdom.Done[progress, progress](p)
	}
	w.th.Check()
	reqs := w.requests(p.round)
	fail := -1
	if p.round == w.crashAt {
		fail = reqs.Len() / 2
	}
	serve := func(c *xdom.CallContext) int { return w.dev.serve(c, reqs, fail) }
	return xdom.CallBind(w.proxy, serve, func(e kont.Either[error, int]) kont.Eff[kont.Either[progress, progress]] {
		if err, ok := e.GetLeft(); ok {
			p.aborted++
			w.log.Warn().Err(err).Int("round", p.round).Msg("xdomsim: batch aborted, restarting driver")
			w.proxy.Callee().Restart()
		} else {
			n, _ := e.GetRight()
			p.served += n
			p.mismatched += w.verify(p.round, reqs)
		}
		// An aborted batch stays with the crashed driver.
		if reqs.DomainID() == w.app.ID() {
			reqs.Drop()
		}
		p.round++
		next := xdom.Continue[progress, progress](p)
		if m := w.sys.Machine(); p.round == w.batches/2 && m.NumCPU() > 1 {
			m.SetAffinity(w.th, m.NumCPU()-1)
			return xdom.YieldThen(next)
		}
		return next
	}, reqs)
}
