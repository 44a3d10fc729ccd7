// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rref

// Fixed payload layouts exchanged with driver domains.
const (
	BlockSize = 4096
	FrameSize = 1514
)

// Batch capacities used for driver request deques.
const (
	BatchSmall  = 128
	BatchMedium = 512
	BatchLarge  = 1024
)

// BlockBuffer is one disk block.
type BlockBuffer [BlockSize]byte

// Frame is one network frame with its valid length.
type Frame struct {
	Len  int
	Data [FrameSize]byte
}

// BlockRequest asks a block driver to read or write one block. The buffer
// travels with the request and is dropped with it.
type BlockRequest struct {
	Block uint64
	Write bool
	Data  *Ref[BlockBuffer]
}

// RegisterDriverTypes registers the driver payload types with r.
func RegisterDriverTypes(r *Registry) {
	Register[BlockBuffer](r)
	Register[Frame](r)
	Register[BlockRequest](r)
}
