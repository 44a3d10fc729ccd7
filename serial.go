// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/xdom/rref"
)

// Kernel is the domain id threads start in unless told otherwise.
const Kernel rref.DomainID = 0

// counter is the process-wide monotonic counter for domain ids. Ids are
// never reused, so a reference moved into a dead domain keeps naming it.
var counter atomix.Uint64

func nextDomainID() rref.DomainID {
	return rref.DomainID(counter.Add(1))
}
