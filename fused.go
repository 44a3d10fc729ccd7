// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"code.hybscloud.com/kont"
	"code.hybscloud.com/xdom/rref"
)

// CallBind calls fn through p and passes the outcome to f.
// Fuses Perform(Invoke[R]{...}) + Bind.
func CallBind[R, B any](p *Proxy, fn func(*CallContext) R, f func(kont.Either[error, R]) kont.Eff[B], args ...Movable) kont.Eff[B] {
	return kont.Bind(kont.Perform(Invoke[R]{Proxy: p, Fn: fn, Args: args}), f)
}

// CallThen calls fn through p, discards the outcome and continues with next.
// Fuses Perform(Invoke[R]{...}) + Then.
func CallThen[R, B any](p *Proxy, fn func(*CallContext) R, next kont.Eff[B], args ...Movable) kont.Eff[B] {
	return kont.Then(kont.Perform(Invoke[R]{Proxy: p, Fn: fn, Args: args}), next)
}

// YieldThen yields the CPU and continues with next.
// Fuses Perform(Yield{}) + Then.
func YieldThen[B any](next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(Yield{}), next)
}

// SelfBind passes the current domain to f.
// Fuses Perform(Self{}) + Bind.
func SelfBind[B any](f func(rref.DomainID) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Self{}), f)
}
