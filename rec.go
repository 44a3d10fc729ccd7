// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package xdom

import (
	"code.hybscloud.com/kont"
)

// Loop runs a recursive domain protocol, such as a driver loop that
// submits one batch per round.
// step returns Left(nextState) to continue or Right(result) to finish.
func Loop[S, A any](initial S, step func(S) kont.Eff[kont.Either[S, A]]) kont.Eff[A] {
	return kont.Bind(step(initial), func(e kont.Either[S, A]) kont.Eff[A] {
		if next, ok := e.GetLeft(); ok {
			return Loop(next, step)
		}
		done, _ := e.GetRight()
		return kont.Pure(done)
	})
}

// Continue and Done build the Either a Loop step returns.
func Continue[S, A any](s S) kont.Eff[kont.Either[S, A]] {
	return kont.Pure(kont.Left[S, A](s))
}

// Done ends a Loop with a.
func Done[S, A any](a A) kont.Eff[kont.Either[S, A]] {
	return kont.Pure(kont.Right[S, A](a))
}
