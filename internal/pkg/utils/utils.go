// Package utils collects small timing and string helpers exposed to
// embedding hosts.
package utils

import (
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Debounce returns a function that delays calling fn until wait has elapsed
// since the last call. Only the arguments of the last call are delivered.
func Debounce[T any](fn func(T), wait time.Duration) func(T) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	return func(arg T) {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(wait, func() { fn(arg) })
	}
}

// Throttle returns a function that calls fn at most once per limit. Calls
// made inside the window are dropped. It reports whether fn ran.
func Throttle[T any](fn func(T), limit time.Duration) func(T) bool {
	limiter := rate.NewLimiter(rate.Every(limit), 1)
	return func(arg T) bool {
		if !limiter.Allow() {
			return false
		}
		fn(arg)
		return true
	}
}

// RandomString returns n characters drawn from [A-Za-z0-9]. It is not
// suitable for secrets.
func RandomString(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// Toolkit is the helper set handed to embedding hosts.
type Toolkit struct {
	Debounce     func(fn func(any), wait time.Duration) func(any)
	Throttle     func(fn func(any), limit time.Duration) func(any) bool
	RandomString func(n int) string
}

// Kit returns the helpers instantiated for untyped payloads.
func Kit() Toolkit {
	return Toolkit{
		Debounce:     Debounce[any],
		Throttle:     Throttle[any],
		RandomString: RandomString,
	}
}
