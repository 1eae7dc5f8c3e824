package models

import "time"

// Clock returns the current time in Unix milliseconds.
type Clock func() int64

// NowMillis is the wall clock.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
