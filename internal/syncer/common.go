package syncer

import "time"

var timeNow = time.Now

// EpochMillis is the client-assigned clip timestamp.
func EpochMillis() int64 {
	return timeNow().UnixMilli()
}

func SetTimeNowFn(f func() time.Time) {
	timeNow = f
}

func RestoreTimeNow() {
	timeNow = time.Now
}
