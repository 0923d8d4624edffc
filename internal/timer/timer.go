package timer

import (
	"sync/atomic"
	"time"
)

// Time contains the unix-time in milliseconds updated every [Resolution] milliseconds
var Time = new(atomic.Int64)

var date atomic.Pointer[string]

// RFC1123 is the only date format allowed in the Date header
const RFC1123 = "Mon, 02 Jan 2006 15:04:05 GMT"

func Now() time.Time {
	millis := Time.Load()
	return time.Unix(millis/1000, (millis%1000)*1e6)
}

// Date returns the current time, formatted for the Date response header. The value
// is re-rendered only once per [Resolution]
func Date() string {
	return *date.Load()
}

// Resolution is the frequency at which time is updated. Default 500ms are
// precise enough for setting I/O deadlines and rendering the Date header
const Resolution = 500 * time.Millisecond

func tick() {
	now := time.Now()
	Time.Store(now.UnixMilli())
	formatted := now.UTC().Format(RFC1123)
	date.Store(&formatted)
}

func init() {
	// there is no guarantee that the goroutine will be started immediately. If it won't,
	// some rapid usage of the timer will result in zero-time, which isn't great actually
	tick()

	go func() {
		for {
			time.Sleep(Resolution)
			tick()
		}
	}()
}
