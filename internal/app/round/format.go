package round

import (
	"fmt"
	"time"
)

// FormatElapsed formats an elapsed time as seconds with one decimal,
// e.g. "5.3".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1f", d.Seconds())
}
