package reminder

import (
	"fmt"
	"time"
)

const testMessage = "This is a test notification from LookAway. If you can read this, the channel works."

// composeMessage builds the reminder text for the seq-th reminder.
// Short breaks rotate through messages; long breaks use the long break description.
func composeMessage(set Settings, kind Kind, seq int) string {
	var body string
	if kind == KindLong {
		desc := set.LongBreak.Description
		if desc == "" {
			desc = "Take a longer break"
		}
		body = fmt.Sprintf("%s (%d minutes)", desc, int(set.LongBreak.Duration/time.Minute))
	} else {
		body = set.Messages[(seq-1)%len(set.Messages)]
	}
	return fmt.Sprintf("%s\n\nReminder #%d", body, seq)
}

func classify(seq, everyN int) Kind {
	if everyN > 0 && seq%everyN == 0 {
		return KindLong
	}
	return KindShort
}
