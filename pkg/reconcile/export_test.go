package reconcile

import "time"

func (l *MemoryLedger) SetClock(now func() time.Time) {
	l.now = now
}
