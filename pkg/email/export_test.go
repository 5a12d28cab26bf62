package email

import "time"

var (
	NewPostmarkSenderWithAPI = newPostmarkSender
	SanitizeFilename         = sanitizeFilename
)

func (d *DevSender) SetClock(now func() time.Time) { d.now = now }
