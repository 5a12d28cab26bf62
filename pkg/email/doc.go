// Package email renders and delivers transactional email.
//
// Sender is implemented by PostmarkSender, which talks to the Postmark API
// through github.com/mrz1836/postmark, and by DevSender, which writes each
// message to disk for local inspection. NewSender picks one from Config.
// Bodies are templ components turned into HTML with Render.
package email
