package email

// Config configures outgoing mail. Without a Postmark server token the
// process falls back to the file-based DevSender writing into DevOutputDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL"  envDefault:"hello@contentplan.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@contentplan.app"`
	DevOutputDir         string `env:"EMAIL_DEV_DIR" envDefault:".mail"`
}
