package mailer

// Config holds mail transport configuration.
// Postmark tokens are optional so development environments can run the
// logging sender; SenderEmail establishes the from-identity and SupportEmail
// the reply-to for all outbound mail.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	SupportEmail         string `env:"SUPPORT_EMAIL,required"`
}
