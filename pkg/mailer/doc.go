// Package mailer sends transactional email through Postmark, behind a small
// Sender interface so services can be tested with fakes and development
// environments can log instead of sending.
//
// Delivery failures are wrapped with ErrFailedToSendEmail so callers can tell
// a mail-transport outage apart from storage or catalog errors.
package mailer
