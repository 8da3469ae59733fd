package models

import "time"

// Account is an authenticated campaign owner
type Account struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	APIToken        string    `json:"-" db:"api_token"`
	SMSCredits      int       `json:"sms_credits" db:"sms_credits"`
	EmailCredits    int       `json:"email_credits" db:"email_credits"`
	WhatsAppCredits int       `json:"whatsapp_credits" db:"whatsapp_credits"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// CreditsFor returns the remaining credit balance for the given channel.
// Billing itself lives elsewhere; campaign creation only checks the balance
// is positive.
func (a *Account) CreditsFor(channel Channel) int {
	switch channel {
	case ChannelSMS:
		return a.SMSCredits
	case ChannelEmail:
		return a.EmailCredits
	case ChannelWhatsApp:
		return a.WhatsAppCredits
	}
	return 0
}
