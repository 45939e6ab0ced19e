package emailsend

import (
	"fmt"
	"net/mail"
	"strings"
)

func validateInput(in *Input) error {
	if in == nil {
		return fmt.Errorf("no message")
	}
	if len(in.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	for _, to := range in.To {
		if !isValidEmail(to) {
			return fmt.Errorf("invalid 'to' email address: %s", to)
		}
	}
	if in.ReplyTo != "" && !isValidEmail(in.ReplyTo) {
		return fmt.Errorf("invalid 'replyTo' email address: %s", in.ReplyTo)
	}
	if strings.TrimSpace(in.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(in.HTML) == "" && strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("body is required")
	}
	return nil
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return false
	}
	at := strings.LastIndexByte(addr.Address, '@')
	return at > 0 && strings.Contains(addr.Address[at+1:], ".")
}
