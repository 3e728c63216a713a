package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the app’s secrets in the OS keychain.
	KeyringService = "leadhunt"
)

// GetTwilioAuthToken reads the auth token from the OS keychain, falling
// back to TWILIO_AUTH_TOKEN for headless deployments without a keyring.
func GetTwilioAuthToken(accountSID string) (string, error) {
	if strings.TrimSpace(accountSID) != "" {
		tok, err := keyring.Get(KeyringService, TwilioKeyringAccount(accountSID))
		if err == nil && strings.TrimSpace(tok) != "" {
			return tok, nil
		}
	}

	if tok := strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")); tok != "" {
		return tok, nil
	}

	return "", errors.New("Twilio auth token not found (set it in keychain or via TWILIO_AUTH_TOKEN)")
}

func SetTwilioAuthToken(accountSID, token string) error {
	if strings.TrimSpace(accountSID) == "" {
		return errors.New("account SID is empty")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("auth token is empty")
	}
	return keyring.Set(KeyringService, TwilioKeyringAccount(accountSID), token)
}

func DeleteTwilioAuthToken(accountSID string) error {
	if strings.TrimSpace(accountSID) == "" {
		return errors.New("account SID is empty")
	}
	return keyring.Delete(KeyringService, TwilioKeyringAccount(accountSID))
}

func TwilioKeyringAccount(accountSID string) string {
	return fmt.Sprintf("leadhunt:twilio:%s", accountSID)
}
