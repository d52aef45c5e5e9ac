package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// "Service" groups this app's secrets in the OS keychain.
	KeyringService = "leadgen-engine"
	keyringAccount = "scrape-proxy-api-key"

	apiKeyEnv = "SCRAPER_API_KEY"
)

// GetProxyAPIKey resolves the scrape proxy key: environment first (CI,
// containers), then the OS keychain.
func GetProxyAPIKey() (string, error) {
	if v := strings.TrimSpace(os.Getenv(apiKeyEnv)); v != "" {
		return v, nil
	}

	key, err := keyring.Get(KeyringService, keyringAccount)
	if err == nil && strings.TrimSpace(key) != "" {
		return key, nil
	}

	return "", errors.New("scrape proxy API key not found (set SCRAPER_API_KEY or store it in the keychain)")
}

func SetProxyAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("api key is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, key)
}

func DeleteProxyAPIKey() error {
	return keyring.Delete(KeyringService, keyringAccount)
}
