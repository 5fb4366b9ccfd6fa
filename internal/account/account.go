// Package account manages the configured DAV accounts and builds
// authenticated HTTP clients scoped to them.
package account

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hummans/PeopleSyncClient/internal/dav"
	"github.com/hummans/PeopleSyncClient/internal/discovery"
)

const userAgent = "PeopleSyncClient/1.0"

// Account holds the credentials and endpoint of one configured account.
type Account struct {
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Manager implements discovery.ClientFactory on top of an accounts file.
type Manager struct {
	mu       sync.RWMutex
	accounts map[string]Account
	logger   *slog.Logger
}

// LoadManager reads the JSON accounts file at path.
func LoadManager(path string, logger *slog.Logger) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading accounts file: %w", err)
	}

	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("parsing accounts file %s: %w", path, err)
	}

	m := &Manager{
		accounts: make(map[string]Account, len(accounts)),
		logger:   logger,
	}
	for _, acct := range accounts {
		if acct.Name == "" || acct.BaseURL == "" {
			return nil, fmt.Errorf("account entry missing name or base_url in %s", path)
		}
		if _, dup := m.accounts[acct.Name]; dup {
			return nil, fmt.Errorf("duplicate account %q in %s", acct.Name, path)
		}
		m.accounts[acct.Name] = acct
	}
	return m, nil
}

// Accounts returns all configured accounts.
func (m *Manager) Accounts() []Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		accounts = append(accounts, acct)
	}
	return accounts
}

// Remove forgets an account. Later ClientFor calls for it report the
// account as gone.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	delete(m.accounts, name)
	m.mu.Unlock()
}

// ClientFor builds an authenticated DAV client for the named account. The
// foreground hint selects tighter timeouts for interactive operations. The
// release function drops the client's idle connections and must be called
// when the operation ends.
func (m *Manager) ClientFor(accountName string, foreground bool) (*dav.Client, func(), error) {
	m.mu.RLock()
	acct, ok := m.accounts[accountName]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("account %q: %w", accountName, discovery.ErrAccountGone)
	}

	timeout := 120 * time.Second
	if foreground {
		timeout = 30 * time.Second
	}

	transport := dav.NewBasicAuthTransport(acct.Username, acct.Password, nil, m.logger)
	transport.UserAgent = userAgent
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	client, err := dav.NewClient(httpClient, acct.BaseURL, m.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("building client for account %q: %w", accountName, err)
	}

	release := func() {
		httpClient.CloseIdleConnections()
	}
	return client, release, nil
}
