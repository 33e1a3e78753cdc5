package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"interviewgo/internal/account"
	"interviewgo/internal/config"
	"interviewgo/internal/session"
)

// Factory resolves the content provider for a caller: it picks the
// configured provider, prefers the user's stored API key over the
// server-level one, and reuses a generator until the key changes.
type Factory struct {
	accounts *account.Service
	cfg      *config.Config

	mu     sync.Mutex
	cached map[string]*Generator
}

// NewFactory wires the account service and app config.
func NewFactory(accounts *account.Service, cfg *config.Config) *Factory {
	return &Factory{
		accounts: accounts,
		cfg:      cfg,
		cached:   make(map[string]*Generator),
	}
}

// Provider implements session.ProviderFactory.
func (f *Factory) Provider(ctx context.Context, userID int64) (session.ContentProvider, error) {
	name := f.cfg.BasicConfig.DefaultProvider
	if name == "" {
		return nil, errors.New("no default provider configured")
	}
	provCfg, ok := f.cfg.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", name)
	}

	token, err := f.accounts.ProviderKey(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if token == "" {
		token = provCfg.APIKey
	}
	if token == "" {
		return nil, fmt.Errorf("no API key available for provider %s", name)
	}

	key := name + "|" + token
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen, ok := f.cached[key]; ok {
		return gen, nil
	}
	gen, err := NewGenerator(name, provCfg.Model, token, provCfg)
	if err != nil {
		return nil, err
	}
	f.cached[key] = gen
	return gen, nil
}
