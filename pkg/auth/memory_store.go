package auth

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory CredentialStore for tests. Fail makes an
// operation ("store", "retrieve", "list", "delete") return an error.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	failures map[string]error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]Account),
		failures: make(map[string]error),
	}
}

// NewMemoryManager creates a Manager over a single MemoryStore
func NewMemoryManager() (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	return NewManagerWithStores(store), store
}

// Fail injects err into every later call of op
func (m *MemoryStore) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// Count returns the number of stored accounts
func (m *MemoryStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

func (m *MemoryStore) Store(account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["store"]; err != nil {
		return err
	}
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}
	m.accounts[account.Username] = *account
	return nil
}

func (m *MemoryStore) Retrieve(username string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["retrieve"]; err != nil {
		return nil, err
	}
	account, ok := m.accounts[username]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (m *MemoryStore) List() ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["list"]; err != nil {
		return nil, err
	}
	out := make([]*Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		a := account
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *MemoryStore) Delete(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["delete"]; err != nil {
		return err
	}
	if _, ok := m.accounts[username]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *MemoryStore) Exists(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[username]
	return ok
}
