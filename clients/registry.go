package clients

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// ErrClientNotFound is returned when no client carries the requested id.
var ErrClientNotFound = errors.New("client not found")

// Registry is a thread-safe, in-memory view of the provisioned clients.
// The authoritative source is configuration; there is no runtime client
// registration surface.
type Registry struct {
	lock    sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// LoadRegistry reads a JSON array of clients from the given file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadRegistry] ReadFile")
	}

	var list []*Client
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrap(err, "[LoadRegistry] Unmarshal")
	}

	r := NewRegistry()
	for _, c := range list {
		if err := r.Register(c); err != nil {
			return nil, errors.Wrap(err, "[LoadRegistry] Register")
		}
	}
	return r, nil
}

// Register adds a client to the registry.
func (r *Registry) Register(c *Client) error {
	if c == nil || c.ID == "" {
		return errors.New("[Registry.Register] client id is required")
	}
	if c.Type != ClientTypePublic && c.Type != ClientTypeConfidential {
		return errors.Errorf("[Registry.Register] unknown client type %q", c.Type)
	}
	if c.Type == ClientTypeConfidential && c.SecretHash == "" {
		return errors.New("[Registry.Register] confidential clients require a secret hash")
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	r.clients[c.ID] = c
	return nil
}

// Get looks up a client by id.
func (r *Registry) Get(clientID string) (*Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	return client, nil
}
