package deta

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/Ratio1/detabase_sdk_go/internal/httpx"
	"github.com/Ratio1/detabase_sdk_go/pkg/base"
	"github.com/Ratio1/detabase_sdk_go/pkg/base/mock"
)

const (
	EnvProjectKey  = "DETA_PROJECT_KEY"
	EnvHost        = "DETA_BASE_HOST"
	EnvRuntimeMode = "DETA_RUNTIME_MODE"
	EnvMockSeed    = "DETA_MOCK_SEED"

	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

// Config carries the credential and transport settings of a project.
// Empty ProjectKey and Host fall back to DETA_PROJECT_KEY and DETA_BASE_HOST.
type Config struct {
	ProjectKey  string
	Host        string
	HTTPClient  *http.Client
	RetryPolicy *httpx.RetryPolicy
	Logger      *slog.Logger
}

// Deta hands out Base clients for one project.
type Deta struct {
	mode      string
	projectID string
	key       string
	host      string
	transport []httpx.Option
	store     *mock.Mock
}

// New validates cfg and returns an HTTP-backed project handle. The
// environment is consulted here only; later changes to it have no effect.
func New(cfg Config) (*Deta, error) {
	key := strings.TrimSpace(cfg.ProjectKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(EnvProjectKey))
	}
	projectID, err := base.ParseProjectKey(key)
	if err != nil {
		return nil, err
	}

	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = strings.TrimSpace(os.Getenv(EnvHost))
	}
	if host == "" {
		host = base.DefaultHost
	}

	var transport []httpx.Option
	if cfg.HTTPClient != nil {
		transport = append(transport, httpx.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.RetryPolicy != nil {
		transport = append(transport, httpx.WithRetryPolicy(*cfg.RetryPolicy))
	}
	if cfg.Logger != nil {
		transport = append(transport, httpx.WithLogger(cfg.Logger))
	}

	return &Deta{
		mode:      ModeHTTP,
		projectID: projectID,
		key:       key,
		host:      host,
		transport: transport,
	}, nil
}

// NewMock returns a project handle whose bases live in store. A nil store
// is replaced by an empty one.
func NewMock(store *mock.Mock) *Deta {
	if store == nil {
		store = mock.New()
	}
	return &Deta{mode: ModeMock, store: store}
}

// Base returns a client for the named collection.
func (d *Deta) Base(name string) (*base.Base, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: deta handle is nil", base.ErrConfiguration)
	}
	if d.store != nil {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: base name is required", base.ErrConfiguration)
		}
		return base.NewWithBackend(name, d.store.Base(name)), nil
	}
	return base.New(name, d.key, base.WithHost(d.host), base.WithTransport(d.transport...))
}

// Mode reports "http" or "mock".
func (d *Deta) Mode() string { return d.mode }

// ProjectID returns the project id, empty in mock mode.
func (d *Deta) ProjectID() string { return d.projectID }

// Store returns the in-memory store backing a mock handle, nil otherwise.
func (d *Deta) Store() *mock.Mock { return d.store }
