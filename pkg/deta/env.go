package deta

import (
	"fmt"
	"os"
	"strings"

	"github.com/Ratio1/detabase_sdk_go/internal/devseed"
	"github.com/Ratio1/detabase_sdk_go/pkg/base/mock"
)

// NewFromEnv initialises a project handle from DETA_* environment variables
// and returns the resolved mode ("http" or "mock").
func NewFromEnv() (*Deta, string, error) {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(EnvRuntimeMode)))
	key := strings.TrimSpace(os.Getenv(EnvProjectKey))

	switch mode {
	case "", ModeAuto:
		if key != "" {
			return newHTTP()
		}
		return newMock()
	case ModeHTTP:
		if key == "" {
			return nil, "", fmt.Errorf("deta: HTTP mode requires %s", EnvProjectKey)
		}
		return newHTTP()
	case ModeMock:
		return newMock()
	default:
		return nil, "", fmt.Errorf("deta: unsupported %s value %q", EnvRuntimeMode, mode)
	}
}

func newHTTP() (*Deta, string, error) {
	d, err := New(Config{})
	if err != nil {
		return nil, "", fmt.Errorf("deta: init HTTP client: %w", err)
	}
	return d, ModeHTTP, nil
}

func newMock() (*Deta, string, error) {
	store := mock.New()
	if path := strings.TrimSpace(os.Getenv(EnvMockSeed)); path != "" {
		seeds, err := devseed.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("deta: load mock seed: %w", err)
		}
		if err := store.Seed(seeds); err != nil {
			return nil, "", fmt.Errorf("deta: apply mock seed: %w", err)
		}
	}
	return NewMock(store), ModeMock, nil
}
