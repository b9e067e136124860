package factory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/config"
	"github.com/mcoot/gamehub/internal/dependencies/mocks"
	"github.com/mcoot/gamehub/internal/storage/memory"
)

// TestReadyDelay is the readiness window of test lobbies
const TestReadyDelay = 200 * time.Millisecond

// TestStoreApp extends StoreApp with test-specific helpers
type TestStoreApp struct {
	*StoreApp

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestStore creates a registry on an ephemeral loopback port with
// in-memory storage and mocked dependencies. Bundles live under root.
func NewTestStore(ctx context.Context, root string) (*TestStoreApp, error) {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	cfg := config.DefaultStoreConfig()
	cfg.Backend = config.BackendMemory
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.StorageRoot = root

	app, err := NewStore(ctx, cfg, Dependencies{
		Storage: memory.New(),
		Clock:   mockClock,
		Random:  mockRandom,
	}, zap.NewNop())
	if err != nil {
		return nil, err
	}
	return &TestStoreApp{StoreApp: app, MockClock: mockClock, MockRandom: mockRandom}, nil
}

// TestLobbyApp extends LobbyApp with test-specific helpers
type TestLobbyApp struct {
	*LobbyApp

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestLobby creates an orchestrator on an ephemeral loopback port that
// talks to the registry at storeAddr. Game servers run for real.
func NewTestLobby(ctx context.Context, storeAddr string) (*TestLobbyApp, error) {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	cfg := config.DefaultLobbyConfig()
	cfg.Backend = config.BackendMemory
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.StoreAddr = storeAddr
	cfg.GameHost = "127.0.0.1"
	cfg.ReadyDelay = TestReadyDelay
	cfg.RPCTimeout = 2 * time.Second

	app, err := NewLobby(ctx, cfg, Dependencies{
		Storage: memory.New(),
		Clock:   mockClock,
		Random:  mockRandom,
	}, zap.NewNop())
	if err != nil {
		return nil, err
	}
	return &TestLobbyApp{LobbyApp: app, MockClock: mockClock, MockRandom: mockRandom}, nil
}
