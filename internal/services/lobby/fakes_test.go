package lobby

import (
	"context"
	"errors"
	"sync"

	"github.com/mcoot/gamehub/internal/api/response"
	"github.com/mcoot/gamehub/internal/model"
	"github.com/mcoot/gamehub/internal/services/supervisor"
	"github.com/mcoot/gamehub/internal/storage"
)

var errDiskFull = errors.New("disk full")

// failingStore wraps a store and fails every Save while failSaves is set
type failingStore struct {
	storage.DocumentStore
	mu        sync.Mutex
	failSaves bool
}

func (f *failingStore) setFailing(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSaves = fail
}

func (f *failingStore) Save(ctx context.Context, name string, v any) error {
	f.mu.Lock()
	fail := f.failSaves
	f.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return f.DocumentStore.Save(ctx, name, v)
}

type fakeRegistry struct {
	mu      sync.Mutex
	games   map[string]response.GameDetail
	launch  map[string]model.LaunchInfo // keyed by game id
	err     error
	lookups []string // "game@version" of each LaunchInfo call
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		games:  make(map[string]response.GameDetail),
		launch: make(map[string]model.LaunchInfo),
	}
}

func (r *fakeRegistry) addGame(gameID, version string, minPlayers, maxPlayers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[gameID] = response.GameDetail{GameSummary: response.GameSummary{
		ID:            gameID,
		MaxPlayers:    maxPlayers,
		LatestVersion: version,
	}}
	r.launch[gameID] = model.LaunchInfo{
		GameID:      gameID,
		Version:     version,
		Path:        "/bundles/" + gameID + "/" + version,
		ServerEntry: "server.py",
		MinPlayers:  minPlayers,
		MaxPlayers:  maxPlayers,
	}
}

func (r *fakeRegistry) GameDetail(_ context.Context, gameID string) (response.GameDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return response.GameDetail{}, r.err
	}
	g, ok := r.games[gameID]
	if !ok {
		return response.GameDetail{}, &model.RemoteError{Code: "NO_SUCH_GAME"}
	}
	return g, nil
}

func (r *fakeRegistry) LaunchInfo(_ context.Context, gameID, version string) (model.LaunchInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, gameID+"@"+version)
	if r.err != nil {
		return model.LaunchInfo{}, r.err
	}
	info, ok := r.launch[gameID]
	if !ok {
		return model.LaunchInfo{}, &model.RemoteError{Code: "NO_SUCH_GAME"}
	}
	if version != "" && version != info.Version {
		return model.LaunchInfo{}, &model.RemoteError{Code: "NO_SUCH_VERSION"}
	}
	return info, nil
}

type fakeSpawner struct {
	mu      sync.Mutex
	nextPID int
	alive   map[int]bool
	killed  []int
	specs   []supervisor.LaunchSpec
	err     error
	// gate, when set, blocks Start until it is closed
	gate    chan struct{}
	entered chan struct{}
	exits   chan supervisor.Exit
	// started, when set, runs with the new pid before Start returns
	started func(spec supervisor.LaunchSpec, pid int)
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{
		nextPID: 1000,
		alive:   make(map[int]bool),
		entered: make(chan struct{}, 8),
		exits:   make(chan supervisor.Exit, 8),
	}
}

func (s *fakeSpawner) Start(_ context.Context, spec supervisor.LaunchSpec) (int, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	s.entered <- struct{}{}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	s.specs = append(s.specs, spec)
	if s.err != nil {
		s.mu.Unlock()
		return 0, s.err
	}
	s.nextPID++
	pid := s.nextPID
	s.alive[pid] = true
	started := s.started
	s.mu.Unlock()

	if started != nil {
		started(spec, pid)
	}
	return pid, nil
}

func (s *fakeSpawner) IsAlive(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive[pid]
}

func (s *fakeSpawner) Kill(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = append(s.killed, pid)
	delete(s.alive, pid)
	return nil
}

func (s *fakeSpawner) Exits() <-chan supervisor.Exit {
	return s.exits
}

// exit marks pid dead and reports it the way the supervisor does
func (s *fakeSpawner) exit(roomID string, pid, code int) {
	s.mu.Lock()
	delete(s.alive, pid)
	s.mu.Unlock()
	s.exits <- supervisor.Exit{RoomID: roomID, PID: pid, ExitCode: code}
}

func (s *fakeSpawner) die(pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alive, pid)
}

func (s *fakeSpawner) lastSpec() supervisor.LaunchSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specs[len(s.specs)-1]
}

func supervisorExit(roomID string, pid int) supervisor.Exit {
	return supervisor.Exit{RoomID: roomID, PID: pid}
}
