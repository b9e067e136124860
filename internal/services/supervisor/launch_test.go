package supervisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/gamehub/internal/model"
)

func TestNewLaunchSpec(t *testing.T) {
	info := model.LaunchInfo{Path: "/games/g1/v1", ServerEntry: "server.py"}
	params := LaunchParams{
		RoomID:         "r1",
		Host:           "0.0.0.0",
		Port:           19100,
		Players:        []string{"alice", "bob"},
		DefaultRuntime: "python3",
	}

	spec := NewLaunchSpec(info, params)
	assert.Equal(t, LaunchSpec{
		RoomID:  "r1",
		Command: "python3",
		Args:    []string{"server.py", "--host", "0.0.0.0", "--port", "19100", "--room", "r1", "--players", "alice,bob"},
		Dir:     "/games/g1/v1",
	}, spec)
}

func TestNewLaunchSpecManifestRuntimeWins(t *testing.T) {
	info := model.LaunchInfo{Path: "/g", ServerEntry: "server.sh", Runtime: "/bin/sh"}
	spec := NewLaunchSpec(info, LaunchParams{RoomID: "r", DefaultRuntime: "python3"})
	assert.Equal(t, "/bin/sh", spec.Command)
	assert.Equal(t, "server.sh", spec.Args[0])
}

func TestNewLaunchSpecExecRunsEntryDirectly(t *testing.T) {
	info := model.LaunchInfo{Path: "/g", ServerEntry: "bin/server", Runtime: RuntimeExec}
	spec := NewLaunchSpec(info, LaunchParams{RoomID: "r", Port: 1})
	assert.Equal(t, "/g/bin/server", spec.Command)
	assert.Equal(t, "--host", spec.Args[0])
}
