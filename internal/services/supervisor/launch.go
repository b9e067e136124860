package supervisor

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mcoot/gamehub/internal/model"
)

// RuntimeExec runs the server entry directly instead of through an interpreter
const RuntimeExec = "exec"

// LaunchSpec is everything needed to start one game server process
type LaunchSpec struct {
	RoomID  string
	Command string
	Args    []string
	Dir     string
	Env     []string
}

// LaunchParams are the per-room values passed to a game server
type LaunchParams struct {
	RoomID  string
	Host    string
	Port    int
	Players []string
	// DefaultRuntime is used when the manifest names no runtime
	DefaultRuntime string
}

// NewLaunchSpec builds the command line for a game server:
//
//	<runtime> <server_entry> --host H --port P --room R --players a,b
//
// run with the bundle directory as working directory.
func NewLaunchSpec(info model.LaunchInfo, p LaunchParams) LaunchSpec {
	flags := []string{
		"--host", p.Host,
		"--port", strconv.Itoa(p.Port),
		"--room", p.RoomID,
		"--players", strings.Join(p.Players, ","),
	}

	runtime := info.Runtime
	if runtime == "" {
		runtime = p.DefaultRuntime
	}

	spec := LaunchSpec{
		RoomID: p.RoomID,
		Dir:    info.Path,
	}
	if runtime == "" || runtime == RuntimeExec {
		spec.Command = filepath.Join(info.Path, info.ServerEntry)
		spec.Args = flags
	} else {
		spec.Command = runtime
		spec.Args = append([]string{info.ServerEntry}, flags...)
	}
	return spec
}
