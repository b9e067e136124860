package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/gamehub/internal/archive"
)

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that a server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := Dial(cfg.Addr, cfg.Timeout)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			resp, err := c.Call(map[string]string{"op": "ping"})
			if err != nil {
				return err
			}
			if failed(resp) {
				return responseError(resp)
			}
			msg, _ := c.Hello["msg"].(string)
			NewOutput(cfg.Output, cmd.OutOrStdout()).PrintMessage(fmt.Sprintf("%s is up: %s", cfg.Addr, msg))
			return nil
		},
	}
}

func newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call REQUEST...",
		Short: "Send raw JSON requests over one connection",
		Long: `call sends each argument, a JSON object with an op field, over a single
connection and prints every response. Login state lasts for the connection,
so a login request can precede the requests that need it.`,
		Example: `  gamehub call '{"op":"list_games"}'
  gamehub call '{"op":"dev_login","user":"d1","password":"pw"}' '{"op":"dev_list"}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := Dial(cfg.Addr, cfg.Timeout)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			var last map[string]any
			for _, body := range args {
				last, err = c.CallRaw(body)
				if err != nil {
					return err
				}
				out.Print(last)
			}
			if failed(last) {
				return responseError(last)
			}
			return nil
		},
	}
}

type uploadFlags struct {
	user        string
	password    string
	gameID      string
	name        string
	version     string
	description string
	gameType    string
	maxPlayers  int
}

func newUploadCmd() *cobra.Command {
	var f uploadFlags
	cmd := &cobra.Command{
		Use:   "upload DIR|ZIP",
		Short: "Log in as a developer and publish a game bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := readBundle(args[0])
			if err != nil {
				return err
			}

			c, err := Dial(cfg.Addr, cfg.Timeout)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			resp, err := c.Call(map[string]string{"op": "dev_login", "user": f.user, "password": f.password})
			if err != nil {
				return err
			}
			if failed(resp) {
				return responseError(resp)
			}

			req := map[string]any{
				"op":          "dev_upload",
				"game_id":     f.gameID,
				"name":        f.name,
				"version":     f.version,
				"description": f.description,
				"game_type":   f.gameType,
				"archive_b64": base64.StdEncoding.EncodeToString(blob),
			}
			if f.maxPlayers > 0 {
				req["max_players"] = f.maxPlayers
			}
			resp, err = c.Call(req)
			if err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(resp)
			if failed(resp) {
				return responseError(resp)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.user, "user", "u", "", "Developer account")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "Developer password")
	cmd.Flags().StringVar(&f.gameID, "game-id", "", "Game id (derived from the name when empty)")
	cmd.Flags().StringVar(&f.name, "name", "", "Display name")
	cmd.Flags().StringVar(&f.version, "version", "", "Version label (timestamp when empty)")
	cmd.Flags().StringVar(&f.description, "description", "", "Description")
	cmd.Flags().StringVar(&f.gameType, "type", "", "Game type")
	cmd.Flags().IntVar(&f.maxPlayers, "max-players", 0, "Maximum players")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// readBundle zips a bundle directory, or reads an already zipped bundle
func readBundle(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return archive.Pack(path)
	}
	return os.ReadFile(path)
}
