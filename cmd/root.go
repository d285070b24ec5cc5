package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dMsg/cmd/play"
	"github.com/ValentinKolb/dMsg/cmd/serve"
	"github.com/ValentinKolb/dMsg/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dmsg",
		Short: "typed binary and json messages over persistent sockets",
		Long: fmt.Sprintf(`dMsg (v%s)

A message schema and wire codec framework written in Go. Messages are
declared once, encoded as fixed-width binary, json or msgpack, pooled,
coalesced and dispatched to handlers. The CLI runs the demo game server
and a bot client.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dMsg",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dMsg v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(play.PlayCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "text-format"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("format of messages with strings or nested values (json, msgpack)"))
	key = "max-json-bytes"
	RootCmd.PersistentFlags().Int(key, 4096, util.WrapString("maximum size of an encoded json or msgpack message in bytes"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
