// Package cmd implements the command-line interface of dMsg. It runs the demo game
// server and a bot client that plays against it.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the game server (dmsg serve)
//   - play: Connects a bot that joins the game and moves around (dmsg play)
//   - game: The demo game protocol, server logic and client view
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables DMSG_<FLAG> (e.g. DMSG_LOG_LEVEL=debug)
// or in .env and .env.local files.
//
// See dmsg -help for a list of all commands.
package cmd
