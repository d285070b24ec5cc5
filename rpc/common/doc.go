// Package common provides the configuration structures and logging utilities shared
// by the dMsg server, client and CLI.
//
// Key Components:
//
//   - TransportConfig: Transport type, endpoint and timeouts plus the embedded SocketConf
//     (frame size limit, send queue, socket buffers) and TCPConf (no delay, keep alive,
//     linger) settings.
//
//   - ServerConfig: Configuration of the game server including the message layer settings
//     (flush interval of the default buffer scheduler, json capacity) and the metrics
//     endpoint.
//
//   - ClientConfig: Configuration of a game client.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's logger package.
//     All packages obtain their logger with logger.GetLogger(name), InitLoggers installs
//     the factory and sets the level of every logger listed in LoggerNames. Log lines are
//     formatted as
//
//     2025/04/01 12:00:00 INFO  | server          | listening on 0.0.0.0:8001
//
// Both config structs provide a String method that renders the configuration as sectioned
// table for the startup log.
package common
