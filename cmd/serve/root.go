package serve

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ValentinKolb/dMsg/cmd/game"
	"github.com/ValentinKolb/dMsg/cmd/util"
	"github.com/ValentinKolb/dMsg/rpc/common"
	"github.com/ValentinKolb/dMsg/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig  = &common.ServerConfig{}
	serveTextFormat = "json"
	ServeCmd        = &cobra.Command{
		Use:     "serve",
		Short:   "Start the game server",
		Long:    `Start the game server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DMSG_<flag> (e.g. DMSG_FLUSH_INTERVAL=50)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	util.SetupTransportFlags(ServeCmd, "0.0.0.0:8001")

	key := "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", util.WrapString("Address on which the prometheus metrics are served (e.g. :9100, empty = disabled)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	serveCmdConfig.Transport = util.GetTransportConfig()
	serveCmdConfig.FlushInterval = time.Duration(viper.GetInt("flush-interval")) * time.Millisecond
	serveCmdConfig.MaxJSONBytes = viper.GetInt("max-json-bytes")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveTextFormat = viper.GetString("text-format")

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the game server and blocks until it is stopped by a signal
func run(_ *cobra.Command, _ []string) error {
	t, err := util.GetServerTransport()
	if err != nil {
		return err
	}

	app, err := game.New(serveTextFormat, serveCmdConfig.MaxJSONBytes).Application()
	if err != nil {
		return err
	}

	serv, err := server.NewServer(*serveCmdConfig, t, app)
	if err != nil {
		return err
	}

	// close the server on SIGINT and SIGTERM
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		_ = serv.Close()
	}()

	return serv.Serve()
}
