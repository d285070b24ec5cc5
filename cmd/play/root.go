package play

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ValentinKolb/dMsg/cmd/game"
	"github.com/ValentinKolb/dMsg/cmd/util"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/ValentinKolb/dMsg/rpc/client"
	"github.com/ValentinKolb/dMsg/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	playCmdConfig  = &common.ClientConfig{}
	playTextFormat = "json"
	playNickname   = "bot"
	playColor      = 0
	playMoves      = 100
	playInterval   = 50 * time.Millisecond
	PlayCmd        = &cobra.Command{
		Use:     "play",
		Short:   "Join the game with a bot",
		Long:    `Connect a bot to a game server. The bot joins the game, walks around randomly and prints a summary of the traffic when it is done. The configuration can be set via command line flags or environment variables (DMSG_<flag>).`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add flags
	util.SetupTransportFlags(PlayCmd, "localhost:8001")

	key := "retries"
	PlayCmd.PersistentFlags().Int(key, 3, util.WrapString("How many times to try to connect"))

	key = "nickname"
	PlayCmd.PersistentFlags().String(key, "bot", util.WrapString("Nickname of the bot"))

	key = "color"
	PlayCmd.PersistentFlags().Int(key, 0, util.WrapString("Color of the bot (0-255)"))

	key = "moves"
	PlayCmd.PersistentFlags().Int(key, 100, util.WrapString("Number of moves before the bot leaves (0 = until interrupted)"))

	key = "interval"
	PlayCmd.PersistentFlags().Int(key, 50, util.WrapString("Milliseconds between two moves"))
}

// processConfig reads the configuration from the command line flags and environment variables
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	playCmdConfig.Transport = util.GetTransportConfig()
	playCmdConfig.FlushInterval = time.Duration(viper.GetInt("flush-interval")) * time.Millisecond
	playCmdConfig.MaxJSONBytes = viper.GetInt("max-json-bytes")
	playCmdConfig.LogLevel = viper.GetString("log-level")

	playTextFormat = viper.GetString("text-format")
	playNickname = viper.GetString("nickname")
	playColor = viper.GetInt("color")
	playMoves = viper.GetInt("moves")
	playInterval = time.Duration(viper.GetInt("interval")) * time.Millisecond

	if playColor < 0 || playColor > 255 {
		return fmt.Errorf("invalid color %d (expected 0-255)", playColor)
	}
	if playInterval <= 0 {
		return fmt.Errorf("invalid interval %s", playInterval)
	}

	return common.InitLoggers(playCmdConfig.LogLevel)
}

// run connects the bot and plays until all moves are done, the server closes the
// connection or the process receives SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	view := game.NewView()
	app, err := view.Application(playTextFormat, playCmdConfig.MaxJSONBytes)
	if err != nil {
		return err
	}

	c, err := client.Dial(*playCmdConfig, t, app)
	if err != nil {
		return err
	}
	defer c.Close()

	// traffic statistics
	sendTimer := gometrics.NewTimer()
	received := gometrics.NewMeter()
	defer received.Stop()
	c.Emitter().On("Moved", func(*schema.Message) error {
		received.Mark(1)
		return nil
	})

	// join the game
	joinStart := time.Now()
	if err := c.Send("Join", schema.Fields{"nickname": playNickname, "color": playColor}); err != nil {
		return err
	}
	select {
	case <-view.Joined():
	case <-c.Done():
		return fmt.Errorf("connection closed before the game info was received")
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for the game info")
	}
	fmt.Printf("joined as %s (id %d) after %s, %d player(s) in the game\n",
		playNickname, view.Self(), time.Since(joinStart).Round(time.Microsecond), len(view.Players()))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	ticker := time.NewTicker(playInterval)
	defer ticker.Stop()

	x, y := 0.0, 0.0
loop:
	for moves := 0; playMoves == 0 || moves < playMoves; moves++ {
		select {
		case <-signals:
			break loop
		case <-c.Done():
			fmt.Println("connection closed by server")
			break loop
		case <-ticker.C:
		}

		// random walk
		x += rand.Float64()*2 - 1
		y += rand.Float64()*2 - 1

		var sendErr error
		sendTimer.Time(func() {
			sendErr = c.Send("Move", schema.Fields{"x": x, "y": y})
		})
		if sendErr != nil {
			return sendErr
		}
	}

	printSummary(view, sendTimer, received)
	return nil
}

// printSummary prints the traffic statistics of the bot
func printSummary(view *game.View, sendTimer gometrics.Timer, received gometrics.Meter) {
	fmt.Println()
	fmt.Printf("%-20s\t%d\n", "moves sent", sendTimer.Count())
	fmt.Printf("%-20s\t%.2f µs/op (p99 %.2f µs/op)\n", "send latency",
		sendTimer.Mean()/1e3, sendTimer.Percentile(0.99)/1e3)
	fmt.Printf("%-20s\t%d (%.2f msg/sec)\n", "moves received", received.Count(), received.RateMean())

	fmt.Println()
	for _, p := range view.Players() {
		marker := ""
		if p.ID == view.Self() {
			marker = " (self)"
		}
		fmt.Printf("player %3d %-16s color %3d at (%.2f, %.2f)%s\n", p.ID, p.Nickname, p.Color, p.X, p.Y, marker)
	}
}
