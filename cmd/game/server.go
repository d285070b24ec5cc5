package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ValentinKolb/dMsg/lib/buffer"
	"github.com/ValentinKolb/dMsg/lib/emitter"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/ValentinKolb/dMsg/rpc/server"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("game")

var errNotJoined = errors.New("player has not joined the game")

// Player is the server side state of one connection
type Player struct {
	ID       int
	Nickname string
	Color    int
	X, Y     float64

	emitter *emitter.Emitter
}

// Game holds the joined players and broadcasts their state changes
type Game struct {
	textFormat string
	maxBytes   int

	mu        sync.RWMutex // guards players and byEmitter
	players   map[int]*Player
	byEmitter map[*emitter.Emitter]*Player
}

// New creates an empty game. textFormat and maxBytes configure the self-describing
// messages (see Loader).
func New(textFormat string, maxBytes int) *Game {
	return &Game{
		textFormat: textFormat,
		maxBytes:   maxBytes,
		players:    make(map[int]*Player),
		byEmitter:  make(map[*emitter.Emitter]*Player),
	}
}

// Application returns the server application of the game
func (g *Game) Application() (server.Application, error) {
	loader, err := Loader(g.textFormat, g.maxBytes)
	if err != nil {
		return server.Application{}, err
	}
	return server.Application{
		Names:        Names,
		Loader:       loader,
		Handlers:     g.Handlers().Lookup,
		Disconnected: g.Leave,
	}, nil
}

// Handlers returns the handlers that are auto-registered on the emitter of every connection
func (g *Game) Handlers() emitter.HandlerMap {
	return emitter.HandlerMap{
		"Join": func(e *emitter.Emitter) error {
			e.Once("Join", func(m *schema.Message) error {
				return g.join(e, m)
			})
			return nil
		},
		"Move": func(e *emitter.Emitter) error {
			e.On("Move", func(m *schema.Message) error {
				return g.move(e, m)
			})
			return nil
		},
		"ChangeColor": func(e *emitter.Emitter) error {
			e.On("ChangeColor", func(m *schema.Message) error {
				return g.changeColor(e, m)
			})
			return nil
		},
	}
}

// Players returns a copy of all joined players ordered by id
func (g *Game) Players() []Player {
	g.mu.RLock()
	defer g.mu.RUnlock()

	players := make([]Player, 0, len(g.players))
	for _, p := range g.players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// Leave removes the player of e from the game and tells all other players
func (g *Game) Leave(e *emitter.Emitter) {
	g.mu.Lock()
	player, ok := g.byEmitter[e]
	if ok {
		delete(g.byEmitter, e)
		delete(g.players, player.ID)
	}
	g.mu.Unlock()

	if !ok {
		return
	}
	Logger.Infof("player %s (%d) left", player.Nickname, player.ID)

	if err := g.broadcast(e, LeavedID, schema.Fields{"id": player.ID}, nil); err != nil {
		Logger.Warningf("failed to broadcast leave of player %d: %v", player.ID, err)
	}
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (g *Game) join(e *emitter.Emitter, m *schema.Message) error {
	player := &Player{
		Nickname: m.String("nickname"),
		Color:    m.Int("color"),
		emitter:  e,
	}

	g.mu.Lock()
	id, err := g.nextID()
	if err != nil {
		g.mu.Unlock()
		return err
	}
	player.ID = id
	g.players[id] = player
	g.byEmitter[e] = player
	g.mu.Unlock()

	Logger.Infof("player %s (%d) joined", player.Nickname, player.ID)

	joined := schema.Fields{
		"id":       player.ID,
		"nickname": player.Nickname,
		"color":    player.Color,
	}
	if err := g.broadcast(e, JoinedID, joined, nil); err != nil {
		Logger.Warningf("failed to broadcast join of player %d: %v", player.ID, err)
	}

	info, err := g.typ(e, GameInfoID)
	if err != nil {
		return err
	}
	return e.Send(info, schema.Fields{
		"id":      player.ID,
		"players": g.snapshot(),
	})
}

func (g *Game) move(e *emitter.Emitter, m *schema.Message) error {
	g.mu.Lock()
	player, ok := g.byEmitter[e]
	if ok {
		player.X = m.Float("x")
		player.Y = m.Float("y")
	}
	g.mu.Unlock()

	if !ok {
		return errNotJoined
	}

	// only the latest position of a player is sent per flush
	config := buffer.Config{
		Scope:    buffer.ScopeInstance,
		ID:       player.ID,
		Strategy: buffer.Overwrite(),
	}
	return g.broadcast(e, MovedID, schema.Fields{
		"playerId": player.ID,
		"x":        m.Float("x"),
		"y":        m.Float("y"),
	}, &config)
}

func (g *Game) changeColor(e *emitter.Emitter, m *schema.Message) error {
	g.mu.Lock()
	player, ok := g.byEmitter[e]
	if ok {
		player.Color = m.Int("color")
	}
	g.mu.Unlock()

	if !ok {
		return errNotJoined
	}
	return g.broadcast(e, ChangedColorID, schema.Fields{
		"id":    player.ID,
		"color": m.Int("color"),
	}, nil)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// nextID returns the smallest free player id, g.mu must be held
func (g *Game) nextID() (int, error) {
	for id := 1; id <= MaxPlayers; id++ {
		if _, taken := g.players[id]; !taken {
			return id, nil
		}
	}
	return 0, fmt.Errorf("game is full (%d players)", MaxPlayers)
}

// snapshot returns the players in the shape of the GameInfo message
func (g *Game) snapshot() []any {
	players := g.Players()
	out := make([]any, 0, len(players))
	for _, p := range players {
		out = append(out, map[string]any{
			"id":       p.ID,
			"nickname": p.Nickname,
			"color":    p.Color,
			"position": map[string]any{"x": p.X, "y": p.Y},
		})
	}
	return out
}

// typ resolves a message type through the registry of e
func (g *Game) typ(e *emitter.Emitter, id schema.ID) (*schema.Type, error) {
	return e.Registry().Resolve(id)
}

// broadcast sends a message to every joined player except the player of skip. If config is
// not nil the message is buffered in the instance scope of each receiver.
func (g *Game) broadcast(skip *emitter.Emitter, id schema.ID, fields schema.Fields, config *buffer.Config) error {
	t, err := g.typ(skip, id)
	if err != nil {
		return err
	}

	g.mu.RLock()
	receivers := make([]*emitter.Emitter, 0, len(g.players))
	for _, p := range g.players {
		if p.emitter != skip {
			receivers = append(receivers, p.emitter)
		}
	}
	g.mu.RUnlock()

	var errs []error
	for _, receiver := range receivers {
		if config != nil {
			err = receiver.SendBuffered(t, fields, *config)
		} else {
			err = receiver.Send(t, fields)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
