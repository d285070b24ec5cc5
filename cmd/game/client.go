package game

import (
	"sort"
	"sync"

	"github.com/ValentinKolb/dMsg/lib/emitter"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/ValentinKolb/dMsg/rpc/client"
	"github.com/spf13/cast"
)

// View is the client side state of a game, kept up to date by the messages of the server
type View struct {
	mu      sync.RWMutex // guards self and players
	self    int
	players map[int]*Player

	joinOnce sync.Once
	joined   chan struct{}
}

// NewView creates an empty view
func NewView() *View {
	return &View{
		players: make(map[int]*Player),
		joined:  make(chan struct{}),
	}
}

// Application returns the client application of the game
func (v *View) Application(textFormat string, maxBytes int) (client.Application, error) {
	loader, err := Loader(textFormat, maxBytes)
	if err != nil {
		return client.Application{}, err
	}
	return client.Application{
		Names:    Names,
		Loader:   loader,
		Handlers: v.Handlers().Lookup,
	}, nil
}

// Handlers returns the handlers of the server messages
func (v *View) Handlers() emitter.HandlerMap {
	return emitter.HandlerMap{
		"GameInfo": func(e *emitter.Emitter) error {
			e.Once("GameInfo", v.gameInfo)
			return nil
		},
		"Joined": func(e *emitter.Emitter) error {
			e.On("Joined", v.playerJoined)
			return nil
		},
		"Leaved": func(e *emitter.Emitter) error {
			e.On("Leaved", v.playerLeft)
			return nil
		},
		"Moved": func(e *emitter.Emitter) error {
			e.On("Moved", v.playerMoved)
			return nil
		},
		"ChangedColor": func(e *emitter.Emitter) error {
			e.On("ChangedColor", v.colorChanged)
			return nil
		},
	}
}

// Joined is closed once the server accepted the join
func (v *View) Joined() <-chan struct{} {
	return v.joined
}

// Self returns the id the server assigned to this client, 0 before the join
func (v *View) Self() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.self
}

// Players returns a copy of all known players ordered by id
func (v *View) Players() []Player {
	v.mu.RLock()
	defer v.mu.RUnlock()

	players := make([]Player, 0, len(v.players))
	for _, p := range v.players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// Player returns a copy of the player with the given id
func (v *View) Player(id int) (Player, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (v *View) gameInfo(m *schema.Message) error {
	list, err := cast.ToSliceE(m.Fields()["players"])
	if err != nil {
		return err
	}

	players := make(map[int]*Player, len(list))
	for _, item := range list {
		p, err := parsePlayer(item)
		if err != nil {
			return err
		}
		players[p.ID] = p
	}

	v.mu.Lock()
	v.self = m.Int("id")
	for id, p := range players {
		v.players[id] = p
	}
	v.mu.Unlock()

	v.joinOnce.Do(func() { close(v.joined) })
	return nil
}

func (v *View) playerJoined(m *schema.Message) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.players[m.Int("id")] = &Player{
		ID:       m.Int("id"),
		Nickname: m.String("nickname"),
		Color:    m.Int("color"),
	}
	return nil
}

func (v *View) playerLeft(m *schema.Message) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.players, m.Int("id"))
	return nil
}

func (v *View) playerMoved(m *schema.Message) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.players[m.Int("playerId")]; ok {
		p.X = m.Float("x")
		p.Y = m.Float("y")
	}
	return nil
}

func (v *View) colorChanged(m *schema.Message) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.players[m.Int("id")]; ok {
		p.Color = m.Int("color")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// parsePlayer converts one decoded entry of the GameInfo player list
func parsePlayer(item any) (*Player, error) {
	fields, err := cast.ToStringMapE(item)
	if err != nil {
		return nil, err
	}
	position, err := cast.ToStringMapE(fields["position"])
	if err != nil {
		return nil, err
	}

	p := &Player{}
	if p.ID, err = cast.ToIntE(fields["id"]); err != nil {
		return nil, err
	}
	if p.Color, err = cast.ToIntE(fields["color"]); err != nil {
		return nil, err
	}
	if p.Nickname, err = cast.ToStringE(fields["nickname"]); err != nil {
		return nil, err
	}
	if p.X, err = cast.ToFloat64E(position["x"]); err != nil {
		return nil, err
	}
	if p.Y, err = cast.ToFloat64E(position["y"]); err != nil {
		return nil, err
	}
	return p, nil
}
