package game

import (
	"fmt"

	"github.com/ValentinKolb/dMsg/lib/codec"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

// Type ids of the game protocol
const (
	JoinID schema.ID = iota
	GameInfoID
	JoinedID
	LeavedID
	ChangeColorID
	ChangedColorID
	MoveID
	MovedID
)

// MaxPlayers is limited by the uint8 player ids of the binary messages
const MaxPlayers = 255

// Names maps the type ids of the game protocol to the type names
var Names = map[schema.ID]string{
	JoinID:         "Join",
	GameInfoID:     "GameInfo",
	JoinedID:       "Joined",
	LeavedID:       "Leaved",
	ChangeColorID:  "ChangeColor",
	ChangedColorID: "ChangedColor",
	MoveID:         "Move",
	MovedID:        "Moved",
}

// Loader returns the definitions of the game protocol. Messages with strings or nested
// values use textFormat ("json" or "msgpack") limited to maxBytes, all other messages use
// the binary format.
func Loader(textFormat string, maxBytes int) (schema.MapLoader, error) {
	text, err := codec.ByName(textFormat, maxBytes)
	if err != nil {
		return nil, err
	}
	if text.Name() == "binary" {
		return nil, fmt.Errorf("format %s can not encode strings", textFormat)
	}
	binary := codec.NewBinaryFormat()

	return schema.MapLoader{
		"Join": define(schema.Define(JoinID, "Join", text,
			schema.Attr("nickname", schema.String),
			schema.Attr("color", schema.Uint8))),

		"GameInfo": define(schema.Define(GameInfoID, "GameInfo", text,
			schema.Attr("id", schema.Uint8),
			schema.Attr("players", schema.Any))),

		"Joined": extend(JoinID, schema.Define(JoinedID, "Joined", text,
			schema.Attr("id", schema.Uint8))),

		"Leaved": define(schema.Define(LeavedID, "Leaved", binary,
			schema.Attr("id", schema.Uint8))),

		"ChangeColor": define(schema.Define(ChangeColorID, "ChangeColor", binary,
			schema.Attr("color", schema.Uint8))),

		"ChangedColor": extend(ChangeColorID, schema.Define(ChangedColorID, "ChangedColor", binary,
			schema.Attr("id", schema.Uint8))),

		"Move": define(schema.Define(MoveID, "Move", binary,
			schema.Attr("x", schema.Float32),
			schema.Attr("y", schema.Float32))),

		"Moved": extend(MoveID, schema.Define(MovedID, "Moved", binary,
			schema.Attr("playerId", schema.Uint8))),
	}, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func define(def schema.Definition) func(*schema.Registry) (*schema.Definition, error) {
	return func(*schema.Registry) (*schema.Definition, error) {
		return &def, nil
	}
}

// extend resolves the parent before the definition is returned
func extend(parent schema.ID, def schema.Definition) func(*schema.Registry) (*schema.Definition, error) {
	return func(r *schema.Registry) (*schema.Definition, error) {
		p, err := r.Resolve(parent)
		if err != nil {
			return nil, err
		}
		child := def.Extends(p)
		return &child, nil
	}
}
