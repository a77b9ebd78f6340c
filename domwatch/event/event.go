// Package event defines the semantic events derived from raw page mutations.
// Events are values: they are never mutated after being published.
package event

import "github.com/hazyhaar/streamermode/domwatch/mutation"

// Topic is the name of an event channel on the bus.
type Topic string

const (
	TopicCurrentWord Topic = "currentWord"
	TopicWordList    Topic = "wordList"
	TopicChat        Topic = "chat"
	TopicPlayers     Topic = "players"
	TopicPlayersLeft Topic = "playersLeft"
	TopicDrawing     Topic = "drawing"
)

// Topics lists every topic the translator publishes on.
var Topics = []Topic{
	TopicCurrentWord,
	TopicWordList,
	TopicChat,
	TopicPlayers,
	TopicPlayersLeft,
	TopicDrawing,
}

// Event is implemented by every domain event.
type Event interface {
	Topic() Topic
}

// Player is the record derived from a player's row in the player list.
type Player struct {
	Name string           `json:"name"`
	IsUs bool             `json:"is_us"`
	Key  mutation.NodeKey `json:"key"`
}

// CurrentWord carries the word the local player has to draw. An empty Word
// means the word was hidden.
type CurrentWord struct {
	Word string `json:"word"`
}

// WordList carries the words offered for selection. Empty when the list
// was hidden.
type WordList struct {
	Words []string `json:"words"`
}

// ChatMessage is one well-formed chat line.
type ChatMessage struct {
	Sender  string           `json:"sender"`
	Message string           `json:"message"`
	Key     mutation.NodeKey `json:"key"`
}

// PlayersJoined groups the players added by one mutation record.
type PlayersJoined struct {
	Players []Player `json:"players"`
}

// PlayersLeft groups the players removed by one mutation record.
type PlayersLeft struct {
	Players []Player `json:"players"`
}

// DrawingChanged reports who is drawing. Player is nil when nobody is.
type DrawingChanged struct {
	Player *Player `json:"player"`
}

func (CurrentWord) Topic() Topic    { return TopicCurrentWord }
func (WordList) Topic() Topic       { return TopicWordList }
func (ChatMessage) Topic() Topic    { return TopicChat }
func (PlayersJoined) Topic() Topic  { return TopicPlayers }
func (PlayersLeft) Topic() Topic    { return TopicPlayersLeft }
func (DrawingChanged) Topic() Topic { return TopicDrawing }
