// Package mutation defines the structured records delivered by the page bridge.
// These are the contract between a ChangeSource (the injected MutationObserver
// bridge, memdom, a replay file) and the translator: the translator only reads
// them.
package mutation

// Kind is the type of DOM mutation observed, mirroring MutationRecord.type.
type Kind string

const (
	KindChildList     Kind = "childList"
	KindAttributes    Kind = "attributes"
	KindCharacterData Kind = "characterData"
)

// Concern names the independent observation area a batch belongs to.
// The bridge attaches one MutationObserver per concern.
type Concern string

const (
	ConcernCurrentWord Concern = "currentWord"
	ConcernWordList    Concern = "wordList"
	ConcernChat        Concern = "chat"
	ConcernPlayers     Concern = "players"
	ConcernDrawing     Concern = "drawing"
)

// Concerns lists every concern in a stable order.
var Concerns = []Concern{
	ConcernCurrentWord,
	ConcernWordList,
	ConcernChat,
	ConcernPlayers,
	ConcernDrawing,
}

// NodeKey identifies a node of the observed page for its whole lifetime,
// including after it was removed from the tree. Zero means unknown.
type NodeKey uint64

// Node types, as in Node.nodeType.
const (
	ElementNode = 1
	TextNode    = 3
)

// Node is a serialised view of one page node at the time the record was taken.
type Node struct {
	Key  NodeKey `json:"key"`
	Type int     `json:"type"`
	Tag  string  `json:"tag,omitempty"`
	HTML string  `json:"html"` // outerHTML for elements, data for text nodes
}

// Record is a single MutationRecord.
type Record struct {
	Kind      Kind      `json:"kind"`
	Target    Node      `json:"target"`
	Ancestors []NodeKey `json:"ancestors,omitempty"` // target first, then parents upward
	Attribute string    `json:"attribute,omitempty"`
	OldValue  string    `json:"old_value,omitempty"`
	Added     []Node    `json:"added,omitempty"`
	Removed   []Node    `json:"removed,omitempty"`
}

// Batch is one delivery of a concern's MutationObserver callback.
type Batch struct {
	ID        string   `json:"id"` // UUIDv7
	PageID    string   `json:"page_id"`
	Concern   Concern  `json:"concern"`
	Seq       uint64   `json:"seq"` // monotonically increasing per page (gap detection)
	Records   []Record `json:"records"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds at delivery
}
