package engine

// Action is the verdict code sent to clients; Bust marks a hand already over 21.
type Action string

const (
	Hit       Action = "HIT"
	Stand     Action = "STAND"
	Double    Action = "DOUBLE"
	Split     Action = "SPLIT"
	Surrender Action = "SURRENDER"
	Bust      Action = "BUSTED"
)

// Advice is the verdict handed back to whoever asked. Every advisor
// (table or model) fills the same shape.
type Advice struct {
	Action         Action `json:"action"`
	Confidence     int    `json:"confidence"`               // 0..100
	WinProbability *int   `json:"winProbability,omitempty"` // 0..100
	Explanation    string `json:"explanation"`
}

// HandValue is recomputed on every evaluation.
type HandValue struct {
	Total  int  `json:"total"`
	IsSoft bool `json:"isSoft"`
	IsPair bool `json:"isPair"`
}

// Rule is a raw table hit: an action code plus the chart line it came from.
type Rule struct {
	Code Action
	Text string
}
