package world

// TickLogEntry is one committed tick as written to the tick log. Replaying
// Keys from the same start must reproduce Digest.
type TickLogEntry struct {
	Tick      uint64   `json:"tick"`
	Map       string   `json:"map"`
	Keys      []string `json:"keys"`
	Switching bool     `json:"switching,omitempty"`
	Won       bool     `json:"won,omitempty"`
	Lost      bool     `json:"lost,omitempty"`
	Digest    string   `json:"digest"`
}

func (s *Snapshot) LogEntry() TickLogEntry {
	return TickLogEntry{
		Tick:      s.tick,
		Map:       s.mapID,
		Keys:      s.raw.Names(),
		Switching: s.mapSwitch != nil,
		Won:       s.won,
		Lost:      s.lost,
		Digest:    s.stateHash,
	}
}
