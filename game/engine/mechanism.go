package engine

// Switch is a two-state lever. It starts off and flips on every ordinary arrival.
type Switch struct {
	Pos Position `json:"pos"`
	On  bool     `json:"on"`
}

// Toggle flips the switch
func (s *Switch) Toggle() {
	s.On = !s.On
}

// IsOpen reports whether gates bound to this switch are open
func (s *Switch) IsOpen() bool {
	return s.On
}

// Gate blocks movement out of its cell in Orientation while its switch is off.
type Gate struct {
	Pos         Position  `json:"pos"`
	Orientation Direction `json:"orientation"`
	SwitchID    int       `json:"switch_id"`
}

// BlockedDirection returns the blocked direction, or false when sw is open.
// A gate without a switch stays closed.
func (g Gate) BlockedDirection(sw *Switch) (Direction, bool) {
	if sw != nil && sw.IsOpen() {
		return "", false
	}
	return g.Orientation, true
}

// Teleport is an unordered pair of linked cells.
type Teleport struct {
	A Position `json:"a"`
	B Position `json:"b"`
}

// OtherEnd returns the partner of p, or false when p is not an endpoint
func (t Teleport) OtherEnd(p Position) (Position, bool) {
	switch p {
	case t.A:
		return t.B, true
	case t.B:
		return t.A, true
	}
	return Position{}, false
}
