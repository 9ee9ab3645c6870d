package detect

// PageAssociationState tracks which candidate lines have been claimed and
// which physical positions already produced an entry on one page. Each pass
// takes the state it starts from and returns the state it leaves behind.
type PageAssociationState struct {
	claimed map[int]struct{}
	seen    map[positionKey]struct{}
}

// NewPageAssociationState returns an empty state
func NewPageAssociationState() PageAssociationState {
	return PageAssociationState{
		claimed: make(map[int]struct{}),
		seen:    make(map[positionKey]struct{}),
	}
}

// Clone returns an independent copy
func (s PageAssociationState) Clone() PageAssociationState {
	c := NewPageAssociationState()
	for k := range s.claimed {
		c.claimed[k] = struct{}{}
	}
	for k := range s.seen {
		c.seen[k] = struct{}{}
	}
	return c
}

// IsClaimed reports whether line i already belongs to an entry
func (s PageAssociationState) IsClaimed(i int) bool {
	_, ok := s.claimed[i]
	return ok
}

// Claim records line i as taken
func (s PageAssociationState) Claim(i int) {
	s.claimed[i] = struct{}{}
}

// ClaimedCount returns the number of claimed lines
func (s PageAssociationState) ClaimedCount() int {
	return len(s.claimed)
}

func (s PageAssociationState) hasSeen(k positionKey) bool {
	_, ok := s.seen[k]
	return ok
}

func (s PageAssociationState) markSeen(k positionKey) {
	s.seen[k] = struct{}{}
}
