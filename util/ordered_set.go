package util

type (
	// OrderedSet a string set that remembers first-insertion order;
	// Values returns members in the order they were first added
	OrderedSet struct {
		members map[string]struct{}
		order   []string
	}
)

func NewOrderedSet(vs ...string) *OrderedSet {
	s := &OrderedSet{
		members: make(map[string]struct{}, len(vs)),
	}
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

// Add insert v if absent, report whether the set changed
func (s *OrderedSet) Add(v string) bool {
	if _, ok := s.members[v]; ok {
		return false
	}
	s.members[v] = struct{}{}
	s.order = append(s.order, v)
	return true
}

func (s *OrderedSet) Contain(v string) bool {
	_, ok := s.members[v]
	return ok
}

func (s *OrderedSet) Len() int {
	return len(s.order)
}

// Values insertion-ordered members; caller must not modify the result
func (s *OrderedSet) Values() []string {
	return s.order
}
