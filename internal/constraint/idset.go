package constraint

import "github.com/specialistvlad/etlgen/internal/taskid"

// idSet is an insertion-ordered set of task IDs.
type idSet struct {
	items []taskid.ID
	index map[taskid.ID]struct{}
}

func newIDSet(ids ...taskid.ID) *idSet {
	s := &idSet{index: make(map[taskid.ID]struct{}, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *idSet) add(id taskid.ID) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.items = append(s.items, id)
	return true
}

func (s *idSet) remove(id taskid.ID) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i, item := range s.items {
		if item == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

func (s *idSet) has(id taskid.ID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *idSet) list() []taskid.ID {
	out := make([]taskid.ID, len(s.items))
	copy(out, s.items)
	return out
}
