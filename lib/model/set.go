package model

import (
	"sort"
	"strings"
)

// Set is a collection of unique strings. List and ToString return elements
// in sorted order so outputs derived from sets are deterministic.
type Set struct {
	elements map[string]struct{}
}

// NewSet creates a new set
func NewSet(values ...string) *Set {
	s := &Set{elements: make(map[string]struct{})}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts an element into the set
func (s *Set) Add(value string) {
	s.elements[value] = struct{}{}
}

// Remove deletes an element from the set
func (s *Set) Remove(value string) {
	delete(s.elements, value)
}

// Contains checks if an element is in the set
func (s *Set) Contains(value string) bool {
	_, found := s.elements[value]
	return found
}

// Size returns the number of elements in the set
func (s *Set) Size() int {
	return len(s.elements)
}

// List returns all elements in sorted order
func (s *Set) List() []string {
	keys := make([]string, 0, len(s.elements))
	for key := range s.elements {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Union returns a new set containing the elements of both sets
func (s *Set) Union(other *Set) *Set {
	result := NewSet()
	for key := range s.elements {
		result.Add(key)
	}
	for key := range other.elements {
		result.Add(key)
	}
	return result
}

// Difference returns the elements of s not present in other
func (s *Set) Difference(other *Set) *Set {
	result := NewSet()
	for key := range s.elements {
		if !other.Contains(key) {
			result.Add(key)
		}
	}
	return result
}

func (s *Set) ToString() string {
	return strings.Join(s.List(), ",")
}
