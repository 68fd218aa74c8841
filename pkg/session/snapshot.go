package session

import (
	"encoding/json"

	pherrors "github.com/packhouse/packhouse/pkg/errors"
)

// Snapshot returns the state's serialized form, used both as the store
// value and as the API response body. FromSnapshot inverts it exactly:
// round-tripping preserves the hash and every pack and page field.
func (s *State) Snapshot() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeInternal, err, "encode session")
	}
	return data, nil
}

// FromSnapshot restores a state from its serialized form. The stored
// hash is verified against a recomputation; a mismatch means the
// snapshot was corrupted or hand-edited.
func FromSnapshot(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, pherrors.Wrap(pherrors.ErrCodeInvalidInput, err, "decode session")
	}
	if s.Packs == nil {
		s.Packs = make(map[string]*PackState)
	}
	for _, p := range s.Packs {
		if p.Pages == nil {
			p.Pages = make(map[string]*PageState)
		}
	}
	if recomputed := s.computeHash(); s.Hash != recomputed {
		return nil, pherrors.New(pherrors.ErrCodeInvalidInput,
			"session snapshot hash mismatch: stored %s, computed %s", s.Hash, recomputed)
	}
	return &s, nil
}

// Clone deep-copies a state via its snapshot encoding.
func (s *State) Clone() (*State, error) {
	data, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return FromSnapshot(data)
}
