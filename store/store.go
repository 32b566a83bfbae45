// Package store defines the document store interface and its backings.
//
// A store holds exactly one JSON document. Every Load reads the backing from
// scratch and every Save overwrites it completely; nothing is cached between
// calls and there is no lock spanning a Load and the following Save, so two
// writers sharing one backing race and the last Save wins.
package store

import "errors"

// ErrDecode is returned when persisted content is not a valid document.
var ErrDecode = errors.New("decode document")

// Store is the interface that all document backings must implement.
type Store interface {
	// Load returns the persisted document. A missing or empty backing
	// yields the empty-sequence document, never an error.
	Load() (Document, error)

	// Save overwrites the backing with the full document.
	Save(doc Document) error
}
