package models

import "github.com/google/uuid"

// assignID fills in a primary key before insert so rows get the same ids on
// Postgres and on the sqlite databases used by tests.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
