package database

import (
	"testing"
)

func TestNewConnectionInvalid(t *testing.T) {
	_, err := NewConnection("invalid", "invalid", "invalid", "invalid", "invalid")
	if err == nil {
		t.Error("Expected error for invalid connection parameters")
	}

	// Valid connections need a running database; covered by integration tests.
}
