package config

import (
	"fmt"
)

type StoreKeyStruct struct{}

func NewStoreKeyStruct() *StoreKeyStruct {
	return &StoreKeyStruct{}
}

// TestKey returns the store key of a test record
func (r *StoreKeyStruct) TestKey(testID string) string {
	return fmt.Sprintf("test_%s", testID)
}

// TestsListKey returns the store key of the test index
func (r *StoreKeyStruct) TestsListKey() string {
	return "tests_list"
}

// AttemptKey returns the store key of an attempt record
func (r *StoreKeyStruct) AttemptKey(attemptID string) string {
	return fmt.Sprintf("attempt_%s", attemptID)
}

// AttemptExportKey returns the object name of an attempt's export bundle
func (r *StoreKeyStruct) AttemptExportKey(attemptID string) string {
	return fmt.Sprintf("attempt_%s.json", attemptID)
}

var StoreKey = NewStoreKeyStruct()
