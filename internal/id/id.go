// Package id generates and parses storage keys.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TransactionPrefix starts the storage key of every transaction.
const TransactionPrefix = "transaction-"

// CategoriesKey is the storage key of the category catalog.
const CategoriesKey = "categories"

// NewTransactionKey returns "transaction-<uuid>". The UUID is time-ordered,
// so keys sort in creation order.
func NewTransactionKey() string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return TransactionPrefix + u.String()
}

// IsTransactionKey reports whether key names a stored transaction.
func IsTransactionKey(key string) bool {
	return strings.HasPrefix(key, TransactionPrefix)
}

// ParseTransactionKey returns the UUID inside a transaction key.
func ParseTransactionKey(key string) (uuid.UUID, error) {
	if !IsTransactionKey(key) {
		return uuid.Nil, fmt.Errorf("invalid transaction key: %q", key)
	}
	u, err := uuid.Parse(strings.TrimPrefix(key, TransactionPrefix))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid transaction key %q: %w", key, err)
	}
	return u, nil
}
