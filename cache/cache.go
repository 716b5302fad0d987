// Package cache implements the key-value gateway sitting in front of all
// external data fetches. Keys are namespaced by data kind, identity, and
// time bucket; a miss is a first-class result, never an error.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Data kinds. Each kind owns a disjoint key namespace.
const (
	KindMarketData = "market_data"
	KindFinancials = "financials"
	KindNews       = "news"
)

// TTL policy per data kind. Daily bars and headlines go stale within a
// day; reported financials for a closed quarter do not change, so they
// keep a much longer horizon.
const (
	TTLMarketData = 24 * time.Hour
	TTLFinancials = 45 * 24 * time.Hour
	TTLNews       = 24 * time.Hour
)

// JSONCache is the gateway contract. GetJSON reports a miss via the bool
// return and unmarshals into dest on a hit. SetJSON stores value as a JSON
// document under the given TTL; a zero TTL stores without expiry.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Close() error
}

// Key builds the namespaced cache key for one data kind, identity, and
// time bucket, e.g. market_data:AAPL:2024-01-15.
func Key(kind, identity, bucket string) string {
	return fmt.Sprintf("%s:%s:%s", kind, identity, bucket)
}
