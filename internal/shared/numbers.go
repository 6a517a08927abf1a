package shared

import (
	"fmt"
	"math/rand"
	"time"
)

// DocumentNumber builds a document number in the persisted wire format
// <prefix>-<epoch-ms>-<0..999>. Uniqueness is best effort: the millisecond
// timestamp plus the random suffix, not a database sequence.
func DocumentNumber(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixMilli(), rand.Intn(1000))
}
