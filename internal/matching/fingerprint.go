package matching

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a stable digest of a result. Map keys are marshaled in
// sorted order, so two runs over identical inputs yield the same value.
func Fingerprint(res *Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("fingerprint: nil result")
	}
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fmt.Sprintf("%016x", xxh3.Hash(data)), nil
}
