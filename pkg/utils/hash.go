package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString produces stable cache keys for redis lookups.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
