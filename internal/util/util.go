package util

import (
	"crypto/sha1"
	"encoding/hex"
)

func GetIDFromString(str *string) string {
	return GetIDFromBytes([]byte(*str))
}

func GetIDFromBytes(data []byte) string {
	hasher := sha1.New()
	hasher.Write(data)

	return hex.EncodeToString(hasher.Sum(nil))
}
