package util

import (
	"encoding/json"
)

// MustMarshalJSON marshals values that cannot legitimately fail to encode,
// such as string-keyed string maps.
func MustMarshalJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
