package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustMarshalJSON_AnnotationMap(t *testing.T) {
	input := map[string]string{
		"example":            "prefix-bar-suffix",
		"example.com/origin": `{"example":"prefix-$FOO$-suffix"}`,
	}

	result := MustMarshalJSON(input)
	assert.JSONEq(t, `{"example":"prefix-bar-suffix","example.com/origin":"{\"example\":\"prefix-$FOO$-suffix\"}"}`, string(result))
}

func TestMustMarshalJSON_InvalidInput(t *testing.T) {
	invalidInput := make(chan int)

	assert.Panics(t, func() {
		MustMarshalJSON(invalidInput)
	}, "The function should panic on invalid input")
}
