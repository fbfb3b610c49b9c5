package journal

import (
	"testing"

	"github.com/jmnote/tester"
	"github.com/stretchr/testify/assert"

	"github.com/DiverOfDark/kubernetes-annotation-from-secret-applier/pkg/model"
)

const stateKey = "example.com/annotationsFromSecretState"

func TestDecode(t *testing.T) {
	testCases := []struct {
		name        string
		annotations model.Annotations
		want        model.Journal
	}{
		{
			name:        "nil annotations",
			annotations: nil,
			want:        model.Journal{},
		},
		{
			name:        "state annotation missing",
			annotations: model.Annotations{"other": "value"},
			want:        model.Journal{},
		},
		{
			name:        "state annotation empty",
			annotations: model.Annotations{stateKey: ""},
			want:        model.Journal{},
		},
		{
			name:        "malformed journal degrades to empty",
			annotations: model.Annotations{stateKey: "not-json"},
			want:        model.Journal{},
		},
		{
			name:        "valid journal",
			annotations: model.Annotations{stateKey: `{"example":"prefix-$FOO$-suffix"}`},
			want:        model.Journal{"example": "prefix-$FOO$-suffix"},
		},
	}
	for i, tc := range testCases {
		t.Run(tester.Name(i, tc.name), func(t *testing.T) {
			got := Decode(tc.annotations, stateKey)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEncode(t *testing.T) {
	journal := model.Journal{
		"b-key": "second",
		"a-key": "first",
	}
	// keys are emitted in sorted order, so the encoding is stable
	assert.Equal(t, `{"a-key":"first","b-key":"second"}`, Encode(journal))
	assert.Equal(t, `{}`, Encode(model.Journal{}))
}

func TestMerge(t *testing.T) {
	existing := model.Journal{
		"kept":       "old original",
		"reaffirmed": "same original",
	}
	staged := map[string]model.Rewrite{
		"reaffirmed": {Value: "new value", Original: "same original"},
		"added":      {Value: "value", Original: "templated"},
	}

	got := Merge(existing, staged)

	assert.Equal(t, model.Journal{
		"kept":       "old original",
		"reaffirmed": "same original",
		"added":      "templated",
	}, got)
	// inputs stay untouched
	assert.Len(t, existing, 2)
	assert.Len(t, staged, 2)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	journal := model.Journal{"example": `va"lue with $TOKEN$ and quotes`}
	annotations := model.Annotations{stateKey: Encode(journal)}
	assert.Equal(t, journal, Decode(annotations, stateKey))
}
