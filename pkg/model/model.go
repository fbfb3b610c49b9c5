package model

// Annotations is the metadata annotation mapping of a resource.
type Annotations map[string]string

// Journal maps an annotation key to the pre-substitution original value of
// that annotation. It is persisted as a JSON object inside the state
// annotation on the ingress itself and is the only durable state the
// controller owns.
type Journal map[string]string

// Rewrite is the staged substitution outcome for a single annotation key.
type Rewrite struct {
	// Value is the annotation value after placeholder substitution.
	Value string
	// Original is the templated text the substitution was computed from.
	// It is recorded in the journal so that later reconciles substitute
	// against the original, never against already-substituted output.
	Original string
}
