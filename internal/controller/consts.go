package controller

import "time"

const (
	// DefaultAnnotationDomain prefixes the reserved annotation keys when no
	// domain is configured.
	DefaultAnnotationDomain = "kirillorlov.pro"

	// secretNameSuffix is the trigger annotation: it names the secret, in
	// the ingress's own namespace, that supplies replacement values. Its
	// presence opts the ingress into processing.
	secretNameSuffix = "annotationsFromSecretName"
	// secretStateSuffix is the state annotation holding the JSON journal of
	// pre-substitution originals. Informational for the owner, never edited
	// manually.
	secretStateSuffix = "annotationsFromSecretState"

	// lastAppliedConfigKey is kubectl bookkeeping and never a substitution
	// target.
	lastAppliedConfigKey = "kubectl.kubernetes.io/last-applied-configuration"

	// fieldManager identifies this controller's patches to the API server.
	fieldManager = "kubernetes-annotation-from-secret-applier"

	// secretNameField indexes ingresses by the value of their trigger
	// annotation.
	secretNameField = ".metadata.annotations.annotationsFromSecretName"

	// resyncInterval schedules the periodic revisit after successful
	// processing, as a safety net on top of the secret watch.
	resyncInterval = 300 * time.Second
	// errorRetryInterval schedules the revisit after a secret fetch or
	// patch failure.
	errorRetryInterval = 60 * time.Second
)
