/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/go-logr/logr"

	"github.com/DiverOfDark/kubernetes-annotation-from-secret-applier/pkg/journal"
	"github.com/DiverOfDark/kubernetes-annotation-from-secret-applier/pkg/model"
	"github.com/DiverOfDark/kubernetes-annotation-from-secret-applier/pkg/replacer"
	"github.com/DiverOfDark/kubernetes-annotation-from-secret-applier/pkg/util"
)

// IngressReconciler substitutes $key$ placeholder tokens in ingress
// annotations with values from the secret named by the trigger annotation,
// journaling the pre-substitution originals so that repeated runs and secret
// rotations converge without drifting.
type IngressReconciler struct {
	client.Client
	Scheme *runtime.Scheme
	// AnnotationDomain prefixes the reserved annotation keys. Empty means
	// DefaultAnnotationDomain.
	AnnotationDomain string
}

type ingressContext struct {
	ctx     context.Context
	logger  logr.Logger
	ingress networkingv1.Ingress
}

func (r *IngressReconciler) domain() string {
	if r.AnnotationDomain == "" {
		return DefaultAnnotationDomain
	}
	return r.AnnotationDomain
}

// SecretNameKey returns the trigger annotation key.
func (r *IngressReconciler) SecretNameKey() string {
	return r.domain() + "/" + secretNameSuffix
}

// SecretStateKey returns the state annotation key holding the journal.
func (r *IngressReconciler) SecretStateKey() string {
	return r.domain() + "/" + secretStateSuffix
}

// reservedKeys lists the annotation keys that are never substitution targets
// and never journaled.
func (r *IngressReconciler) reservedKeys() map[string]struct{} {
	return map[string]struct{}{
		r.SecretNameKey():    {},
		r.SecretStateKey():   {},
		lastAppliedConfigKey: {},
	}
}

// secretNameIndexValue extracts the trigger annotation value for the ingress
// index. Shared between SetupWithManager and tests so the fake cache indexes
// the same way the real one does.
func (r *IngressReconciler) secretNameIndexValue(obj client.Object) []string {
	name, ok := obj.GetAnnotations()[r.SecretNameKey()]
	if !ok || name == "" {
		return nil
	}
	return []string{name}
}

// +kubebuilder:rbac:groups=networking.k8s.io,resources=ingresses,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch

// SetupWithManager sets up the controller with the Manager. Besides watching
// ingresses, it indexes them by their trigger annotation and watches secrets,
// so a secret rotation enqueues every dependent ingress immediately instead
// of waiting for the periodic revisit.
func (r *IngressReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if err := mgr.GetFieldIndexer().IndexField(
		context.Background(), &networkingv1.Ingress{}, secretNameField, r.secretNameIndexValue,
	); err != nil {
		return fmt.Errorf("failed to index ingresses by secret name: %w", err)
	}
	return ctrl.NewControllerManagedBy(mgr).
		For(&networkingv1.Ingress{}).
		Watches(&corev1.Secret{}, handler.EnqueueRequestsFromMapFunc(r.mapSecretToIngresses)).
		Complete(r)
}

// mapSecretToIngresses returns a reconcile request for every ingress in the
// secret's namespace whose trigger annotation names the secret.
func (r *IngressReconciler) mapSecretToIngresses(ctx context.Context, obj client.Object) []ctrl.Request {
	var ingresses networkingv1.IngressList
	if err := r.List(ctx, &ingresses,
		client.InNamespace(obj.GetNamespace()),
		client.MatchingFields{secretNameField: obj.GetName()},
	); err != nil {
		log.FromContext(ctx).Error(err, "failed to list ingresses for secret",
			"namespace", obj.GetNamespace(), "name", obj.GetName())
		return nil
	}

	requests := make([]ctrl.Request, 0, len(ingresses.Items))
	for _, ingress := range ingresses.Items {
		requests = append(requests, ctrl.Request{NamespacedName: types.NamespacedName{
			Namespace: ingress.Namespace,
			Name:      ingress.Name,
		}})
	}
	return requests
}

// Reconcile processes one ingress snapshot. Outcomes follow a fixed
// contract: no trigger annotation means no requeue timer; successful
// processing (with or without changes) revisits after resyncInterval; a
// secret fetch or patch failure revisits after errorRetryInterval. Failures
// are resource-scoped and logged, never fatal to the process.
func (r *IngressReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	var ingress networkingv1.Ingress
	if err := r.Get(ctx, req.NamespacedName, &ingress); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	secretName, ok := ingress.Annotations[r.SecretNameKey()]
	if !ok || secretName == "" {
		// Not opted in. An existing state annotation is left as is.
		return ctrl.Result{}, nil
	}

	ingressCtx := &ingressContext{
		ctx:     ctx,
		logger:  log.FromContext(ctx).WithValues("kind", "ingress", "namespace", ingress.Namespace, "name", ingress.Name),
		ingress: ingress,
	}

	if ingress.Namespace == "" {
		ingressCtx.logger.Info("ingress has no namespace, cannot resolve secret", "secret", secretName)
		return ctrl.Result{RequeueAfter: errorRetryInterval}, nil
	}

	var secret corev1.Secret
	if err := r.Get(ctx, types.NamespacedName{Namespace: ingress.Namespace, Name: secretName}, &secret); err != nil {
		ingressCtx.logger.Error(err, "failed to get secret", "secret", secretName)
		return ctrl.Result{RequeueAfter: errorRetryInterval}, nil
	}

	if err := r.apply(ingressCtx, &secret); err != nil {
		ingressCtx.logger.Error(err, "failed to apply annotations from secret", "secret", secretName)
		return ctrl.Result{RequeueAfter: errorRetryInterval}, nil
	}

	return ctrl.Result{RequeueAfter: resyncInterval}, nil
}

// apply stages placeholder rewrites for the ingress and submits them as a
// single merge patch of the changed annotation keys plus the journal. Zero
// staged rewrites means no API call at all; patching an unchanged ingress
// would trigger another reconcile and loop forever.
func (r *IngressReconciler) apply(ingressCtx *ingressContext, secret *corev1.Secret) error {
	replacements, err := replacer.FromSecret(secret)
	if err != nil {
		return fmt.Errorf("failed to build replacement set: %w", err)
	}

	existing := journal.Decode(ingressCtx.ingress.Annotations, r.SecretStateKey())
	rewrites := replacements.Apply(ingressCtx.ingress.Annotations, existing, r.reservedKeys())
	if len(rewrites) == 0 {
		return nil
	}

	annotations := make(model.Annotations, len(rewrites)+1)
	for key, rewrite := range rewrites {
		annotations[key] = rewrite.Value
	}
	annotations[r.SecretStateKey()] = journal.Encode(journal.Merge(existing, rewrites))

	patch := map[string]any{
		"metadata": map[string]any{
			"annotations": annotations,
		},
	}
	if err := r.Patch(
		ingressCtx.ctx,
		&ingressCtx.ingress,
		client.RawPatch(types.MergePatchType, util.MustMarshalJSON(patch)),
		client.FieldOwner(fieldManager),
	); err != nil {
		return fmt.Errorf("failed to patch ingress: %w", err)
	}

	ingressCtx.logger.Info("Successfully patched ingress annotations", "count", len(rewrites))
	return nil
}
