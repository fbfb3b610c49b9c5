package fakeclient

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	"sigs.k8s.io/controller-runtime/pkg/manager"
)

func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = corev1.AddToScheme(scheme)
	_ = networkingv1.AddToScheme(scheme)
	return scheme
}

func NewManager() manager.Manager {
	fakeConfig := &rest.Config{
		Host: "https://fake-api-server",
	}
	scheme := NewScheme()
	mgr, err := ctrl.NewManager(fakeConfig, ctrl.Options{
		Scheme: scheme,
		// A static mapper keeps the manager fully offline: the default
		// dynamic mapper performs API discovery against the fake host.
		MapperProvider: func(*rest.Config, *http.Client) (meta.RESTMapper, error) {
			return newStaticMapper(scheme), nil
		},
	})
	if err != nil {
		panic(err)
	}
	return mgr
}

func newStaticMapper(scheme *runtime.Scheme) meta.RESTMapper {
	mapper := meta.NewDefaultRESTMapper(nil)
	for gvk := range scheme.AllKnownTypes() {
		if strings.HasSuffix(gvk.Kind, "List") {
			continue
		}
		mapper.Add(gvk, meta.RESTScopeNamespace)
	}
	return mapper
}

type ClientOpts struct {
	GetError   bool
	ListError  bool
	PatchError bool
	// PatchCalls, when non-nil, is incremented on every Patch attempt.
	PatchCalls *int
}

// IngressIndex is an optional index registration mirroring what
// SetupWithManager installs on the real cache.
type IngressIndex struct {
	Field     string
	Extractor client.IndexerFunc
}

func NewClient(opts *ClientOpts, objs ...client.Object) client.Client {
	return NewIndexedClient(opts, nil, objs...)
}

func NewIndexedClient(opts *ClientOpts, index *IngressIndex, objs ...client.Object) client.Client {
	builder := fake.NewClientBuilder().
		WithScheme(NewScheme()).
		WithInterceptorFuncs(createInterceptorFuncs(opts)).
		WithObjects(filterNonNilObjects(objs)...)
	if index != nil {
		builder = builder.WithIndex(&networkingv1.Ingress{}, index.Field, index.Extractor)
	}
	return builder.Build()
}

func createInterceptorFuncs(opts *ClientOpts) interceptor.Funcs {
	if opts == nil {
		opts = &ClientOpts{}
	}

	funcs := interceptor.Funcs{}

	if opts.GetError {
		funcs.Get = func(
			ctx context.Context,
			cl client.WithWatch,
			key client.ObjectKey,
			obj client.Object,
			getOpts ...client.GetOption,
		) error {
			return errors.New("mocked Get error")
		}
	}

	if opts.ListError {
		funcs.List = func(
			ctx context.Context,
			cl client.WithWatch,
			list client.ObjectList,
			listOpts ...client.ListOption,
		) error {
			return errors.New("mocked List error")
		}
	}

	if opts.PatchError || opts.PatchCalls != nil {
		patchCalls := opts.PatchCalls
		patchError := opts.PatchError
		funcs.Patch = func(
			ctx context.Context,
			cl client.WithWatch,
			obj client.Object,
			patch client.Patch,
			patchOpts ...client.PatchOption,
		) error {
			if patchCalls != nil {
				*patchCalls++
			}
			if patchError {
				return errors.New("mocked Patch error")
			}
			return cl.Patch(ctx, obj, patch, patchOpts...)
		}
	}

	return funcs
}

func filterNonNilObjects(objs []client.Object) []client.Object {
	nonNilObjs := make([]client.Object, 0, len(objs))
	for _, obj := range objs {
		if !reflect.ValueOf(obj).IsNil() {
			nonNilObjs = append(nonNilObjs, obj)
		}
	}
	return nonNilObjs
}
