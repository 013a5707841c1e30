package ecs

import "sync"

// resourceMap is read far more often than written: singletons are published
// once at system init and then read from worker goroutines every frame.
type resourceMap struct {
	values sync.Map
}

func newResourceContainer() *resourceMap {
	return &resourceMap{}
}

func (r *resourceMap) Get(name string) (any, bool) {
	return r.values.Load(name)
}

func (r *resourceMap) Set(name string, value any) {
	r.values.Store(name, value)
}

func (r *resourceMap) Delete(name string) {
	r.values.Delete(name)
}

func (r *resourceMap) Range(fn func(string, any) bool) {
	r.values.Range(func(k, v any) bool {
		return fn(k.(string), v)
	})
}

var _ ResourceContainer = (*resourceMap)(nil)
