package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/MorseWayne/stock_bff/internal/upstream"
)

var testUpstreams = Upstreams{
	Catalog:   upstream.Service{Name: "catalog", BaseURL: "http://catalog.test"},
	Inventory: upstream.Service{Name: "inventory", BaseURL: "http://inventory.test"},
	Recipes:   upstream.Service{Name: "recipes", BaseURL: "http://recipes.test"},
}

// fakeCall 记录一次上游调用
type fakeCall struct {
	service string
	path    string
	query   url.Values
}

// fakeGetter 按 "service path?query" 返回预设结果
type fakeGetter struct {
	mu        sync.Mutex
	calls     []fakeCall
	responses map[string]any
	errors    map[string]error
	hook      func(ctx context.Context, call fakeCall)
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{
		responses: make(map[string]any),
		errors:    make(map[string]error),
	}
}

func fakeKey(service, path string, query url.Values) string {
	if len(query) == 0 {
		return fmt.Sprintf("%s %s", service, path)
	}
	return fmt.Sprintf("%s %s?%s", service, path, query.Encode())
}

func (f *fakeGetter) respond(service, path string, query url.Values, payload any) {
	f.responses[fakeKey(service, path, query)] = payload
}

func (f *fakeGetter) fail(service, path string, query url.Values, err error) {
	f.errors[fakeKey(service, path, query)] = err
}

func (f *fakeGetter) Get(ctx context.Context, svc upstream.Service, path string, query url.Values) (any, error) {
	call := fakeCall{service: svc.Name, path: path, query: query}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(ctx, call)
	}

	key := fakeKey(svc.Name, path, query)
	if err, ok := f.errors[key]; ok {
		return nil, err
	}
	if payload, ok := f.responses[key]; ok {
		return payload, nil
	}
	return nil, &upstream.HTTPError{Service: svc.Name, URL: key, Status: 404, Body: map[string]any{"detail": "not stubbed"}}
}

func (f *fakeGetter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func stockListing(pairs ...any) []any {
	listing := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		listing = append(listing, map[string]any{"id_sucursal": pairs[i], "stock": pairs[i+1]})
	}
	return listing
}

func q(productID string) url.Values {
	return url.Values{"id_producto": {productID}}
}
