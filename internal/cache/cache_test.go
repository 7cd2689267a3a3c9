package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	values map[string]string
	err    error
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	value, ok := f.values[key]
	if !ok {
		return "", ErrMiss
	}
	return value, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value
	return nil
}

func (f *fakeStore) Del(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.values, key)
	return nil
}

func TestTryGetHit(t *testing.T) {
	store := &fakeStore{values: map[string]string{"k": "v"}}
	value, ok := TryGet(context.Background(), store, "k")
	if !ok || value != "v" {
		t.Fatalf("expected hit with v, got %q ok=%v", value, ok)
	}
}

func TestTryGetTreatsMissAndErrorAlike(t *testing.T) {
	miss := &fakeStore{values: map[string]string{}}
	if _, ok := TryGet(context.Background(), miss, "absent"); ok {
		t.Fatal("expected a miss for an absent key")
	}

	broken := &fakeStore{err: errors.New("connection refused")}
	if _, ok := TryGet(context.Background(), broken, "k"); ok {
		t.Fatal("expected a miss when the store errors")
	}
}

func TestTrySetSwallowsErrors(t *testing.T) {
	broken := &fakeStore{err: errors.New("connection refused")}
	// Must not panic or surface the failure.
	TrySet(context.Background(), broken, "k", "v", 0)
}

func TestTolerantHelpersAcceptNilStore(t *testing.T) {
	if _, ok := TryGet(context.Background(), nil, "k"); ok {
		t.Fatal("expected a miss from a nil store")
	}
	TrySet(context.Background(), nil, "k", "v", 0)
}
