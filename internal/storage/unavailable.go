package storage

import "context"

// Unavailable stands in for a missing storage medium; every call fails with ErrUnavailable
type Unavailable struct{}

func (Unavailable) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, ErrUnavailable
}

func (Unavailable) Set(ctx context.Context, key, value string) error {
	return ErrUnavailable
}

func (Unavailable) Remove(ctx context.Context, key string) error {
	return ErrUnavailable
}

func (Unavailable) Keys(ctx context.Context, prefix string) ([]string, error) {
	return nil, ErrUnavailable
}

func (Unavailable) Close() error {
	return nil
}
