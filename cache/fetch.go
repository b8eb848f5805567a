package cache

// Fetch returns the cached value for key, calling fn to produce it on a miss.
// A successful result is cached before being returned; a failed fn leaves the
// cache untouched, so failures are never cached. Two concurrent misses for
// the same key may both invoke fn; the upstream calls are idempotent and the
// last Set wins.
func Fetch[K comparable, V any](c *Cache[K, V], key K, fn func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, value)
	return value, nil
}
