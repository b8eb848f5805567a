package cache

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGetCountsHitsMissesAndExpirations(t *testing.T) {
	c := New[string, int](10 * time.Millisecond)

	hits := testutil.ToFloat64(cacheHits)
	misses := testutil.ToFloat64(cacheMisses)
	expirations := testutil.ToFloat64(cacheExpirations)

	c.Get("absent")

	c.Set("key", 1)
	c.Get("key")

	time.Sleep(25 * time.Millisecond)
	c.Get("key")

	assert.Equal(t, misses+1, testutil.ToFloat64(cacheMisses))
	assert.Equal(t, hits+1, testutil.ToFloat64(cacheHits))
	assert.Equal(t, expirations+1, testutil.ToFloat64(cacheExpirations))
}
