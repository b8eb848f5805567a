package queue

import (
	"encoding/json"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

// DefaultCapacity is the number of URLs kept when no capacity is configured.
const DefaultCapacity = 5

// RecentURLs is a fixed-capacity FIFO of webhook-reported URLs. When full,
// pushing evicts the oldest entry. If a snapshot path is set the whole queue
// is mirrored to disk as a JSON array after every push; snapshot I/O is
// best-effort and never fails a push.
type RecentURLs struct {
	mu       sync.Mutex
	urls     []string
	capacity int
	path     string
}

// New creates a queue with the given capacity, rehydrated from the snapshot
// at path if one exists. An empty path disables persistence. A missing or
// unreadable snapshot yields an empty queue.
func New(capacity int, path string) *RecentURLs {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	q := &RecentURLs{
		urls:     make([]string, 0, capacity),
		capacity: capacity,
		path:     path,
	}
	q.restore()

	return q
}

// Push appends url, evicting the oldest entry if the queue is full. The
// snapshot write happens under the lock so concurrent pushes cannot leave an
// older snapshot on disk than the queue holds in memory.
func (q *RecentURLs) Push(url string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.urls) >= q.capacity {
		log.WithFields(log.Fields{"url": q.urls[0]}).Debug("Evicting oldest URL")
		q.urls = q.urls[1:]
	}
	q.urls = append(q.urls, url)

	q.persist()
}

// Snapshot returns a copy of the current contents, oldest first.
func (q *RecentURLs) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]string{}, q.urls...)
}

func (q *RecentURLs) persist() {
	if q.path == "" {
		return
	}

	data, err := json.Marshal(q.urls)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Failed to encode URL snapshot")
		return
	}

	if err := os.WriteFile(q.path, data, 0644); err != nil {
		log.WithFields(log.Fields{
			"path":  q.path,
			"error": err,
		}).Warn("Failed to write URL snapshot")
	}
}

func (q *RecentURLs) restore() {
	if q.path == "" {
		return
	}

	data, err := os.ReadFile(q.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithFields(log.Fields{
				"path":  q.path,
				"error": err,
			}).Warn("Failed to read URL snapshot")
		}
		return
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		log.WithFields(log.Fields{
			"path":  q.path,
			"error": err,
		}).Warn("Ignoring corrupt URL snapshot")
		return
	}

	// Keep the most recent entries if the snapshot exceeds capacity
	if len(urls) > q.capacity {
		urls = urls[len(urls)-q.capacity:]
	}
	q.urls = append(q.urls, urls...)

	log.WithFields(log.Fields{
		"path":  q.path,
		"count": len(urls),
	}).Info("Restored URL queue from snapshot")
}
