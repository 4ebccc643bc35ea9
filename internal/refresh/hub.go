package refresh

import (
	"log/slog"
	"sync"

	"github.com/open-gsa/gsa/internal/logging"
	"github.com/open-gsa/gsa/internal/metrics"
)

type hubKey struct {
	entityType string
	id         string
}

// Hub tracks mounted controllers by subject so mutations can ask every
// live view of that subject to reload.
type Hub struct {
	mu     sync.Mutex
	views  map[hubKey]map[*Controller]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		views:  make(map[hubKey]map[*Controller]struct{}),
		logger: logging.Component(logger, "refresh-hub"),
	}
}

// Register adds c as a live view of entityType/id. The returned func
// removes it again and is safe to call more than once.
func (h *Hub) Register(entityType, id string, c *Controller) func() {
	key := hubKey{entityType: entityType, id: id}

	h.mu.Lock()
	set, ok := h.views[key]
	if !ok {
		set = make(map[*Controller]struct{})
		h.views[key] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	metrics.LiveViews.WithLabelValues(entityType).Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.views[key]; ok {
				delete(set, c)
				if len(set) == 0 {
					delete(h.views, key)
				}
			}
			h.mu.Unlock()
			metrics.LiveViews.WithLabelValues(entityType).Dec()
		})
	}
}

// Reload reloads the live views of entityType/id, or of every entity of
// entityType when id is empty. It returns how many controllers reloaded.
func (h *Hub) Reload(entityType, id string) int {
	h.mu.Lock()
	var targets []*Controller
	for key, set := range h.views {
		if key.entityType != entityType || (id != "" && key.id != id) {
			continue
		}
		for c := range set {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	n := 0
	for _, c := range targets {
		if err := c.Reload(); err == nil {
			n++
		}
	}
	if n > 0 {
		h.logger.Debug("reloaded live views", "entity_type", entityType, "id", id, "count", n)
	}
	return n
}

// Len returns the number of registered views.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.views {
		n += len(set)
	}
	return n
}
