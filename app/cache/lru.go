package cache

// LRUList maintains cache eviction order. The most recently used key sits
// right after the head sentinel, the eviction candidate right before the tail.
type LRUList[K comparable] struct {
	head  *LRUNode[K]
	tail  *LRUNode[K]
	nodes map[K]*LRUNode[K]
}

// LRUNode represents a node in the LRU list
type LRUNode[K comparable] struct {
	key        K
	prev, next *LRUNode[K]
}

// NewLRUList creates a new LRU list
func NewLRUList[K comparable]() *LRUList[K] {
	head := &LRUNode[K]{}
	tail := &LRUNode[K]{}
	head.next = tail
	tail.prev = head

	return &LRUList[K]{
		head:  head,
		tail:  tail,
		nodes: make(map[K]*LRUNode[K]),
	}
}

// Touch marks key as most recently used, adding it if needed.
func (l *LRUList[K]) Touch(key K) {
	if node, exists := l.nodes[key]; exists {
		l.unlink(node)
		l.pushFront(node)
		return
	}
	node := &LRUNode[K]{key: key}
	l.nodes[key] = node
	l.pushFront(node)
}

// Remove removes a key from the LRU list
func (l *LRUList[K]) Remove(key K) {
	if node, exists := l.nodes[key]; exists {
		l.unlink(node)
		delete(l.nodes, key)
	}
}

// Oldest returns the least recently used key without removing it.
func (l *LRUList[K]) Oldest() (K, bool) {
	if len(l.nodes) == 0 {
		var zero K
		return zero, false
	}
	return l.tail.prev.key, true
}

func (l *LRUList[K]) pushFront(node *LRUNode[K]) {
	node.next = l.head.next
	node.prev = l.head
	l.head.next.prev = node
	l.head.next = node
}

func (l *LRUList[K]) unlink(node *LRUNode[K]) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
