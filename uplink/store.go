package uplink

import (
	"sync"
)

const lnKey = "ln"

type ListenerFunction func(value any)

type storeListener struct {
	listenerId int
	listener   ListenerFunction
}

// Store is a key/value map with per-key listeners plus a string-only
// localization map reachable via the "ln" key.
// The store is never torn down for the life of the runtime.
type Store struct {
	mutex          sync.Mutex
	values         map[string]any
	ln             map[string]string
	listeners      map[string][]*storeListener
	nextListenerId int
}

func NewStore() *Store {
	return &Store{
		values:    map[string]any{},
		ln:        map[string]string{},
		listeners: map[string][]*storeListener{},
	}
}

// Set stores value under key and synchronously notifies the key's listeners
// in registration order. The "ln" key is special: string-valued sub-entries
// of value merge into the localization map and non-string values are dropped.
func (self *Store) Set(key string, value any) {
	if key == lnKey {
		self.mutex.Lock()
		switch entries := value.(type) {
		case map[string]any:
			for k, v := range entries {
				if s, ok := v.(string); ok {
					self.ln[k] = s
				}
			}
		case map[string]string:
			for k, s := range entries {
				self.ln[k] = s
			}
		}
		self.mutex.Unlock()
		return
	}

	self.mutex.Lock()
	self.values[key] = value
	listeners := append([]*storeListener{}, self.listeners[key]...)
	self.mutex.Unlock()

	for _, entry := range listeners {
		entry.listener(value)
	}
}

func (self *Store) Get(key string) any {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.values[key]
}

// Listen registers listener for key. The returned func removes exactly this
// registration and leaves the order of the others unchanged.
func (self *Store) Listen(key string, listener ListenerFunction) func() {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	self.nextListenerId += 1
	listenerId := self.nextListenerId
	self.listeners[key] = append(self.listeners[key], &storeListener{
		listenerId: listenerId,
		listener:   listener,
	})

	return func() {
		self.mutex.Lock()
		defer self.mutex.Unlock()

		entries := self.listeners[key]
		for i, entry := range entries {
			if entry.listenerId == listenerId {
				self.listeners[key] = append(entries[0:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Ln returns the localized string for key, or key itself if absent.
func (self *Store) Ln(key string) string {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	if s, ok := self.ln[key]; ok {
		return s
	}
	return key
}
