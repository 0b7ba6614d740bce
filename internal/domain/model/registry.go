package model

// Registry is the single persisted snapshot holding all configuration lines
// and subscription records. Every mutation reads, modifies, and rewrites the
// whole snapshot; Configs is always replaced wholesale, never merged
// line-by-line.
type Registry struct {
	Configs       []string       `json:"configs"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// NewRegistry returns an empty registry with non-nil slices, the shape
// written on first bootstrap.
func NewRegistry() *Registry {
	return &Registry{
		Configs:       []string{},
		Subscriptions: []Subscription{},
	}
}

// FindSubscription returns the subscription with the given id.
func (r *Registry) FindSubscription(id string) (Subscription, bool) {
	for _, sub := range r.Subscriptions {
		if sub.ID == id {
			return sub, true
		}
	}
	return Subscription{}, false
}

// RemoveSubscription deletes the subscription with the given id from the
// snapshot. It reports whether a record was removed.
func (r *Registry) RemoveSubscription(id string) bool {
	for i, sub := range r.Subscriptions {
		if sub.ID == id {
			r.Subscriptions = append(r.Subscriptions[:i], r.Subscriptions[i+1:]...)
			return true
		}
	}
	return false
}
