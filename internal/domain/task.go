package domain

import "strings"

const groupKeySep = "\x1f"

// GroupKey identifies the set of contributors behind an item. Two keys are
// equal only when they hold the same members in the same order.
type GroupKey struct {
	members string
}

// NewGroupKey builds a key from member ids, preserving their order.
func NewGroupKey(ids ...string) GroupKey {
	return GroupKey{members: strings.Join(ids, groupKeySep)}
}

// Members returns the member ids in their original order.
func (k GroupKey) Members() []string {
	if k.members == "" {
		return nil
	}
	return strings.Split(k.members, groupKeySep)
}

// DiscoveryTask is one item of the selected group, waiting for its detail
// to be fetched.
type DiscoveryTask struct {
	ID     string
	Name   string
	Number string
	Group  GroupKey
}

// OrderKey is the value the natural comparator sorts by.
func (t DiscoveryTask) OrderKey() string {
	return t.Number
}

// Leaf is one payload named by an item's detail.
type Leaf struct {
	Name   string
	Origin string
	Path   string
}

// DestinationContext carries what the resolver needs to place a leaf.
type DestinationContext struct {
	Collection string
	Item       string
}

// DestinationRecord is where a fetched payload lands.
type DestinationRecord struct {
	Key string
}

// FetchTask downloads one leaf into its destination.
type FetchTask struct {
	Origin string
	Path   string
	Dest   DestinationRecord
	Item   string
}

// String identifies the task in logs.
func (t FetchTask) String() string {
	return t.Origin + t.Path + " -> " + t.Dest.Key
}
