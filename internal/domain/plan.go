package domain

import (
	"slices"
	"strings"
)

// Item is one entry of a root listing.
type Item struct {
	ID       string
	Name     string
	Number   string
	Language string
	Group    GroupKey
}

// Listing is what a source returns for a root identifier.
type Listing struct {
	Title string
	Items []Item
	// GroupNames maps member ids to display names.
	GroupNames map[string]string
}

// Bucket holds the items sharing one GroupKey.
type Bucket struct {
	Key   GroupKey
	Label string
	Items []Item
}

// Tasks converts the bucket's items to discovery tasks, keeping their order.
func (b Bucket) Tasks() []DiscoveryTask {
	tasks := make([]DiscoveryTask, 0, len(b.Items))
	for _, it := range b.Items {
		tasks = append(tasks, DiscoveryTask{
			ID:     it.ID,
			Name:   it.Name,
			Number: it.Number,
			Group:  it.Group,
		})
	}
	return tasks
}

// Plan filters the listing to one language (all languages when empty),
// sorts by natural order of the item number and buckets by group in
// first-seen order.
func Plan(l *Listing, language string) []Bucket {
	items := make([]Item, 0, len(l.Items))
	for _, it := range l.Items {
		if language == "" || it.Language == language {
			items = append(items, it)
		}
	}
	slices.SortStableFunc(items, func(a, b Item) int {
		return CompareNatural(a.Number, b.Number)
	})

	var buckets []Bucket
	index := make(map[GroupKey]int)
	for _, it := range items {
		i, ok := index[it.Group]
		if !ok {
			i = len(buckets)
			index[it.Group] = i
			buckets = append(buckets, Bucket{Key: it.Group, Label: l.groupLabel(it.Group)})
		}
		buckets[i].Items = append(buckets[i].Items, it)
	}
	return buckets
}

func (l *Listing) groupLabel(k GroupKey) string {
	members := k.Members()
	names := make([]string, 0, len(members))
	for _, id := range members {
		if name, ok := l.GroupNames[id]; ok && name != "" {
			names = append(names, name)
			continue
		}
		names = append(names, id)
	}
	return strings.Join(names, ", ")
}

// Selector picks which bucket to process when there is more than one.
type Selector interface {
	Select(buckets []Bucket) (int, error)
}

// SelectBucket returns the only bucket directly and defers to sel otherwise.
func SelectBucket(buckets []Bucket, sel Selector) (Bucket, error) {
	switch len(buckets) {
	case 0:
		return Bucket{}, ErrNoGroups
	case 1:
		return buckets[0], nil
	}
	if sel == nil {
		return Bucket{}, ErrInvalidGroup
	}
	i, err := sel.Select(buckets)
	if err != nil {
		return Bucket{}, err
	}
	if i < 0 || i >= len(buckets) {
		return Bucket{}, ErrInvalidGroup
	}
	return buckets[i], nil
}
