package pipeline

import (
	"errors"
	"sort"
)

// ErrNoItemsDetected is returned when a selection is attempted over an
// empty item list.
var ErrNoItemsDetected = errors.New("no items detected")

// Select picks the primary clothing item and orders all items by
// descending pixel area (stable, so equal-area items keep their input
// order).
//
// Primary selection walks the priority list: the first item whose
// label matches the highest-priority label present wins. Priority
// encodes that some garment types (a dress, say) should represent the
// photo even when a smaller accessory covers more pixels. Items whose
// labels appear nowhere in the list fall back to the largest item.
func (p Policy) Select(items []DetectedItem) (DetectedItem, []DetectedItem, error) {
	if len(items) == 0 {
		return DetectedItem{}, nil, ErrNoItemsDetected
	}

	ordered := make([]DetectedItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AreaPixels > ordered[j].AreaPixels
	})

	for _, label := range p.PriorityOrder {
		for _, item := range items {
			if item.Label == label {
				return item, ordered, nil
			}
		}
	}

	return ordered[0], ordered, nil
}
