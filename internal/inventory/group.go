package inventory

import "github.com/staysync/staysync/internal/model"

// DefaultCategoryOrder is the order categories are shown in.
var DefaultCategoryOrder = model.Categories

// GroupByCategory buckets items by category. Every category in order gets a
// key, possibly with an empty list; items keep their relative order; items whose
// category is not in order are left out.
func GroupByCategory(items []model.InventoryItem, order []string) map[string][]model.InventoryItem {
	groups := make(map[string][]model.InventoryItem, len(order))
	for _, c := range order {
		groups[c] = []model.InventoryItem{}
	}
	for _, it := range items {
		if bucket, ok := groups[it.Category]; ok {
			groups[it.Category] = append(bucket, it)
		}
	}
	return groups
}

// RoomGroup is the items of one room.
type RoomGroup struct {
	RoomID   string                `json:"roomId"`
	AreaType string                `json:"areaType"`
	Items    []model.InventoryItem `json:"items"`
}

// GroupByRoom buckets items by room id, rooms ordered by first appearance.
func GroupByRoom(items []model.InventoryItem) []RoomGroup {
	groups := []RoomGroup{}
	index := map[string]int{}
	for _, it := range items {
		i, ok := index[it.RoomID]
		if !ok {
			i = len(groups)
			index[it.RoomID] = i
			groups = append(groups, RoomGroup{RoomID: it.RoomID, AreaType: it.AreaType})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}

// FilterByArea keeps items of the given area type. An empty area or "all" keeps everything.
func FilterByArea(items []model.InventoryItem, area string) []model.InventoryItem {
	out := []model.InventoryItem{}
	for _, it := range items {
		if areaMatches(it.AreaType, area) {
			out = append(out, it)
		}
	}
	return out
}

// FilterByRoom keeps items of the given room.
func FilterByRoom(items []model.InventoryItem, roomID string) []model.InventoryItem {
	out := []model.InventoryItem{}
	for _, it := range items {
		if roomID == "" || it.RoomID == roomID {
			out = append(out, it)
		}
	}
	return out
}
