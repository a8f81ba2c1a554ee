package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ItemID is the structured form of an inventory item id, rendered as "{propertyID}_{seq}".
type ItemID struct {
	PropertyID string
	Seq        int
}

func (id ItemID) String() string {
	return fmt.Sprintf("%s_%d", id.PropertyID, id.Seq)
}

// ParseItemID splits an id on its last underscore. The sequence must be a positive integer.
func ParseItemID(s string) (ItemID, bool) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return ItemID{}, false
	}
	seq, err := strconv.Atoi(s[i+1:])
	if err != nil || seq < 1 {
		return ItemID{}, false
	}
	return ItemID{PropertyID: s[:i], Seq: seq}, true
}
