package badger

import "fmt"

// Key layout:
//
//	col:<collection>                 collection metadata (dimensions)
//	pt:<collection>:<point id>       point
//	pts:<collection>:<sku>           sku → point id
//	chk:<name>                       sync checkpoint (not collection scoped)
const (
	collectionPrefix = "col"
	pointPrefix      = "pt"
	pointSKUPrefix   = "pts"
	checkpointPrefix = "chk"
)

func makeCollectionKey(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionPrefix, collection))
}

// makePointPrefix is the iteration prefix for all points of a collection.
func makePointPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", pointPrefix, collection))
}

func makePointKey(collection, id string) []byte {
	return append(makePointPrefix(collection), id...)
}

func makePointSKUKey(collection, sku string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", pointSKUPrefix, collection, sku))
}

func makeCheckpointKey(name string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, name))
}
