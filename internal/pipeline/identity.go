package pipeline

// IdentityMap records which database surrogate key each source identifier
// resolved to during a load. The sales aggregator uses the customer and
// product maps to rewrite foreign keys before grouping.
type IdentityMap struct {
	m map[string]int64
}

func NewIdentityMap() *IdentityMap {
	return &IdentityMap{m: make(map[string]int64)}
}

// Put records sourceID -> surrogate key. Later writes for the same source id
// overwrite earlier ones; loaders dedupe before inserting, so in practice
// each source id is written at most once.
func (im *IdentityMap) Put(sourceID string, key int64) {
	im.m[sourceID] = key
}

func (im *IdentityMap) Get(sourceID string) (int64, bool) {
	key, ok := im.m[sourceID]
	return key, ok
}

func (im *IdentityMap) Len() int { return len(im.m) }
