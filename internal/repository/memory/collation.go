package memory

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// nameOrder sorts names the way a linguistic database collation does, so
// that case and accents only break ties between otherwise equal letters.
// A Collator is not safe for concurrent use; take a new one per sort.
type nameOrder struct {
	c *collate.Collator
}

func newNameOrder() nameOrder {
	return nameOrder{c: collate.New(language.Und)}
}

// less orders by name, then by id.
func (o nameOrder) less(aName string, aID int64, bName string, bID int64) bool {
	if c := o.c.CompareString(aName, bName); c != 0 {
		return c < 0
	}
	return aID < bID
}
