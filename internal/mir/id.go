package mir

import "fmt"

// Id identifies an expression binding within a Mir. Ids are unique across
// the whole Mir, not just within one body.
type Id int

// NoId is the zero value; it never identifies a binding.
const NoId Id = 0

func (id Id) String() string {
	return fmt.Sprintf("$%d", int(id))
}

// IdGenerator hands out fresh ids.
type IdGenerator struct {
	next Id
}

// NewIdGenerator returns a generator whose first id is 1.
func NewIdGenerator() *IdGenerator {
	return &IdGenerator{next: 1}
}

// StartIdGeneratorAt returns a generator whose first id is the given one.
func StartIdGeneratorAt(first Id) *IdGenerator {
	return &IdGenerator{next: first}
}

// Generate returns a fresh id.
func (g *IdGenerator) Generate() Id {
	id := g.next
	g.next++
	return id
}
