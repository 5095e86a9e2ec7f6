// Package aggregates declares the course tree write boundary and the coded
// errors every write returns. Implementations live in internal/data/aggregates.
package aggregates

// WriteTxOwnership says who opens the transaction around a write.
type WriteTxOwnership string

const WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"

// ReadPolicy limits which reads an aggregate performs itself.
type ReadPolicy string

// ReadPolicyInvariantScoped: the aggregate reads only what its invariant
// checks need; tree and progress reads go through the services layer.
const ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"

type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}
