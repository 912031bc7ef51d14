package store

// Entity is anything the store keeps in a collection keyed by ID.
type Entity interface {
	EntityID() string
}

// Op is the kind of change applied to a collection.
type Op int

const (
	OpPrepend Op = iota
	OpAppend
	OpReplace
	OpRemove
)

// Mutation describes one reconciled change. Row is used by every op except
// OpRemove; ID is used by OpReplace and OpRemove.
type Mutation[T Entity] struct {
	Op  Op
	ID  string
	Row T
}

// Reconcile returns a new collection with m applied to old. The input is
// never modified and the result never shares its backing array.
func Reconcile[T Entity](old []T, m Mutation[T]) []T {
	switch m.Op {
	case OpPrepend:
		out := make([]T, 0, len(old)+1)
		out = append(out, m.Row)
		return append(out, old...)
	case OpAppend:
		out := make([]T, 0, len(old)+1)
		out = append(out, old...)
		return append(out, m.Row)
	case OpReplace:
		out := make([]T, len(old))
		for i, item := range old {
			if item.EntityID() == m.ID {
				out[i] = m.Row
				continue
			}
			out[i] = item
		}
		return out
	case OpRemove:
		out := make([]T, 0, len(old))
		for _, item := range old {
			if item.EntityID() != m.ID {
				out = append(out, item)
			}
		}
		return out
	default:
		return clone(old)
	}
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func find[T Entity](items []T, id string) (T, bool) {
	for _, item := range items {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}
