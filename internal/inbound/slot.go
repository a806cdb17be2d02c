package inbound

// slot records a builder field together with whether a setter touched it.
type slot[T any] struct {
	value T
	set   bool
}

func (s *slot[T]) put(v T) {
	s.value = v
	s.set = true
}

type requirement struct {
	field string
	set   bool
}

func required[T any](field string, s slot[T]) requirement {
	return requirement{field: field, set: s.set}
}

// checkSlots walks a fixed list of required slots in declaration order.
func checkSlots(builder string, reqs ...requirement) error {
	var missing []string
	for _, req := range reqs {
		if !req.set {
			missing = append(missing, req.field)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &IncompleteBuilderError{Builder: builder, Missing: missing}
}
