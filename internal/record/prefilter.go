package record

// FilterQuery is the cleartext portion of an incoming query (medicines and
// side-effects lists) needed to run the prefilter (spec §4.3). The wire
// Query type (including encrypted_m) lives in package protocol; this
// minimal shape keeps package record free of any HE dependency for the
// prefilter itself.
type FilterQuery struct {
	Medicines   []int
	SideEffects []int
}

// Prefilter returns the candidate set: indices of rows whose medicines
// intersect Q.Medicines AND whose side effects intersect Q.SideEffects,
// in Store order (spec §4.3). This is the only structural leakage the
// server obtains beyond query size.
func Prefilter(s *Store, q FilterQuery) []int {
	medSet := toSet(q.Medicines)
	effSet := toSet(q.SideEffects)

	var candidates []int
	for i := 0; i < s.Len(); i++ {
		r := s.At(i)
		if intersects(r.Medicines, medSet) && intersects(r.SideEffects, effSet) {
			candidates = append(candidates, i)
		}
	}
	return candidates
}

func toSet(vals []int) map[int]struct{} {
	set := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}

func intersects(vals []int, set map[int]struct{}) bool {
	for _, v := range vals {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
