package config

// Merge folds the ordered document list into one effective configuration.
//
// The fold is strictly left to right: for every key in an incoming body, if
// both sides hold mappings they are merged recursively, otherwise the
// incoming value replaces the existing one outright. Sequences are replaced
// wholesale, never concatenated. The fold order is semantically significant;
// the merge is not commutative.
func Merge(docs []*Document) (*Mapping, error) {
	if len(docs) == 0 {
		return NewMapping(), nil
	}
	acc, err := mergeRoot(docs[0])
	if err != nil {
		return nil, err
	}
	for _, doc := range docs[1:] {
		body, err := mergeRoot(doc)
		if err != nil {
			return nil, err
		}
		acc = mergeMapping(acc, body)
	}
	return acc, nil
}

func mergeRoot(doc *Document) (*Mapping, error) {
	if doc.Body == nil {
		return nil, &IncludeError{Path: doc.Location, Msg: "cannot merge using non-mapping"}
	}
	return doc.Body, nil
}

// mergeMapping returns a new mapping holding dst updated by src. Keys
// already in dst keep their position, new keys are appended in src order.
// Neither input is mutated.
func mergeMapping(dst, src *Mapping) *Mapping {
	out := NewMapping()
	for _, k := range dst.keys {
		out.Set(k, dst.values[k])
	}
	for _, k := range src.keys {
		sv := src.values[k]
		if dv, ok := out.Get(k); ok {
			dm, dok := dv.(*Mapping)
			sm, sok := sv.(*Mapping)
			if dok && sok {
				out.Set(k, mergeMapping(dm, sm))
				continue
			}
		}
		out.Set(k, sv)
	}
	return out
}
