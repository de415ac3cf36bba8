package store

// Context is an ordered collection of FileRef values without duplicates.
// Consumers never edit a Context they loaded; they build a new one and save
// it under a key.
type Context struct {
	Files []FileRef `json:"file_datas"`
}

// NewContext builds a Context from refs, dropping repeated values while
// keeping first-seen order.
func NewContext(refs ...FileRef) Context {
	out := Context{Files: make([]FileRef, 0, len(refs))}
	seen := make(map[FileRef]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out.Files = append(out.Files, ref)
	}
	return out
}

// Len reports the number of refs in the context.
func (c Context) Len() int { return len(c.Files) }

// Empty reports whether the context holds no refs.
func (c Context) Empty() bool { return len(c.Files) == 0 }

// Contains reports whether ref is part of the context.
func (c Context) Contains(ref FileRef) bool {
	for _, f := range c.Files {
		if f == ref {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of c.
func (c Context) Clone() Context {
	if c.Files == nil {
		return Context{Files: []FileRef{}}
	}
	files := make([]FileRef, len(c.Files))
	copy(files, c.Files)
	return Context{Files: files}
}

// Union merges contexts in order, keeping the first occurrence of each ref.
func Union(contexts ...Context) Context {
	var refs []FileRef
	for _, c := range contexts {
		refs = append(refs, c.Files...)
	}
	return NewContext(refs...)
}

// Subtract returns the refs of c that are not in other, in c's order.
func (c Context) Subtract(other Context) Context {
	drop := make(map[FileRef]struct{}, len(other.Files))
	for _, ref := range other.Files {
		drop[ref] = struct{}{}
	}
	out := make([]FileRef, 0, len(c.Files))
	for _, ref := range c.Files {
		if _, ok := drop[ref]; ok {
			continue
		}
		out = append(out, ref)
	}
	return Context{Files: out}
}
