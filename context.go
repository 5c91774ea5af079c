package dryml

// defScope is threaded by value through the generator. While the children
// of a def are generated, defName holds the names of all enclosing defs
// joined with '_'; it disambiguates the saved tagbody locals of nested
// redefinitions. Leaving a def's subtree restores the caller's value.
type defScope struct {
	defName string
}

// enter returns the scope of the children of the def named tag.
func (s defScope) enter(tag string) defScope {
	if s.defName == "" {
		return defScope{defName: tag}
	}
	return defScope{defName: s.defName + "_" + tag}
}

func (s defScope) inDef() bool {
	return s.defName != ""
}
