package scan

import "strings"

// dedupeRoles collapses generic role-based character candidates ("the
// Gardener") against more specific named characters observed in the same
// scan. A generic candidate's role token is its final word.
//
// Drop rules, in order:
//  1. The role token leads another character candidate ("Gardener Hollis"
//     means a named character already holds that role).
//  2. A fully-named character candidate exists in the scan and the role
//     token is alias-prone (roles commonly used as epithets for an
//     already-introduced character).
//
// Survivors keep exactly one representative per role token; the longest
// surface form wins. Named candidates pass through untouched.
func (e *Engine) dedupeRoles(characters []*candidate) []*candidate {
	if len(characters) == 0 {
		return characters
	}

	generic := func(c *candidate) bool {
		return e.heur.IsGenericRole != nil && e.heur.IsGenericRole(c.Norm)
	}

	leadingRoles := make(map[string]bool)
	hasNamed := false
	for _, c := range characters {
		if generic(c) {
			continue
		}
		hasNamed = true
		if len(c.Words) >= 2 {
			leadingRoles[strings.ToLower(c.Words[0])] = true
		}
	}

	out := make([]*candidate, 0, len(characters))
	byRole := make(map[string]int) // role token -> index in out
	for _, c := range characters {
		if !generic(c) {
			out = append(out, c)
			continue
		}

		role := strings.ToLower(c.Words[len(c.Words)-1])
		if leadingRoles[role] {
			continue
		}
		if hasNamed && e.heur.IsAliasProne != nil && e.heur.IsAliasProne(role) {
			continue
		}

		if i, ok := byRole[role]; ok {
			if len(c.Norm) > len(out[i].Norm) {
				out[i] = c
			}
			continue
		}
		byRole[role] = len(out)
		out = append(out, c)
	}
	return out
}
