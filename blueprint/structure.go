package blueprint

import (
	"strings"

	"github.com/grailbio/base/errors"
)

// atomKind tags the closed sum of structure-grammar atoms.
type atomKind int

const (
	atomLiteral atomKind = iota
	atomRepeat
	atomOptional
	atomSwap
)

// atom is one parsed unit of a locus structure string.
type atom struct {
	kind        atomKind
	literal     string // literal, repeat motif, or optional sequence
	altLiteral  string // swap's second allele
	unskippable bool   // repeat '+' vs '*'
}

func (a atom) isVariant() bool { return a.kind != atomLiteral }

// skippable reports whether the atom can be bypassed entirely when
// threading edges through the graph (optional atoms, and '*'-repeats).
func (a atom) skippable() bool {
	switch a.kind {
	case atomOptional:
		return true
	case atomRepeat:
		return !a.unskippable
	default:
		return false
	}
}

const iupac = "ACGTBDHKMNSRVWY"

func isIUPAC(b byte) bool {
	return strings.IndexByte(iupac, b) >= 0
}

// parseStructure tokenizes a structure string per the grammar:
//
//	structure  ::= atom { atom }
//	atom       ::= literal | repeat | optional | swap
//	literal    ::= [ACGTBDHKMNSRVWY]+
//	repeat     ::= '(' literal ')' ('*' | '+')
//	optional   ::= '(' literal ')?'
//	swap       ::= '(' literal '|' literal ')'
func parseStructure(structure string) ([]atom, error) {
	var atoms []atom
	i, n := 0, len(structure)
	for i < n {
		c := structure[i]
		switch {
		case c == '(':
			close := strings.IndexByte(structure[i:], ')')
			if close < 0 {
				return nil, errors.E("structure: unterminated '(' at offset", i)
			}
			body := structure[i+1 : i+close]
			i += close + 1
			if body == "" {
				return nil, errors.E("structure: empty parenthesized group at offset", i)
			}
			if parts := strings.SplitN(body, "|", 2); len(parts) == 2 {
				if !validLiteral(parts[0]) || !validLiteral(parts[1]) {
					return nil, errors.E("structure: invalid swap literal in", body)
				}
				atoms = append(atoms, atom{kind: atomSwap, literal: parts[0], altLiteral: parts[1]})
				continue
			}
			if !validLiteral(body) {
				return nil, errors.E("structure: invalid literal in group", body)
			}
			if i >= n {
				return nil, errors.E("structure: group", body, "missing '*'/'+'/'?' suffix")
			}
			switch structure[i] {
			case '*':
				atoms = append(atoms, atom{kind: atomRepeat, literal: body, unskippable: false})
				i++
			case '+':
				atoms = append(atoms, atom{kind: atomRepeat, literal: body, unskippable: true})
				i++
			case '?':
				atoms = append(atoms, atom{kind: atomOptional, literal: body})
				i++
			default:
				return nil, errors.E("structure: group", body, "has invalid suffix", string(structure[i]))
			}
		case isIUPAC(c):
			start := i
			for i < n && isIUPAC(structure[i]) {
				i++
			}
			atoms = append(atoms, atom{kind: atomLiteral, literal: structure[start:i]})
		default:
			return nil, errors.E("structure: unexpected character", string(c), "at offset", i)
		}
	}
	if len(atoms) < 3 {
		return nil, errors.E("structure: must have a left flank, at least one variant atom, and a right flank")
	}
	if atoms[0].kind != atomLiteral {
		return nil, errors.E("structure: first atom must be a literal (left flank)")
	}
	if atoms[len(atoms)-1].kind != atomLiteral {
		return nil, errors.E("structure: last atom must be a literal (right flank)")
	}
	nVariants := 0
	for _, a := range atoms {
		if a.isVariant() {
			nVariants++
		}
	}
	if nVariants < 1 {
		return nil, errors.E("structure: must contain at least one variant atom")
	}
	return atoms, nil
}

func validLiteral(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIUPAC(s[i]) {
			return false
		}
	}
	return true
}
