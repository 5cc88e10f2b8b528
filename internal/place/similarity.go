// Package place orders windows so that related ones end up next to each
// other when a layout fills a spiral grid from the center outwards.
package place

import (
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
)

// Similarity scores a pair of items. ok is false when the pair cannot be
// compared.
type Similarity interface {
	Similarity(i, j int) (sim float64, ok bool)
}

// TokenSimilarity compares windows by the words in their titles and
// classes: the cosine similarity of the title token bags and of the class
// token bags, averaged.
type TokenSimilarity struct {
	names   [][]float64
	classes [][]float64
}

// NewTokenSimilarity builds bags from two parallel label lists. Missing
// classes are treated as empty.
func NewTokenSimilarity(names, classes []string) *TokenSimilarity {
	cls := make([]string, len(names))
	copy(cls, classes)
	return &TokenSimilarity{
		names:   bagVectors(names),
		classes: bagVectors(cls),
	}
}

func (t *TokenSimilarity) Similarity(i, j int) (float64, bool) {
	ni, nj := t.names[i], t.names[j]
	ci, cj := t.classes[i], t.classes[j]
	if isZero(ni) && isZero(ci) || isZero(nj) && isZero(cj) {
		return 0, false
	}
	return 0.5*cosine(ni, nj) + 0.5*cosine(ci, cj), true
}

// Tokenize lowercases s and splits it on anything that is not a letter or
// digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// bagVectors maps each label to a term-count vector over the labels'
// shared vocabulary.
func bagVectors(labels []string) [][]float64 {
	vocab := make(map[string]int)
	toks := make([][]string, len(labels))
	for i, l := range labels {
		toks[i] = Tokenize(l)
		for _, tok := range toks[i] {
			if _, ok := vocab[tok]; !ok {
				vocab[tok] = len(vocab)
			}
		}
	}
	out := make([][]float64, len(labels))
	for i := range labels {
		v := make([]float64, len(vocab))
		for _, tok := range toks[i] {
			v[vocab[tok]]++
		}
		out[i] = v
	}
	return out
}

func isZero(v []float64) bool {
	return len(v) == 0 || floats.Norm(v, 2) == 0
}

func cosine(a, b []float64) float64 {
	if isZero(a) || isZero(b) {
		return 0
	}
	return floats.Dot(a, b) / (floats.Norm(a, 2) * floats.Norm(b, 2))
}

// ParentSimilarity relates windows through the window each one was launched
// from. parents[i] is the index of the launching window or -1.
type ParentSimilarity struct {
	parents []int
}

// NewParentSimilarity returns a ParentSimilarity over parents.
func NewParentSimilarity(parents []int) *ParentSimilarity {
	return &ParentSimilarity{parents: parents}
}

// Similarity is 1/(1+hops) where hops is the length of the path between i
// and j through their nearest common ancestor.
func (p *ParentSimilarity) Similarity(i, j int) (float64, bool) {
	depth := make(map[int]int)
	for d, a := range p.ancestors(i) {
		depth[a] = d
	}
	for d, a := range p.ancestors(j) {
		if di, ok := depth[a]; ok {
			return 1 / float64(1+di+d), true
		}
	}
	return 0, false
}

// ancestors returns i followed by its parent chain, stopping at a root, an
// out-of-range index, or a cycle.
func (p *ParentSimilarity) ancestors(i int) []int {
	seen := make(map[int]bool)
	var chain []int
	for i >= 0 && i < len(p.parents) && !seen[i] {
		seen[i] = true
		chain = append(chain, i)
		i = p.parents[i]
	}
	return chain
}
