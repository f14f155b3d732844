package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func varSet(vs ...int) map[int]struct{} {
	s := make(map[int]struct{}, len(vs))
	for _, v := range vs {
		s[v] = struct{}{}
	}
	return s
}

func TestReadJoinTreeSingleCandidate(t *testing.T) {
	// 2 clauses (terminals 0,1), 2 nonterminals (indices 2,3 => 1-based 3,4)
	src := "p jt 3 2 4\n3 1 2 e 2\n4 3 e 1 3\n=\n"
	clauseVars := []map[int]struct{}{varSet(1, 2), varSet(2, 3)}
	apparent := varSet(1, 2, 3)

	p := NewProcessor(Options{})
	tree, err := p.ReadJoinTree(strings.NewReader(src), clauseVars, apparent)
	require.NoError(t, err)
	require.Equal(t, 3, tree.Width)
}

func TestReadJoinTreeKeepsSmallerWidthCandidate(t *testing.T) {
	clauseVars := []map[int]struct{}{varSet(1, 2), varSet(2, 3)}
	apparent := varSet(1, 2, 3)

	// First candidate joins both clauses at once (width 3); the second
	// projects var 1 away before joining and reaches width 2, so it must
	// replace the backup.
	src := "" +
		"p jt 3 2 4\n3 1 2 e 2\n4 3 e 1 3\n=\n" +
		"p jt 3 2 4\n3 1 e 1\n4 3 2 e 2 3\n=\n"

	p := NewProcessor(Options{})
	tree, err := p.ReadJoinTree(strings.NewReader(src), clauseVars, apparent)
	require.NoError(t, err)
	require.Equal(t, 2, tree.Width)
}

func TestReadJoinTreeHonorsCommentAnnotations(t *testing.T) {
	clauseVars := []map[int]struct{}{varSet(1, 2), varSet(2, 3)}
	apparent := varSet(1, 2, 3)

	// pid far above any real pid_max so the end-of-stream kill is a no-op
	src := "c pid 999999999\n" +
		"p jt 3 2 4\nc joinTreeWidth 7\nc seconds 0.25\n3 1 2 e 2\n4 3 e 1 3\n=\n"

	p := NewProcessor(Options{})
	tree, err := p.ReadJoinTree(strings.NewReader(src), clauseVars, apparent)
	require.NoError(t, err)
	require.Equal(t, 7, tree.Width, "planner-reported width wins over the recomputed one")
	require.InDelta(t, 0.25, tree.PlannerDurationSecs, 1e-9)
}

func TestReadJoinTreeNoCandidateIsError(t *testing.T) {
	clauseVars := []map[int]struct{}{varSet(1)}
	apparent := varSet(1)
	p := NewProcessor(Options{})
	_, err := p.ReadJoinTree(strings.NewReader(""), clauseVars, apparent)
	require.Error(t, err)
}
