package model

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"ckml/pkg/features"
	"ckml/pkg/table"
)

var (
	num = table.Num
	str = table.Str
)

func dense(rows [][]float64) *mat.Dense {
	data := make([]float64, 0)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), len(rows[0]), data)
}

// layered needs a split on feature 0 and then one on feature 1.
var (
	layeredX = [][]float64{{0, 5}, {0, 6}, {1, 5}, {1, 5}, {1, 6}, {1, 6}}
	layeredY = []int{0, 0, 1, 1, 2, 2}
)

func TestDecisionTree_FitPredict(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []int{0, 0, 1, 1}

	tree := NewDecisionTree(Parameters{})
	require.NoError(t, tree.Fit(dense(x), y))
	require.True(t, tree.Fitted())
	require.False(t, tree.Constant)

	predicted, err := tree.Predict(dense(x))
	require.NoError(t, err)
	require.Equal(t, y, predicted)

	root := tree.Nodes()[0]
	require.False(t, root.IsLeaf())
	require.Equal(t, 0, root.Feature)
	require.True(t, root.Threshold > 2 && root.Threshold <= 3)
	require.Equal(t, []int{1}, tree.SplitCounts())
}

func TestDecisionTree_Layered(t *testing.T) {
	tree := NewDecisionTree(Parameters{})
	require.NoError(t, tree.Fit(dense(layeredX), layeredY))
	predicted, err := tree.Predict(dense(layeredX))
	require.NoError(t, err)
	require.Equal(t, layeredY, predicted)
	require.Equal(t, 3, tree.LeafCount())
	require.Equal(t, 2, tree.Depth())
	require.Equal(t, []int{1, 1}, tree.SplitCounts())
}

func TestDecisionTree_Limits(t *testing.T) {
	tests := []struct {
		params Parameters
		leaves int
		depth  int
	}{
		{params: Parameters{MaxDepth: 1}, leaves: 2, depth: 1},
		{params: Parameters{MaxLeafNodes: 2}, leaves: 2, depth: 1},
		{params: Parameters{MaxDepth: 5, MaxLeafNodes: 10}, leaves: 3, depth: 2},
	}
	for _, tt := range tests {
		tree := NewDecisionTree(tt.params)
		require.NoError(t, tree.Fit(dense(layeredX), layeredY))
		require.Equal(t, tt.leaves, tree.LeafCount())
		require.Equal(t, tt.depth, tree.Depth())

		predicted, err := tree.Predict(dense(layeredX))
		require.NoError(t, err)
		require.Equal(t, layeredY[:2], predicted[:2])
	}
}

func TestDecisionTree_NoSeparatingSplit(t *testing.T) {
	tree := NewDecisionTree(Parameters{})
	require.NoError(t, tree.Fit(dense([][]float64{{1}, {1}, {1}}), []int{0, 0, 1}))
	require.True(t, tree.Constant)
	require.Equal(t, 1, len(tree.Nodes()))
	require.Equal(t, 1, tree.LeafCount())

	predicted, err := tree.Predict(dense([][]float64{{1}, {7}}))
	require.NoError(t, err)
	require.Equal(t, []int{0, 0}, predicted)
}

func TestDecisionTree_PureTarget(t *testing.T) {
	tree := NewDecisionTree(Parameters{})
	require.NoError(t, tree.Fit(dense([][]float64{{1}, {2}}), []int{1, 1}))
	predicted, err := tree.Predict(dense([][]float64{{1}, {2}}))
	require.NoError(t, err)
	require.Equal(t, []int{1, 1}, predicted)
}

func TestDecisionTree_MissingValues(t *testing.T) {
	tree := NewDecisionTree(Parameters{})
	err := tree.Fit(dense([][]float64{{math.NaN()}, {1}, {math.NaN()}, {1}}), []int{0, 1, 0, 1})
	require.True(t, errors.Is(err, ErrMissingValue))
	require.Contains(t, err.Error(), "row 0 column 0")
	require.False(t, tree.Fitted())

	require.NoError(t, tree.Fit(dense([][]float64{{1}, {2}}), []int{0, 1}))
	_, err = tree.Predict(dense([][]float64{{1}, {math.NaN()}}))
	require.True(t, errors.Is(err, ErrMissingValue))
	require.Contains(t, err.Error(), "row 1 column 0")
}

func TestDecisionTree_Errors(t *testing.T) {
	tree := NewDecisionTree(Parameters{})
	_, err := tree.Predict(dense([][]float64{{1}}))
	require.True(t, errors.Is(err, ErrNotFitted))

	require.Error(t, tree.Fit(dense([][]float64{{1}, {2}}), []int{0}))
	require.Error(t, tree.Fit(dense([][]float64{{1}}), []int{-1}))

	require.NoError(t, tree.Fit(dense([][]float64{{1}, {2}}), []int{0, 1}))
	_, err = tree.Predict(dense([][]float64{{1, 2}}))
	require.Error(t, err)
}

func TestDecisionTree_Dot(t *testing.T) {
	tree := NewDecisionTree(Parameters{})
	require.NoError(t, tree.Fit(dense([][]float64{{1}, {2}, {3}}), []int{0, 1, 1}))

	b := &bytes.Buffer{}
	require.NoError(t, tree.WriteDot(b, []string{"##characteristics#run#time"}, nil))
	out := b.String()
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), "digraph Tree"))
	require.Contains(t, out, "##characteristics#run#time < ")
	require.Contains(t, out, "class = 0")
	require.Contains(t, out, "0->1")

	_, err := NewDecisionTree(Parameters{}).Dot(nil, nil)
	require.True(t, errors.Is(err, ErrNotFitted))
}

func TestDecisionTree_DotCategorical(t *testing.T) {
	encoding, err := features.Encode(table.Table{{str("gcc")}, {str("llvm")}, {str("icc")}})
	require.NoError(t, err)
	tree := NewDecisionTree(Parameters{})
	require.NoError(t, tree.Fit(encoding.Dense(), []int{0, 1, 1}))

	out, err := tree.Dot([]string{"compiler"}, encoding.Conversion)
	require.NoError(t, err)
	require.Contains(t, out, "{gcc}")
	require.NotContains(t, out, "llvm")
}

func TestClasses(t *testing.T) {
	classes := NewClasses()
	require.Equal(t, 0, classes.Index(str("fast")))
	require.Equal(t, 1, classes.Index(num(2)))
	require.Equal(t, 0, classes.Index(str("fast")))
	require.Equal(t, 2, classes.Size())
	require.Equal(t, num(2), classes.Cell(1))
}
