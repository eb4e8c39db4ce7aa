package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/trees"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotFitted    = errors.New("decision tree is not fitted")
	ErrMissingValue = errors.New("feature value is missing")
)

const criterion = "gini"

// Parameters configure tree growth. Zero values mean no limit.
type Parameters struct {
	MaxDepth     int `yaml:"max_depth"`
	MaxLeafNodes int `yaml:"max_leaf_nodes"`
}

// DecisionTree wraps the golearn CART classifier. Classes are integer
// indexes, features are the columns of a dense matrix.
type DecisionTree struct {
	Parameters
	NumFeatures int
	NumClasses  int

	Classifier *trees.CARTDecisionTreeClassifier

	// Constant is set when no split separates the training data; every
	// prediction is then Majority.
	Constant bool
	Majority int
}

func NewDecisionTree(p Parameters) *DecisionTree {
	return &DecisionTree{Parameters: p}
}

func (t *DecisionTree) Fitted() bool {
	return t.Classifier != nil && t.Classifier.RootNode != nil
}

// Fit trains the tree on X (one sample per row) and class indexes y.
func (t *DecisionTree) Fit(X mat.Matrix, y []int) error {
	r, c := X.Dims()
	if r != len(y) {
		return fmt.Errorf("feature rows (%d) and targets (%d) differ in length", r, len(y))
	}
	if r == 0 || c == 0 {
		return fmt.Errorf("cannot fit a tree on an empty %dx%d matrix", r, c)
	}
	numClasses := 0
	for _, class := range y {
		if class < 0 {
			return fmt.Errorf("invalid class index %d", class)
		}
		if class+1 > numClasses {
			numClasses = class + 1
		}
	}

	inst, err := instances(X, y)
	if err != nil {
		return err
	}
	labels := make([]int64, numClasses)
	for i := range labels {
		labels[i] = int64(i)
	}
	maxDepth := int64(-1)
	if t.MaxDepth > 0 {
		maxDepth = int64(t.MaxDepth)
	}

	classifier := trees.NewDecisionTreeClassifier(criterion, maxDepth, labels)
	if err := classifier.Fit(inst); err != nil {
		return fmt.Errorf("error fitting decision tree: %w", err)
	}
	t.NumFeatures = c
	t.NumClasses = numClasses
	t.Classifier = classifier
	t.Majority = majority(y, numClasses)
	left, _ := partition(X, allRows(r), int(classifier.RootNode.Feature), classifier.RootNode.Threshold)
	t.Constant = len(left) == 0 || len(left) == r
	t.prune(X)
	return nil
}

// Predict returns the class index of every row of X.
func (t *DecisionTree) Predict(X mat.Matrix) ([]int, error) {
	if !t.Fitted() {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != t.NumFeatures {
		return nil, fmt.Errorf("tree expects %d features, got %d", t.NumFeatures, c)
	}
	result := make([]int, r)
	if t.Constant {
		if err := checkMissing(X); err != nil {
			return nil, err
		}
		for i := range result {
			result[i] = t.Majority
		}
		return result, nil
	}
	inst, err := instances(X, nil)
	if err != nil {
		return nil, err
	}
	for i, class := range t.Classifier.Predict(inst) {
		result[i] = int(class)
	}
	return result, nil
}

// instances converts X, and y when given, into golearn float attributes.
// y becomes the class attribute.
func instances(X mat.Matrix, y []int) (*base.DenseInstances, error) {
	if err := checkMissing(X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, c)
	for j := range specs {
		specs[j] = inst.AddAttribute(base.NewFloatAttribute(fmt.Sprintf("X[%d]", j)))
	}
	var classAttr base.Attribute
	var classSpec base.AttributeSpec
	if y != nil {
		classAttr = base.NewFloatAttribute("class")
		classSpec = inst.AddAttribute(classAttr)
	}
	if err := inst.Extend(r); err != nil {
		return nil, fmt.Errorf("error allocating instances: %w", err)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			inst.Set(specs[j], i, base.PackFloatToBytes(X.At(i, j)))
		}
		if y != nil {
			inst.Set(classSpec, i, base.PackFloatToBytes(float64(y[i])))
		}
	}
	if y != nil {
		if err := inst.AddClassAttribute(classAttr); err != nil {
			return nil, fmt.Errorf("error setting class attribute: %w", err)
		}
	}
	return inst, nil
}

func checkMissing(X mat.Matrix) error {
	r, c := X.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(X.At(i, j)) {
				return fmt.Errorf("row %d column %d: %w", i, j, ErrMissingValue)
			}
		}
	}
	return nil
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// majority returns the most frequent class, lowest index on ties.
func majority(y []int, numClasses int) int {
	counts := make([]int, numClasses)
	best := 0
	for _, class := range y {
		counts[class]++
	}
	for i := range counts {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

// stackOf starts a work list holding first. It lets the walks below keep
// golearn's node pointers without naming their type.
func stackOf[T any](first T) []T {
	return []T{first}
}

// prune cuts branches breadth first so that split nodes sit above MaxDepth
// and the tree has at most MaxLeafNodes leaves. Branches whose rule does not
// separate the training rows reaching them are cut as well. A cut branch
// predicts the label golearn recorded for its side of the parent split.
func (t *DecisionTree) prune(X mat.Matrix) {
	if t.Constant {
		return
	}
	r, _ := X.Dims()
	queue := stackOf(t.Classifier.RootNode)
	depths := []int{0}
	rows := [][]int{allRows(r)}
	leaves := 2
	keep := func(depth int, subset []int, feature int64, threshold float64) bool {
		if t.MaxDepth > 0 && depth >= t.MaxDepth {
			return false
		}
		if t.MaxLeafNodes > 0 && leaves >= t.MaxLeafNodes {
			return false
		}
		left, _ := partition(X, subset, int(feature), threshold)
		return len(left) > 0 && len(left) < len(subset)
	}
	for len(queue) > 0 {
		n, depth, subset := queue[0], depths[0], rows[0]
		queue, depths, rows = queue[1:], depths[1:], rows[1:]
		left, right := partition(X, subset, int(n.Feature), n.Threshold)
		if n.Left != nil {
			if keep(depth+1, left, n.Left.Feature, n.Left.Threshold) {
				leaves++
				queue = append(queue, n.Left)
				depths = append(depths, depth+1)
				rows = append(rows, left)
			} else {
				n.Left = nil
			}
		}
		if n.Right != nil {
			if keep(depth+1, right, n.Right.Feature, n.Right.Threshold) {
				leaves++
				queue = append(queue, n.Right)
				depths = append(depths, depth+1)
				rows = append(rows, right)
			} else {
				n.Right = nil
			}
		}
	}
}

// partition splits rows by the rule x[feature] < threshold.
func partition(X mat.Matrix, rows []int, feature int, threshold float64) (left, right []int) {
	_, c := X.Dims()
	for _, i := range rows {
		if feature >= 0 && feature < c && X.At(i, feature) < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

const leaf = -1

// Node is a flat view of one node of the fitted tree. Rows with
// x[Feature] < Threshold go Left. Leaves have Left and Right set to -1 and
// carry the predicted Class.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Class     int
	Depth     int
}

func (n *Node) IsLeaf() bool {
	return n.Left == leaf
}

// Nodes flattens the tree breadth first, the root at index 0.
func (t *DecisionTree) Nodes() []Node {
	if !t.Fitted() {
		return nil
	}
	if t.Constant {
		return []Node{{Left: leaf, Right: leaf, Class: t.Majority}}
	}
	nodes := []Node{{}}
	queue := stackOf(t.Classifier.RootNode)
	at := []int{0}
	for len(queue) > 0 {
		n, i := queue[0], at[0]
		queue, at = queue[1:], at[1:]

		depth := nodes[i].Depth + 1
		nodes[i].Feature = int(n.Feature)
		nodes[i].Threshold = n.Threshold

		nodes[i].Left = len(nodes)
		nodes = append(nodes, Node{Left: leaf, Right: leaf, Class: int(n.LeftLabel), Depth: depth})
		if n.Left != nil {
			queue = append(queue, n.Left)
			at = append(at, nodes[i].Left)
		}
		nodes[i].Right = len(nodes)
		nodes = append(nodes, Node{Left: leaf, Right: leaf, Class: int(n.RightLabel), Depth: depth})
		if n.Right != nil {
			queue = append(queue, n.Right)
			at = append(at, nodes[i].Right)
		}
	}
	return nodes
}

func (t *DecisionTree) LeafCount() int {
	count := 0
	for _, n := range t.Nodes() {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

// Depth is the number of split levels on the longest path.
func (t *DecisionTree) Depth() int {
	depth := 0
	for _, n := range t.Nodes() {
		if n.Depth > depth {
			depth = n.Depth
		}
	}
	return depth
}

// SplitCounts returns how many split nodes test each feature.
func (t *DecisionTree) SplitCounts() []int {
	counts := make([]int, t.NumFeatures)
	for _, n := range t.Nodes() {
		if !n.IsLeaf() && n.Feature < len(counts) {
			counts[n.Feature]++
		}
	}
	return counts
}
