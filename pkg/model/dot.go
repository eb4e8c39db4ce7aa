package model

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"

	"ckml/pkg/features"
)

const graphName = "Tree"

// Dot renders the fitted tree as a Graphviz digraph. Split nodes are labelled
// with keys when a key exists for the feature index, otherwise with X[i].
// Splits on categorical columns of conv also list the values sent left.
func (t *DecisionTree) Dot(keys []string, conv *features.Conversion) (string, error) {
	if !t.Fitted() {
		return "", ErrNotFitted
	}
	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	nodes := t.Nodes()
	for i := range nodes {
		attrs := map[string]string{
			"shape": "box",
			"label": strconv.Quote(nodeLabel(&nodes[i], keys, conv)),
		}
		if err := g.AddNode(graphName, strconv.Itoa(i), attrs); err != nil {
			return "", fmt.Errorf("error adding node %d: %w", i, err)
		}
	}
	for i := range nodes {
		n := &nodes[i]
		if n.IsLeaf() {
			continue
		}
		for _, child := range []int{n.Left, n.Right} {
			attrs := map[string]string{}
			if i == 0 {
				attrs["label"] = strconv.Quote(strconv.FormatBool(child == n.Left))
			}
			if err := g.AddEdge(strconv.Itoa(i), strconv.Itoa(child), true, attrs); err != nil {
				return "", fmt.Errorf("error adding edge %d -> %d: %w", i, child, err)
			}
		}
	}
	return g.String(), nil
}

// WriteDot writes the Graphviz rendering of the tree to w.
func (t *DecisionTree) WriteDot(w io.Writer, keys []string, conv *features.Conversion) error {
	dot, err := t.Dot(keys, conv)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, dot)
	return err
}

func nodeLabel(n *Node, keys []string, conv *features.Conversion) string {
	if n.IsLeaf() {
		return fmt.Sprintf("class = %d", n.Class)
	}
	name := fmt.Sprintf("X[%d]", n.Feature)
	if n.Feature < len(keys) && keys[n.Feature] != "" {
		name = keys[n.Feature]
	}
	label := fmt.Sprintf("%s < %s", name, strconv.FormatFloat(n.Threshold, 'g', 4, 64))
	if values := leftValues(conv, n.Feature, n.Threshold); len(values) > 0 {
		label += "\n{" + strings.Join(values, ", ") + "}"
	}
	return label
}

// leftValues decodes the categorical values of column whose surrogate falls
// below threshold.
func leftValues(conv *features.Conversion, column int, threshold float64) []string {
	if conv == nil {
		return nil
	}
	var values []string
	for s := 0.0; s < threshold; s++ {
		value, ok := conv.Decode(column, s)
		if !ok {
			break
		}
		values = append(values, value)
	}
	return values
}
