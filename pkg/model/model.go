package model

// DecisionTreeClassifier is the only supported model name.
const DecisionTreeClassifier = "dtc"

type Model struct {
	Name       string
	Parameters Parameters
	MetaData   *Metadata
	Tree       *DecisionTree
}
