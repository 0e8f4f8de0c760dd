package artifact

import (
	"errors"
	"fmt"
)

const leafNode = -1

// Tree is a fitted scikit-learn regression tree in its array form
type Tree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

func (t *Tree) validate(numFeatures int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("tree arrays differ in length (%d nodes)", n)
	}
	for node := 0; node < n; node++ {
		left, right := t.ChildrenLeft[node], t.ChildrenRight[node]
		if left == leafNode || right == leafNode {
			if left != right {
				return fmt.Errorf("node %d has a single child", node)
			}
			continue
		}
		// children always come after their parent, which also rules out cycles
		if left <= node || left >= n || right <= node || right >= n {
			return fmt.Errorf("node %d has out-of-range children (%d, %d)", node, left, right)
		}
		if f := t.Feature[node]; f < 0 || f >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d, have %d columns", node, f, numFeatures)
		}
	}
	return nil
}

// predict walks the tree. Inputs are float32 and thresholds float64, as in scikit-learn.
func (t *Tree) predict(x []float32) float64 {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		if float64(x[t.Feature[node]]) <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// Forest averages the leaf values of its trees
type Forest struct {
	Trees []Tree
}

func (f *Forest) validate(numFeatures int) error {
	if len(f.Trees) == 0 {
		return errors.New("random forest has no trees")
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(numFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (f *Forest) PredictPrice(values []float64) float64 {
	x := make([]float32, len(values))
	for i, v := range values {
		x[i] = float32(v)
	}

	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees))
}
