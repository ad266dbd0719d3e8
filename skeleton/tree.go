package skeleton

import (
	"github.com/binzume/lolmodelconv/lolerr"
	"github.com/pkg/errors"
)

type Node struct {
	Bone     *Bone
	Children []*Node
}

// Trees returns one tree per root bone. Children are ordered by index.
func (s *Skeleton) Trees() ([]*Node, error) {
	if _, err := s.Order(); err != nil {
		return nil, err
	}
	var trees []*Node
	for i, b := range s.Bones {
		if b.IsRoot() {
			trees = append(trees, s.subtree(i))
		}
	}
	if len(trees) == 0 {
		return nil, errors.Wrap(lolerr.ErrInconsistentTopology, "root bone not found")
	}
	return trees, nil
}

func (s *Skeleton) subtree(i int) *Node {
	n := &Node{Bone: s.Bones[i]}
	for _, c := range s.children[i] {
		n.Children = append(n.Children, s.subtree(c))
	}
	return n
}

// JointOrder returns bone indices in depth-first order over all trees.
func (s *Skeleton) JointOrder() ([]int, error) {
	trees, err := s.Trees()
	if err != nil {
		return nil, err
	}
	var order []int
	var walk func(n *Node)
	walk = func(n *Node) {
		order = append(order, n.Bone.Index)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, t := range trees {
		walk(t)
	}
	return order, nil
}

// NameArrays returns the depth-first bone names of each tree, keyed by
// root name.
func (s *Skeleton) NameArrays() (map[string][]string, error) {
	trees, err := s.Trees()
	if err != nil {
		return nil, err
	}
	names := map[string][]string{}
	var walk func(n *Node, dst []string) []string
	walk = func(n *Node, dst []string) []string {
		dst = append(dst, n.Bone.Name)
		for _, c := range n.Children {
			dst = walk(c, dst)
		}
		return dst
	}
	for _, t := range trees {
		names[t.Bone.Name] = walk(t, nil)
	}
	return names, nil
}

// BoneIndex looks a bone up by name. With duplicated names the last bone wins.
func (s *Skeleton) BoneIndex(name string) (int, bool) {
	for i := len(s.Bones) - 1; i >= 0; i-- {
		if s.Bones[i].Name == name {
			return i, true
		}
	}
	return -1, false
}
