package ussd

import "fmt"

//Edge is one record of the static menu hierarchy
//Owner groups the menus of one feature (a flow or a static sub-tree) so the
//dispatcher can tell when Back crosses a feature boundary
type Edge struct {
	Menu   string
	Parent string
	Owner  string
}

//Tree is the single source of truth for Back/Home navigation
//both Back and the error fallback resolve through it
type Tree struct {
	root   string
	parent map[string]string
	owner  map[string]string
}

func NewTree(root string) *Tree {
	return &Tree{
		root:   root,
		parent: map[string]string{},
		owner:  map[string]string{root: root},
	}
}

//Add() panics on a duplicate menu key: the tree is built once at startup
//and a duplicate is a programming error, not a runtime condition
func (t *Tree) Add(edges ...Edge) *Tree {
	for _, e := range edges {
		if _, ok := t.parent[e.Menu]; ok {
			panic(fmt.Sprintf("duplicate navigation edge for menu(%s)", e.Menu))
		}
		t.parent[e.Menu] = e.Parent
		t.owner[e.Menu] = e.Owner
	}
	return t
}

func (t *Tree) Root() string { return t.root }

//ParentOf() is total: an unknown menu key resolves to the root so that
//Back never dead-ends
func (t *Tree) ParentOf(menu string) string {
	if p, ok := t.parent[menu]; ok {
		return p
	}
	return t.root
}

//OwnerOf() returns the feature that owns a menu (root owns itself and
//anything unknown)
func (t *Tree) OwnerOf(menu string) string {
	if o, ok := t.owner[menu]; ok {
		return o
	}
	return t.root
}
