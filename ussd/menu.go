package ussd

import (
	"context"
	"fmt"
)

type NodeType int

const (
	NodeMenu     NodeType = iota //interactive: options route to other menus
	NodeTerminal                 //ends the dialog
)

func (t NodeType) String() string {
	switch t {
	case NodeMenu:
		return "menu"
	case NodeTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

//Option is one selectable line of a menu node
//Digit is the key the user must press, Next the menu it routes to
type Option struct {
	Digit string
	Label string
	Next  string
}

//Node is the static definition of one menu screen
type Node struct {
	Key     string
	Title   string
	Type    NodeType
	Options []Option
}

func NewMenu(key string, title string) *Node {
	return &Node{Key: key, Title: title, Type: NodeMenu}
}

func NewTerminal(key string, title string) *Node {
	return &Node{Key: key, Title: title, Type: NodeTerminal}
}

func (n *Node) With(digit string, label string, next string) *Node {
	for _, o := range n.Options {
		if o.Digit == digit {
			panic(fmt.Sprintf("menu(%s) duplicate option digit(%s)", n.Key, digit))
		}
	}
	n.Options = append(n.Options, Option{Digit: digit, Label: label, Next: next})
	return n
}

func (n *Node) option(digit string) (Option, bool) {
	for _, o := range n.Options {
		if o.Digit == digit {
			return o, true
		}
	}
	return Option{}, false
}

//Catalog maps a menu key to its static definition
type Catalog map[string]*Node

func (c Catalog) Add(nodes ...*Node) Catalog {
	for _, n := range nodes {
		if _, ok := c[n.Key]; ok {
			panic(fmt.Sprintf("duplicate menu key(%s)", n.Key))
		}
		c[n.Key] = n
	}
	return c
}

//MenuHandler() returns the generic handler for a static menu node:
//empty input shows the menu, a digit routes to the selected option and
//anything else re-shows the menu with an error line
func MenuHandler(n *Node) Handler {
	return func(ctx context.Context, req *Request, s *Session) (Directive, error) {
		if req.Input == "" {
			return Prompt(Render(n, "")), nil
		}
		if opt, ok := n.option(req.Input); ok {
			return Goto(opt.Next), nil
		}
		return Prompt(Render(n, MsgInvalidChoice)), nil
	}
}
