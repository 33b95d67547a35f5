package ussd

import (
	"fmt"
	"strings"
)

//canonical display order of option digits: 1..9, then 0, then 00
//rendering follows this order regardless of the order options were defined in
var digitOrder = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "00"}

const navFooter = "0:Back 00:Home 000:Exit"

//Render() formats a menu node as the user will see it
//prefix (e.g. an inline validation error) goes on its own line above the title
func Render(n *Node, prefix string) string {
	b := strings.Builder{}
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString("\n")
	}
	b.WriteString(n.Title)
	for _, d := range digitOrder {
		if opt, ok := n.option(d); ok {
			fmt.Fprintf(&b, "\n%s. %s", d, opt.Label)
		}
	}
	if n.Type != NodeTerminal {
		b.WriteString("\n")
		b.WriteString(navFooter)
	}
	return b.String()
}

//RenderText() formats a dynamic prompt (flow steps build their text at
//runtime from session state) with the same error-prefix and footer rules
func RenderText(text string, prefix string) string {
	b := strings.Builder{}
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString("\n")
	}
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(navFooter)
	return b.String()
}
