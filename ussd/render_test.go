package ussd_test

import (
	"testing"

	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
	"github.com/stretchr/testify/assert"
)

func TestRenderDigitOrder(t *testing.T) {
	//options defined out of order must still render 1..9 then 0 then 00
	n := ussd.NewMenu("m", "Pick one").
		With("2", "Two", "b").
		With("00", "More", "e").
		With("0", "Zero", "d").
		With("1", "One", "a").
		With("9", "Nine", "c")

	want := "Pick one\n" +
		"1. One\n" +
		"2. Two\n" +
		"9. Nine\n" +
		"0. Zero\n" +
		"00. More\n" +
		"0:Back 00:Home 000:Exit"
	assert.Equal(t, want, ussd.Render(n, ""))
	assert.Equal(t, ussd.Render(n, ""), ussd.Render(n, ""), "rendering is deterministic")
}

func TestRenderErrorPrefix(t *testing.T) {
	n := ussd.NewMenu("m", "Pick one").With("1", "One", "a")
	got := ussd.Render(n, "Invalid choice.")
	assert.Equal(t, "Invalid choice.\nPick one\n1. One\n0:Back 00:Home 000:Exit", got)
}

func TestRenderTerminalHasNoFooter(t *testing.T) {
	n := ussd.NewTerminal("bye", "Goodbye.")
	assert.Equal(t, "Goodbye.", ussd.Render(n, ""))
}

func TestRenderText(t *testing.T) {
	assert.Equal(t, "Enter amount\n0:Back 00:Home 000:Exit", ussd.RenderText("Enter amount", ""))
	assert.Equal(t, "Invalid amount\nEnter amount\n0:Back 00:Home 000:Exit", ussd.RenderText("Enter amount", "Invalid amount"))
}

func TestNodeTypeString(t *testing.T) {
	assert.Equal(t, "menu", ussd.NodeMenu.String())
	assert.Equal(t, "terminal", ussd.NodeTerminal.String())
	assert.Equal(t, "unknown(9)", ussd.NodeType(9).String())
}

func TestMenuDuplicateDigitPanics(t *testing.T) {
	assert.Panics(t, func() {
		ussd.NewMenu("m", "Pick one").With("1", "One", "a").With("1", "Again", "b")
	})
}
