/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: display.go
Description: Console presentation helpers. Headings, steps and key/value summaries are
styled with lipgloss and go to stdout; styling drops away when stdout is not a terminal.
*/

package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Width(12)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	resultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// printHeading prints a command title with an underline
func printHeading(title string) {
	fmt.Println(headingStyle.Render(title))
	fmt.Println(stepStyle.Render(strings.Repeat("=", lipgloss.Width(title))))
}

// printStep prints a progress step
func printStep(msg string) {
	fmt.Println(stepStyle.Render(msg))
}

// printKeyValues prints aligned key/value pairs
func printKeyValues(pairs ...string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Println("  " + keyStyle.Render(pairs[i]) + valueStyle.Render(pairs[i+1]))
	}
}

// printWarning prints a highlighted notice
func printWarning(msg string) {
	fmt.Println(warnStyle.Render(msg))
}

// printResult prints a final result line
func printResult(msg string) {
	fmt.Println(resultStyle.Render(msg))
}

// stderrIsTerminal reports whether stderr is attached to a terminal
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
