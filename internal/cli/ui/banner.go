package ui

import (
	"github.com/pterm/pterm"
)

func PrintBanner(version string) {
	logo := `
   ____                        _         _____
  / __/__  _______ ___  ___ (_)___   / ___/______ ____
 / _// _ \/ __/ -_) _ \(_-</ / __/  _\ \/ __/ _ ` + "`" + `/ _ \
/_/  \___/_/  \__/_//_/___/_/\__/  /___/\__/\_,_/_//_/
`
	pterm.FgCyan.Println(logo)
	pterm.DefaultCenter.Println(pterm.FgGray.Sprint(version + " - Piracy Forensics Report"))
	pterm.Println()

	pterm.DefaultBox.
		WithTitle(pterm.FgYellow.Sprint("NOTICE")).
		WithTitleBottomCenter().
		WithRightPadding(2).
		WithLeftPadding(2).
		Println("Findings are produced by a generative model and are simulated.\nDo not treat them as evidence.")

	pterm.Println()
}
