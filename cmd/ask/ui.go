package main

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

func startSpinner(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	if !color.NoColor {
		s.Start()
	}
	return s
}

// routeColor picks a color per reply route
func routeColor(route string) *color.Color {
	switch route {
	case "deterministic":
		return color.New(color.FgGreen)
	case "not_found":
		return color.New(color.FgYellow)
	case "generated":
		return color.New(color.FgCyan)
	case "error":
		return color.New(color.FgRed)
	}
	return color.New(color.FgBlue)
}

func printAnswer(text, route string) {
	routeColor(route).Add(color.Bold).Printf("[%s] ", route)
	fmt.Println(text)
}

func printSuccess(format string, args ...any) {
	color.New(color.FgGreen).Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	color.New(color.FgCyan).Printf("ℹ %s\n", fmt.Sprintf(format, args...))
}
