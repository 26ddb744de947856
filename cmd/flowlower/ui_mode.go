package main

import (
	"fmt"
	"os"
	"strings"
)

// progressMode is the value of --ui.
type progressMode string

const (
	progressAuto progressMode = "auto"
	progressOn   progressMode = "on"
	progressOff  progressMode = "off"
)

func readProgressMode(value string) (progressMode, error) {
	switch mode := progressMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return progressAuto, nil
	case progressAuto, progressOn, progressOff:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// useProgressView decides whether lower shows the progress view. In auto
// mode it needs more than one unit and stdout attached to a terminal, the
// view and the lowered units share stdout.
func useProgressView(mode progressMode, quiet bool, units int) bool {
	switch {
	case mode == progressOff, quiet:
		return false
	case mode == progressOn:
		return true
	default:
		return units > 1 && isTerminal(os.Stdout)
	}
}
