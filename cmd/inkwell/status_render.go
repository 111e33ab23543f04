package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderSectionHeader(title string) string {
	line := fmt.Sprintf("== %s ==", title)
	return line + "\n" + strings.Repeat("-", len(line))
}

func renderStatusLine(colorize bool, kind statusKind, label, message string) string {
	var tag, color string
	switch kind {
	case statusOK:
		tag, color = "[OK]", ansiGreen
	case statusWarn:
		tag, color = "[WARN]", ansiYellow
	case statusError:
		tag, color = "[FAIL]", ansiRed
	default:
		tag = "[--]"
	}

	body := tag
	if message != "" {
		body = tag + " " + message
	}
	if colorize && color != "" {
		body = color + body + ansiReset
	}
	return fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label, body)
}
