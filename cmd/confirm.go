package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/signalnine/letterbench/internal/report"
)

// confirm shows the resolved configuration and asks until it gets y or n.
func confirm(in io.Reader, out io.Writer, question string, rows [][]string) (bool, error) {
	fmt.Fprintln(out, "\nConfiguration:")
	if err := report.RenderTable(out, []string{"Setting", "Value"}, rows); err != nil {
		return false, err
	}
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "%s (y/n): ", question)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, err
			}
			return false, errors.New("no confirmation received")
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
		fmt.Fprintln(out, "Please enter 'y' or 'n'")
	}
}
