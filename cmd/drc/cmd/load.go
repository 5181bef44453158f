package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/OpenTraceDRC/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceDRC/pkg/layout"
)

// loadLayout reads a KiCad board or a circuit JSON file, chosen by extension
func loadLayout(filename string) (*layout.Layout, error) {
	if strings.EqualFold(filepath.Ext(filename), ".kicad_pcb") {
		l, err := pcb.ImportFile(filename)
		if err != nil {
			return nil, fmt.Errorf("error parsing board: %w", err)
		}
		return l, nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	l, err := layout.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error reading layout: %w", err)
	}
	return l, nil
}
