package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"EstateDesk/internal/importer"
)

func previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview FILE...",
		Short: "Check import files locally and print their headers and row counts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				s, err := previewFile(path)
				if err != nil {
					cmd.PrintErrf("%s: %v\n", path, err)
					failed++
					continue
				}
				cmd.Printf("%s: %d rows [%s]\n", s.FileName, s.Rows, strings.Join(s.Headers, ", "))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files rejected", failed, len(args))
			}
			return nil
		},
	}
}

func previewFile(path string) (*importer.Summary, error) {
	f := importer.File{Name: filepath.Base(path)}
	if !f.Accepted() {
		return nil, importer.ErrUnsupportedType
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.Data = data
	return importer.Preview(f)
}
