package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/csrfile"
)

func inspectCmd() *cli.Command {
	var (
		asDocument bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the header of a .csr container",
		ArgsUsage: "<file.csr>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "document", Usage: "print the matrix as a JSON document (float types only)", Destination: &asDocument},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("inspect: expected one file argument")
			}
			f, err := csrfile.Open(cmd.Args().First())
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			if asDocument {
				return printDocument(os.Stdout, f)
			}
			return printHeader(os.Stdout, f.Header)
		},
	}
}

func printHeader(w io.Writer, h *csrfile.Header) error {
	_, err := fmt.Fprintf(w,
		"format:   CSR v%d.%d\n"+
			"scalar:   %s\n"+
			"shape:    %d x %d x %d\n"+
			"nnz:      %d\n"+
			"sections: outer@%d inner@%d values@%d\n"+
			"size:     %d bytes\n",
		h.Major, h.Minor, h.Scalar, h.Rows, h.Cols, h.Batches, h.NNZ,
		h.OuterOffset, h.InnerOffset, h.ValuesOffset, h.FileSize)
	return err
}

func printDocument(w io.Writer, f *csrfile.File) error {
	var doc *csrfile.Document
	switch f.Header.Scalar {
	case csrfile.ScalarFloat32:
		m, err := csrfile.Decode[float32](f)
		if err != nil {
			return err
		}
		doc = csrfile.DocumentFromMatrix(m)
	case csrfile.ScalarFloat64:
		m, err := csrfile.Decode[float64](f)
		if err != nil {
			return err
		}
		doc = csrfile.DocumentFromMatrix(m)
	default:
		return fmt.Errorf("inspect: %s matrices have no JSON document form", f.Header.Scalar)
	}
	return csrfile.WriteDocument(w, doc)
}
