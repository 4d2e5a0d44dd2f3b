package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/mateval/internal/csrfile"
	"github.com/samcharles93/mateval/internal/logger"
)

func packCmd() *cli.Command {
	var (
		in, out string
	)

	return &cli.Command{
		Name:  "pack",
		Usage: "Convert a JSON CSR document into a binary .csr container",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "JSON document", Required: true, Destination: &in},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "destination .csr file", Required: true, Destination: &out},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			h, err := packFile(in, out)
			if err != nil {
				return err
			}
			logger.FromContext(ctx).Info("packed matrix", "output", out, "header", h.String())
			return nil
		},
	}
}

// packFile converts the document at in and returns the written header.
func packFile(in, out string) (*csrfile.Header, error) {
	src, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	doc, err := csrfile.ReadDocument(bufio.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in, err)
	}
	st, err := doc.ScalarType()
	if err != nil {
		return nil, err
	}

	dst, err := os.Create(out)
	if err != nil {
		return nil, err
	}
	if st == csrfile.ScalarFloat32 {
		err = writeDocument[float32](dst, doc)
	} else {
		err = writeDocument[float64](dst, doc)
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out)
		return nil, err
	}

	f, err := csrfile.Open(out)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	h := *f.Header
	return &h, nil
}

func writeDocument[T csrfile.Real](w *os.File, doc *csrfile.Document) error {
	m, err := csrfile.MatrixFromDocument[T](doc)
	if err != nil {
		return err
	}
	return csrfile.Write(w, m)
}
