package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/midbel/cli"

	"github.com/midbel/digest/xml"
)

var scanCmd = cli.Command{
	Name:    "scan",
	Summary: "dump the event stream of an xml document",
	Handler: &ScanCmd{},
}

type ScanCmd struct {
	Trim bool
}

func (c *ScanCmd) Run(args []string) error {
	set := flag.NewFlagSet("scan", flag.ContinueOnError)
	set.BoolVar(&c.Trim, "s", false, "trim whitespace around body text")

	if err := set.Parse(args); err != nil {
		return err
	}
	r, err := os.Open(set.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()

	rs := xml.NewReader(r)
	rs.TrimSpace = c.Trim
	return rs.Run(&dumpHandler{})
}

type dumpHandler struct {
	depth int
}

func (h *dumpHandler) StartDocument() error {
	fmt.Println("document start")
	return nil
}

func (h *dumpHandler) StartElement(elem xml.E) error {
	fmt.Printf("%sopen %s", h.indent(), elem.QualifiedName())
	for _, a := range elem.Attrs {
		fmt.Printf(" %s=%q", a.QualifiedName(), a.Value)
	}
	fmt.Println()
	h.depth++
	return nil
}

func (h *dumpHandler) Text(content string) error {
	fmt.Printf("%stext %q\n", h.indent(), content)
	return nil
}

func (h *dumpHandler) EndElement(elem xml.E) error {
	h.depth--
	fmt.Printf("%sclose %s\n", h.indent(), elem.QualifiedName())
	return nil
}

func (h *dumpHandler) EndDocument() error {
	fmt.Println("document end")
	return nil
}

func (h *dumpHandler) indent() string {
	return strings.Repeat("  ", h.depth+1)
}
