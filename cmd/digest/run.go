package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/midbel/cli"

	"github.com/midbel/digest/digest"
	"github.com/midbel/digest/ruleset"
)

var runCmd = cli.Command{
	Name:    "run",
	Summary: "apply a rule file to an xml document and print the resulting object graph",
	Handler: &RunCmd{},
}

type RunCmd struct {
	Rules   string
	OutFile string
	Trace   bool
	Trim    bool
}

func (c *RunCmd) Run(args []string) error {
	set := flag.NewFlagSet("run", flag.ContinueOnError)
	set.StringVar(&c.Rules, "r", "", "rule file to apply")
	set.StringVar(&c.OutFile, "f", "", "write the result to the given file instead of stdout")
	set.BoolVar(&c.Trace, "t", false, "trace rule dispatch on stderr")
	set.BoolVar(&c.Trim, "s", false, "trim whitespace around body text")

	if err := set.Parse(args); err != nil {
		return err
	}
	if c.Rules == "" {
		return fmt.Errorf("no rule file given")
	}
	rules, err := loadRules(c.Rules)
	if err != nil {
		return err
	}

	d := digest.NewDigester(rules)
	d.Setter = digest.MapSetter{}
	d.Invoker = digest.MapInvoker{}
	d.TrimSpace = c.Trim
	if c.Trace {
		d.Tracer = digest.Stderr()
	}

	r, err := os.Open(set.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()

	res, err := d.Parse(r)
	if err != nil {
		return err
	}
	return writeResult(res, c.OutFile)
}

func loadRules(file string) (*digest.RuleSet, error) {
	env := ruleset.Env{
		Fallback: func(_ string) func() any {
			return func() any {
				return make(map[string]any)
			}
		},
	}
	return ruleset.LoadFile(file, env)
}

func writeResult(res any, file string) error {
	w := os.Stdout
	if file != "" {
		f, err := os.Create(file)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(res)
}
