package main

import (
	"flag"
	"fmt"

	"github.com/midbel/cli"
)

var checkCmd = cli.Command{
	Name:    "check",
	Summary: "compile the patterns of a rule file and report errors",
	Handler: &CheckCmd{},
}

type CheckCmd struct {
	Quiet bool
}

func (c *CheckCmd) Run(args []string) error {
	set := flag.NewFlagSet("check", flag.ContinueOnError)
	set.BoolVar(&c.Quiet, "q", false, "quiet")

	if err := set.Parse(args); err != nil {
		return err
	}
	var fail bool
	for _, file := range set.Args() {
		rules, err := loadRules(file)
		if err != nil {
			fail = true
			fmt.Printf("%s: %s\n", file, err)
			continue
		}
		if !c.Quiet {
			fmt.Printf("%s: %d rule(s) ok\n", file, rules.Len())
		}
	}
	if fail {
		return errFail
	}
	return nil
}
