//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// demoQuestions exercise the main rule paths against a fixed reference time.
var demoQuestions = []string{
	"昨天澳門半島存款餘額",
	"列出每個account_no的明細",
	"本月交易量趨勢",
	"compare deposit balance vs last month",
}

// Demo builds the CLI and normalizes a few sample questions.
func Demo() error {
	mg.Deps(Build)
	bin := filepath.Join(binDir, binName)
	for _, q := range demoQuestions {
		fmt.Printf("\n# %s\n", q)
		if err := sh.RunV(bin, "normalize", "--now", "2026-02-11T10:00:00+08:00", q); err != nil {
			fmt.Printf("[demo] %v\n", err)
		}
	}
	return nil
}
