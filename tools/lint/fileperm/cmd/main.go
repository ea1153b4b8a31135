// Command fileperm-lint checks for hardcoded file permissions.
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/lucas-albers-lz4/ciprep/tools/lint/fileperm"
)

func main() {
	singlechecker.Main(fileperm.Analyzer)
}
