// testrunner executes the per-opcode conformance suite against the CPU core.
package main

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/projectacorn/acorn86/internal/cpu"
	"github.com/projectacorn/acorn86/internal/fixture"
	"github.com/projectacorn/acorn86/internal/mem"
)

// batchSize is how many fixture files one batch covers, matching the suite's
// historical batching.
const batchSize = 10

func main() {
	var cli struct {
		Run runCmd `cmd:"" default:"1" help:"run conformance fixtures"`
	}

	ctx := kong.Parse(&cli)
	err := ctx.Run(&kong.Context{})
	ctx.FatalIfErrorf(err)
}

type runCmd struct {
	Path      string `arg:"" name:"path" type:"path" help:"fixture file (.json.gz) or directory of them"`
	Batch     int    `name:"batch" default:"-1" help:"batch index into a sorted directory listing (10 files per batch); -1 runs everything"`
	Case      int    `name:"case" default:"-1" help:"run a single case index of a single file with full mismatch detail"`
	MaxLogged int    `name:"maxlogged" default:"10" help:"failure names to log per file"`
}

func (r *runCmd) Run(ctx *kong.Context) error {
	files, err := r.files()
	if err != nil {
		return err
	}
	if r.Case >= 0 {
		if len(files) != 1 {
			return errors.New("--case needs a single fixture file")
		}
		return r.runSingle(files[0])
	}

	var tally fixture.Tally
	for _, f := range files {
		if err := fixture.RunFile(f, r.MaxLogged, &tally); err != nil {
			return err
		}
	}
	logrus.WithFields(logrus.Fields{
		"total":  tally.Total,
		"passed": tally.Passed,
		"failed": tally.Failed,
	}).Info("conformance summary")
	if tally.Failed > 0 {
		return errors.Errorf("%d of %d cases failed", tally.Failed, tally.Total)
	}
	return nil
}

// files resolves the path argument to the fixture files of the selected
// batch.
func (r *runCmd) files() ([]string, error) {
	info, err := os.Stat(r.Path)
	if err != nil {
		return nil, errors.Wrap(err, "stat fixture path")
	}
	if !info.IsDir() {
		return []string{r.Path}, nil
	}

	files, err := filepath.Glob(filepath.Join(r.Path, "*.json.gz"))
	if err != nil {
		return nil, errors.Wrap(err, "list fixtures")
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no *.json.gz fixtures under %s", r.Path)
	}
	sort.Strings(files)

	if r.Batch < 0 {
		return files, nil
	}
	lo := r.Batch * batchSize
	if lo >= len(files) {
		return nil, errors.Errorf("batch %d is beyond the %d fixture files", r.Batch, len(files))
	}
	hi := lo + batchSize
	if hi > len(files) {
		hi = len(files)
	}
	return files[lo:hi], nil
}

func newCaseCPU() *cpu.CPU { return cpu.New(mem.New()) }

// runSingle executes one case with every mismatch spelled out.
func (r *runCmd) runSingle(path string) error {
	cases, err := fixture.Load(path)
	if err != nil {
		return err
	}
	if r.Case >= len(cases) {
		return errors.Errorf("case %d out of range, file has %d", r.Case, len(cases))
	}
	tc := cases[r.Case]
	ms := fixture.RunCase(newCaseCPU(), tc)
	if len(ms) == 0 {
		logrus.WithField("case", tc.Name).Info("pass")
		return nil
	}
	for _, m := range ms {
		logrus.WithField("case", tc.Name).Error(m.String())
	}
	return errors.Errorf("case %q: %d mismatches", tc.Name, len(ms))
}
