package executor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/zwiftdocs/zwobuild/config"
	"github.com/zwiftdocs/zwobuild/fs"
	"github.com/zwiftdocs/zwobuild/target"
)

// Orchestrator brings build targets up to date, one at a time, in
// dependency order. A target is rebuilt iff its artifact is missing or
// at least one prerequisite has a strictly newer mod time; phony
// targets always run.
type Orchestrator struct {
	cfg         *config.Config
	fs          fs.FileSystem
	cmdExecutor CommandExecutor
	statusMgr   StatusManager
	dag         DAGManager
	dryRun      bool

	ensured  map[string]bool
	visiting map[string]bool
}

func NewOrchestrator(cfg *config.Config, fsys fs.FileSystem, cmdExecutor CommandExecutor, statusMgr StatusManager) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		fs:          fsys,
		cmdExecutor: cmdExecutor,
		statusMgr:   statusMgr,
		dag:         NewDAGManager(),
		ensured:     make(map[string]bool),
		visiting:    make(map[string]bool),
	}
}

func (o *Orchestrator) SetDryRun(dryRun bool) {
	o.dryRun = dryRun
}

// Initialize registers the target graph and rejects cyclic
// configurations before any recipe can run.
func (o *Orchestrator) Initialize() error {
	for _, name := range o.cfg.Order {
		o.dag.AddNode(name, o.cfg.Targets[name].TargetDeps)
		o.statusMgr.SetStatus(name, StatusQueued)
	}
	if _, err := o.dag.TopologicalSort(); err != nil {
		return errors.Wrap(err, "invalid target configuration")
	}
	return nil
}

// Build brings the named target up to date, depth-first. Missing
// hand-authored source files are reported before any recipe runs.
func (o *Orchestrator) Build(name string) error {
	if _, ok := o.cfg.Targets[name]; !ok {
		return errors.Errorf("unknown target %q", name)
	}
	if err := o.validateSources(name, make(map[string]bool)); err != nil {
		return err
	}
	return o.ensure(name)
}

// validateSources checks every literal source dependency reachable from
// name against the filesystem. Glob patterns may legitimately match
// nothing; a literal path that is neither a declared target nor an
// existing file is fatal.
func (o *Orchestrator) validateSources(name string, seen map[string]bool) error {
	if seen[name] {
		return nil
	}
	seen[name] = true

	tgt := o.cfg.Targets[name]
	for _, dep := range tgt.TargetDeps {
		if err := o.validateSources(dep, seen); err != nil {
			return err
		}
	}
	for _, pattern := range tgt.Dependencies {
		if isGlobPattern(pattern) {
			continue
		}
		if _, ok := o.cfg.Targets[pattern]; ok {
			continue
		}
		if _, err := o.fs.Stat(pattern); err != nil {
			if os.IsNotExist(err) {
				return errors.Errorf("target %s: missing dependency %s", name, pattern)
			}
			return errors.Wrapf(err, "failed to stat dependency %s", pattern)
		}
	}
	return nil
}

// ensure is the recursive body of Build. Targets already ensured in
// this invocation are not re-evaluated.
func (o *Orchestrator) ensure(name string) error {
	tgt, ok := o.cfg.Targets[name]
	if !ok {
		return errors.Errorf("unknown target %q", name)
	}
	if o.ensured[name] {
		return nil
	}
	if o.visiting[name] {
		return errors.Errorf("dependency cycle through target %q", name)
	}
	o.visiting[name] = true
	defer delete(o.visiting, name)

	for _, dep := range tgt.TargetDeps {
		if err := o.ensure(dep); err != nil {
			return err
		}
	}

	prereqs, err := o.resolvePrereqs(tgt)
	if err != nil {
		o.statusMgr.MarkAsFailed(name)
		return err
	}

	stale, err := o.isStale(tgt, prereqs)
	if err != nil {
		o.statusMgr.MarkAsFailed(name)
		return err
	}
	if !stale {
		o.statusMgr.UpdateStatus(name, StatusUpToDate, time.Time{}, time.Now())
		o.ensured[name] = true
		return nil
	}

	start := time.Now()
	o.statusMgr.UpdateStatus(name, StatusRunning, start, time.Time{})

	switch {
	case tgt.IsCleanRule():
		if o.dryRun {
			for _, path := range tgt.Removes {
				fmt.Printf("[%s] would remove %s\n", name, path)
			}
			o.statusMgr.UpdateStatus(name, StatusDryRun, start, time.Now())
			break
		}
		for _, path := range tgt.Removes {
			if err := o.fs.Remove(path); err != nil && !os.IsNotExist(err) {
				o.statusMgr.MarkAsFailed(name)
				return errors.Wrapf(err, "failed to remove %s", path)
			}
		}
		o.statusMgr.UpdateStatus(name, StatusRemoved, start, time.Now())
		fmt.Printf("[%s] removed\n", name)

	case tgt.Cmd != "":
		if err := o.preflightPrereqs(prereqs); err != nil {
			o.statusMgr.MarkAsFailed(name)
			return err
		}
		cmdline := expandRecipe(tgt.Cmd, prereqs)
		if o.dryRun {
			fmt.Printf("[%s] would run: %s\n", name, cmdline)
			o.statusMgr.UpdateStatus(name, StatusDryRun, start, time.Now())
			break
		}
		out, err := o.cmdExecutor.Execute(name, cmdline)
		if err != nil {
			o.statusMgr.MarkAsFailed(name)
			return errors.Wrapf(err, "recipe for target %s failed", name)
		}
		if !tgt.Phony {
			if err := o.writeTarget(name, out); err != nil {
				o.statusMgr.MarkAsFailed(name)
				return err
			}
		}
		o.statusMgr.UpdateStatus(name, StatusBuilt, start, time.Now())
		fmt.Printf("[%s] built\n", name)

	default:
		// Aggregate target: nothing to do beyond its target deps.
		o.statusMgr.UpdateStatus(name, StatusBuilt, start, time.Now())
	}

	o.ensured[name] = true
	return nil
}

// resolvePrereqs expands the target's dependency patterns against the
// current filesystem state. A literal dependency path that matches
// nothing is fatal; a glob or optional pattern may match nothing.
// Non-phony target deps join the list because their artifacts count
// for staleness.
func (o *Orchestrator) resolvePrereqs(tgt *target.Target) ([]string, error) {
	var prereqs []string

	for _, pattern := range tgt.Dependencies {
		matches, err := o.fs.DoublestarGlob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "error expanding glob pattern %s", pattern)
		}
		if len(matches) == 0 {
			if isGlobPattern(pattern) {
				continue
			}
			return nil, errors.Errorf("target %s: missing dependency %s", tgt.Name, pattern)
		}
		prereqs = append(prereqs, matches...)
	}

	for _, pattern := range tgt.OptionalDependencies {
		matches, err := o.fs.DoublestarGlob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "error expanding glob pattern %s", pattern)
		}
		prereqs = append(prereqs, matches...)
	}

	for _, dep := range tgt.TargetDeps {
		if d, ok := o.cfg.Targets[dep]; ok && !d.Phony {
			prereqs = append(prereqs, dep)
		}
	}

	return prereqs, nil
}

func (o *Orchestrator) isStale(tgt *target.Target, prereqs []string) (bool, error) {
	if tgt.Phony {
		return true, nil
	}
	info, err := o.fs.Stat(tgt.Name)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, errors.Wrapf(err, "failed to stat target %s", tgt.Name)
	}
	for _, p := range prereqs {
		pinfo, err := o.fs.Stat(p)
		if err != nil {
			// A prerequisite that is itself a target artifact may not
			// exist yet (dry run); that makes this target stale.
			if os.IsNotExist(err) {
				return true, nil
			}
			return false, errors.Wrapf(err, "failed to stat prerequisite %s", p)
		}
		if pinfo.ModTime().After(info.ModTime()) {
			return true, nil
		}
	}
	return false, nil
}

// writeTarget lands the recipe output in a temp file and renames it
// into place, so a failing tool never leaves a corrupt target behind.
func (o *Orchestrator) writeTarget(name string, out []byte) error {
	tmp := name + ".tmp"
	if err := o.fs.WriteFile(tmp, out, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", tmp)
	}
	if err := o.fs.Rename(tmp, name); err != nil {
		return errors.Wrapf(err, "failed to rename %s to %s", tmp, name)
	}
	return nil
}

// expandRecipe substitutes $< with the first prerequisite, make-style.
// With no prerequisites the token and one adjacent space are dropped.
// Whitespace elsewhere in the recipe is significant to the shell and
// is left untouched.
func expandRecipe(cmd string, prereqs []string) string {
	if len(prereqs) > 0 {
		return strings.ReplaceAll(cmd, "$<", prereqs[0])
	}
	expanded := strings.ReplaceAll(cmd, " $<", "")
	expanded = strings.ReplaceAll(expanded, "$< ", "")
	expanded = strings.ReplaceAll(expanded, "$<", "")
	return strings.TrimSpace(expanded)
}

func isGlobPattern(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

type PrereqInfo struct {
	Path    string
	ModTime time.Time
	Missing bool
}

type TargetReport struct {
	Name    string
	Phony   bool
	Stale   bool
	Prereqs []PrereqInfo
	Problem string
}

// Inspect reports every declared target's staleness against the
// current filesystem state without running any recipe.
func (o *Orchestrator) Inspect() []TargetReport {
	reports := make([]TargetReport, 0, len(o.cfg.Order))
	for _, name := range o.cfg.Order {
		tgt := o.cfg.Targets[name]
		report := TargetReport{Name: name, Phony: tgt.Phony}

		prereqs, err := o.resolvePrereqs(tgt)
		if err != nil {
			report.Problem = err.Error()
			report.Stale = true
			reports = append(reports, report)
			continue
		}
		for _, p := range prereqs {
			info, err := o.fs.Stat(p)
			if err != nil {
				report.Prereqs = append(report.Prereqs, PrereqInfo{Path: p, Missing: true})
				continue
			}
			report.Prereqs = append(report.Prereqs, PrereqInfo{Path: p, ModTime: info.ModTime()})
		}

		stale, err := o.isStale(tgt, prereqs)
		if err != nil {
			report.Problem = err.Error()
			stale = true
		}
		report.Stale = stale
		reports = append(reports, report)
	}
	return reports
}
