package deps

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/brightly-salty/gleam/pkg/engine"
	"github.com/brightly-salty/gleam/pkg/hex"
	"github.com/brightly-salty/gleam/pkg/project"
)

// maxResolutionSteps bounds backtracking on pathological requirement sets.
const maxResolutionSteps = 10000

// bound is a constraint on a package together with who imposed it.
type bound struct {
	by         string
	constraint Constraint
}

type state struct {
	selected    map[string]string
	constraints map[string][]bound
	required    map[string]bool
}

func (s state) clone() state {
	cp := state{
		selected:    make(map[string]string, len(s.selected)),
		constraints: make(map[string][]bound, len(s.constraints)),
		required:    make(map[string]bool, len(s.required)),
	}
	for k, v := range s.selected {
		cp.selected[k] = v
	}
	for k, v := range s.constraints {
		cp.constraints[k] = append([]bound(nil), v...)
	}
	for k, v := range s.required {
		cp.required[k] = v
	}
	return cp
}

// resolver selects one version of every Hex package reachable from the root
// requirements.
type resolver struct {
	m      *Manager
	root   string
	locked map[string]string

	releases map[string]*hex.Release
	versions map[string][]string
	steps    int

	// conflict describes the most recent dead end, for the error message.
	conflict string
}

// resolution is the outcome of resolving a project's requirements.
type resolution struct {
	hex    map[string]*hex.Release
	locals map[string]localPackage
}

type localPackage struct {
	path   string
	config *project.Config
}

func (m *Manager) resolve(ctx context.Context, paths project.Paths, rootName string, reqs map[string]project.Requirement, locked map[string]string) (*resolution, error) {
	r := &resolver{
		m:        m,
		root:     rootName,
		locked:   locked,
		releases: map[string]*hex.Release{},
		versions: map[string][]string{},
	}

	st := state{selected: map[string]string{}, constraints: map[string][]bound{}, required: map[string]bool{}}
	locals := map[string]localPackage{}

	if err := r.addRequirements(paths.Root(), rootName, reqs, &st, locals); err != nil {
		return nil, err
	}

	solved, err := r.solve(ctx, st)
	if err != nil {
		var f *fatalError
		if errors.As(err, &f) {
			return nil, f.err
		}
		return nil, err
	}

	res := &resolution{hex: map[string]*hex.Release{}, locals: locals}
	for name, version := range solved.selected {
		res.hex[name] = r.releases[name+"@"+version]
	}
	return res, nil
}

// addRequirements records root or local package requirements, following
// path dependencies transitively.
func (r *resolver) addRequirements(base, by string, reqs map[string]project.Requirement, st *state, locals map[string]localPackage) error {
	names := make([]string, 0, len(reqs))
	for name := range reqs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		req := reqs[name]
		switch {
		case req.Git != "":
			return engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
				fmt.Sprintf("%s is a git dependency, which this build tool cannot fetch", name), nil).
				WithHint("Depend on a published Hex release or a local path instead.")

		case req.Path != "":
			if _, seen := locals[name]; seen {
				continue
			}
			dir := req.Path
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(base, dir)
			}
			cfg, err := project.LoadConfig(project.NewPaths(dir))
			if err != nil {
				return engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
					fmt.Sprintf("failed to read local dependency %s", name), err)
			}
			if cfg.Name != name {
				return engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
					fmt.Sprintf("the package at %s is called %s, not %s", req.Path, cfg.Name, name), nil)
			}
			locals[name] = localPackage{path: req.Path, config: cfg}
			if err := r.addRequirements(dir, name, cfg.Dependencies, st, locals); err != nil {
				return err
			}

		default:
			c, err := ParseConstraint(req.Version)
			if err != nil {
				return engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
					fmt.Sprintf("invalid requirement for %s", name), err)
			}
			st.constraints[name] = append(st.constraints[name], bound{by: by, constraint: c})
			st.required[name] = true
		}
	}
	return nil
}

func (r *resolver) solve(ctx context.Context, st state) (state, error) {
	if err := ctx.Err(); err != nil {
		return st, err
	}
	r.steps++
	if r.steps > maxResolutionSteps {
		return st, fatal(engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
			"dependency resolution did not finish", nil).
			WithHint("Loosen your version requirements or run `gleam update`."))
	}

	name, ok := nextPackage(st)
	if !ok {
		return st, nil
	}

	candidates, err := r.candidates(ctx, name, st.constraints[name])
	if err != nil {
		return st, err
	}
	if len(candidates) == 0 {
		r.conflict = describeConflict(name, st.constraints[name])
		return st, r.failure()
	}

	for _, version := range candidates {
		release, err := r.release(ctx, name, version)
		if err != nil {
			return st, err
		}

		next, ok := r.apply(st, name, release)
		if !ok {
			continue
		}
		solved, err := r.solve(ctx, next)
		if err == nil {
			return solved, nil
		}
		if !engine.IsKind(err, engine.ErrorKindDependency) || isFatal(err) {
			return st, err
		}
	}
	return st, r.failure()
}

// apply selects version of name and adds the release's requirements. It
// fails when a requirement excludes an already selected version.
func (r *resolver) apply(st state, name string, release *hex.Release) (state, bool) {
	next := st.clone()
	next.selected[name] = release.Version
	by := name + " " + release.Version

	deps := make([]string, 0, len(release.Requirements))
	for dep := range release.Requirements {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	for _, dep := range deps {
		spec := release.Requirements[dep]
		c, err := ParseConstraint(spec.Requirement)
		if err != nil {
			r.conflict = fmt.Sprintf("%s has an invalid requirement on %s: %v", by, dep, err)
			return st, false
		}
		next.constraints[dep] = append(next.constraints[dep], bound{by: by, constraint: c})
		if !spec.Optional {
			next.required[dep] = true
		}
		if selected, ok := next.selected[dep]; ok && !c.Matches(selected) {
			r.conflict = describeConflict(dep, next.constraints[dep])
			return st, false
		}
	}
	return next, true
}

// nextPackage picks the first required package without a selected version.
func nextPackage(st state) (string, bool) {
	var pending []string
	for name := range st.required {
		if _, ok := st.selected[name]; !ok {
			pending = append(pending, name)
		}
	}
	if len(pending) == 0 {
		return "", false
	}
	sort.Strings(pending)
	return pending[0], true
}

// candidates lists the versions of name satisfying every bound: the locked
// version first, then newest to oldest.
func (r *resolver) candidates(ctx context.Context, name string, bounds []bound) ([]string, error) {
	versions, ok := r.versions[name]
	if !ok {
		var err error
		versions, err = r.m.versions(ctx, name)
		if err != nil {
			return nil, fatal(err)
		}
		r.versions[name] = versions
	}

	var out []string
	locked := r.locked[name]
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		if v == locked {
			continue
		}
		if satisfies(v, bounds) {
			out = append(out, v)
		}
	}
	if locked != "" && satisfies(locked, bounds) {
		out = append([]string{locked}, out...)
	}
	return out, nil
}

func satisfies(version string, bounds []bound) bool {
	for _, b := range bounds {
		if !b.constraint.Matches(version) {
			return false
		}
	}
	return true
}

func (r *resolver) release(ctx context.Context, name, version string) (*hex.Release, error) {
	key := name + "@" + version
	if rel, ok := r.releases[key]; ok {
		return rel, nil
	}
	rel, err := r.m.repo.Release(ctx, name, version)
	if err != nil {
		return nil, fatal(engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
			fmt.Sprintf("failed to fetch %s %s", name, version), err))
	}
	if rel.Version == "" {
		rel.Version = version
	}
	if rel.Retired {
		r.m.logger.Warn().Str("package", name).Str("version", version).Msg("Selected a retired release")
	}
	r.releases[key] = rel
	return rel, nil
}

func (r *resolver) failure() error {
	return engine.StageError(engine.ErrorKindDependency, engine.StageDependencies,
		"unable to find compatible versions", fmt.Errorf("%s", r.conflict)).
		WithHint("Adjust the version requirements in gleam.toml.")
}

func describeConflict(name string, bounds []bound) string {
	parts := make([]string, len(bounds))
	for i, b := range bounds {
		parts[i] = fmt.Sprintf("%s (from %s)", b.constraint, b.by)
	}
	return fmt.Sprintf("no version of %s satisfies %s", name, strings.Join(parts, ", "))
}

// fatalError marks registry failures that must stop the search rather than
// trigger backtracking.
type fatalError struct{ err error }

func (f *fatalError) Error() string { return f.err.Error() }
func (f *fatalError) Unwrap() error { return f.err }

func fatal(err error) error {
	return &fatalError{err: err}
}

func isFatal(err error) bool {
	var f *fatalError
	return errors.As(err, &f)
}
