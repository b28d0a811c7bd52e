// Package analysis runs the full pipeline for one translation unit:
// preprocess with observers attached, parse the result, resolve semantics,
// align the expansion forest against the tree, and emit one record per
// top-level invocation.
package analysis

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/macroaudit/macroaudit/internal/align"
	"github.com/macroaudit/macroaudit/internal/cast"
	"github.com/macroaudit/macroaudit/internal/config"
	"github.com/macroaudit/macroaudit/internal/cpp"
	"github.com/macroaudit/macroaudit/internal/forest"
	"github.com/macroaudit/macroaudit/internal/sem"
	"github.com/macroaudit/macroaudit/internal/source"
)

// Analyzer drives the analysis of translation units.
type Analyzer struct {
	cfg     *config.Config
	Verbose bool
}

func New() *Analyzer {
	return &Analyzer{cfg: config.DefaultConfig()}
}

func NewWithConfig(cfg *config.Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Result is the outcome of analyzing one translation unit.
type Result struct {
	// Records holds one entry per top-level invocation, in source order.
	Records []*Record
	// Output is the full textual report: ancillary records followed by
	// invocation records and marker lines.
	Output string
}

// definitionCollector records #define and conditional-inspection events.
type definitionCollector struct {
	defs      map[string]*cpp.Macro
	inspected map[string]bool
}

func newDefinitionCollector() *definitionCollector {
	return &definitionCollector{defs: make(map[string]*cpp.Macro), inspected: make(map[string]bool)}
}

func (dc *definitionCollector) MacroDefined(m *cpp.Macro)     { dc.defs[m.Name] = m }
func (dc *definitionCollector) MacroInspected(name string)    { dc.inspected[name] = true }
func (dc *definitionCollector) ExpansionBegin(*cpp.Expansion) {}
func (dc *definitionCollector) ExpansionEnd(*cpp.Expansion)   {}
func (dc *definitionCollector) IncludeDirective(*cpp.Include) {}

// includeCollector buffers #include events for the global-include audit.
type includeCollector struct {
	includes []*cpp.Include
}

func (ic *includeCollector) MacroDefined(*cpp.Macro)       {}
func (ic *includeCollector) MacroInspected(string)         {}
func (ic *includeCollector) ExpansionBegin(*cpp.Expansion) {}
func (ic *includeCollector) ExpansionEnd(*cpp.Expansion)   {}
func (ic *includeCollector) IncludeDirective(inc *cpp.Include) {
	ic.includes = append(ic.includes, inc)
}

// AnalyzeFile runs the pipeline on one main file.
func (a *Analyzer) AnalyzeFile(path string) (*Result, error) {
	sm := source.NewManager()
	fr := forest.New()
	dc := newDefinitionCollector()
	ic := &includeCollector{}

	pp := cpp.New(sm, a.cfg.IncludeDirs, fr, dc, ic)
	pp.Predefine(a.cfg.Defines)

	a.progress("preprocessing %s", path)
	if err := pp.ProcessFile(path); err != nil {
		return nil, err
	}
	fr.Finish()

	a.progress("parsing %d tokens", len(pp.Output()))
	tree, err := cast.Build(pp.Output())
	if err != nil {
		return nil, fmt.Errorf("building syntax tree: %w", err)
	}

	a.progress("resolving semantics")
	info := sem.Resolve(tree)

	a.progress("aligning %d expansions", len(fr.Nodes))
	align.Align(fr, tree)

	ix := buildIndices(tree, info)

	var sb strings.Builder
	res := &Result{}

	a.emitDefinitions(&sb, dc)
	a.emitInspected(&sb, dc)
	a.emitIncludes(&sb, ic, tree)

	for _, node := range fr.Nodes {
		if node.Incomplete {
			continue
		}
		if node.Depth != 0 || node.InMacroArg {
			if node.Depth != 0 {
				fmt.Fprintf(&sb, "Nested Invocation\t%s\n", node.Name)
			} else {
				fmt.Fprintf(&sb, "Invoked In Macro Argument\t%s\n", node.Name)
			}
			continue
		}
		rec := evaluate(node, tree, info, ix, dc.inspected)
		res.Records = append(res.Records, rec)
		sb.WriteString(rec.Format())
	}

	res.Output = sb.String()
	return res, nil
}

func (a *Analyzer) emitDefinitions(sb *strings.Builder, dc *definitionCollector) {
	names := make([]string, 0, len(dc.defs))
	for name := range dc.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := dc.defs[name]
		f, off := m.DefinitionLoc()
		loc, ok := source.FullLoc(f, off)
		fmt.Fprintf(sb, "Definition\t%s\t%v\t%s\n", name, ok, loc)
	}
}

func (a *Analyzer) emitInspected(sb *strings.Builder, dc *definitionCollector) {
	names := make([]string, 0, len(dc.inspected))
	for name := range dc.inspected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sb, "InspectedByCPP\t%s\n", name)
	}
}

// emitIncludes runs the global-include audit: an include is global when it
// resolves, is not reached through a locally-included file, and its '#'
// does not fall inside any declaration's extended range.
func (a *Analyzer) emitIncludes(sb *strings.Builder, ic *includeCollector, tree *cast.Tree) {
	declRanges := topLevelDeclRanges(tree)
	localIncludes := make(map[string]bool)

	for _, inc := range ic.includes {
		global, name := auditInclude(inc, localIncludes, declRanges)
		if !global && name != "" {
			localIncludes[name] = true
		}
		fmt.Fprintf(sb, "Include\t%v\t%s\n", global, name)
	}
}

func auditInclude(inc *cpp.Include, localIncludes map[string]bool, declRanges map[*source.File][][2]int) (bool, string) {
	if inc.File == nil {
		return false, "<null>"
	}
	name := inc.File.Path
	if name == "" {
		return false, name
	}
	if inc.HashTok == nil {
		return false, name
	}
	inFile, inOff := inc.HashTok.FileLoc()
	if inFile == nil || inOff < 0 {
		return false, name
	}
	if inFile.Path == "" {
		return false, name
	}
	if localIncludes[inFile.Path] {
		return false, name
	}
	for _, rng := range declRanges[inFile] {
		if rng[0] <= inOff && inOff <= rng[1] {
			return false, name
		}
	}
	return true, name
}

// topLevelDeclRanges collects, per file, the spelled extent of every
// top-level declaration extended through the following token so trailing
// semicolons count.
func topLevelDeclRanges(tree *cast.Tree) map[*source.File][][2]int {
	out := make(map[*source.File][][2]int)
	if tree.Root == nil {
		return out
	}
	for _, d := range tree.Root.Children {
		if !d.IsDecl() {
			continue
		}
		if d.FirstTok < 0 || d.LastTok < 0 {
			continue
		}
		bf, boff := tree.Tokens[d.FirstTok].FileLoc()
		ef, eoff := tree.Tokens[d.LastTok].FileLoc()
		if bf == nil || ef == nil || bf != ef {
			continue
		}
		end := eoff + tree.Tokens[d.LastTok].Len
		if next := d.LastTok + 1; next < len(tree.Tokens) {
			if nf, noff := tree.Tokens[next].FileLoc(); nf == bf {
				end = noff + tree.Tokens[next].Len
			}
		}
		out[bf] = append(out[bf], [2]int{boff, end})
	}
	return out
}

func (a *Analyzer) progress(format string, args ...interface{}) {
	if a.Verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
