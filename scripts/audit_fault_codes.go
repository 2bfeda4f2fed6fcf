package main

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type callsite struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Func string `json:"func"`
	Via  string `json:"via"`
}

type codeUsage struct {
	Code           string     `json:"code"`
	RaiseCount     int        `json:"raise_count"`
	RaiseCallsites []callsite `json:"raise_callsites"`
	OpsObserved    []string   `json:"ops_observed"`
	ExplicitStatus string     `json:"explicit_http_status,omitempty"`
}

type auditReport struct {
	DeclaredCodes       []string    `json:"declared_codes"`
	TotalRaiseCallsites int         `json:"total_raise_callsites"`
	Codes               []codeUsage `json:"codes"`
	UnraisedCodes       []string    `json:"unraised_codes"`
	DefaultStatusCodes  []string    `json:"default_status_codes"`
}

var raiseFuncs = map[string]bool{
	"New":  true,
	"Wrap": true,
}

func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	fset := token.NewFileSet()

	declared, err := collectDeclaredCodes(fset, filepath.Join(root, "internal", "domain", "fault", "fault.go"))
	if err != nil {
		exitf("collect declared codes: %v", err)
	}
	if len(declared) == 0 {
		exitf("no fault codes declared under internal/domain/fault")
	}

	statusByCode, err := collectStatusArms(fset, filepath.Join(root, "internal", "http", "response", "response.go"))
	if err != nil {
		exitf("collect status arms: %v", err)
	}

	callsitesByCode := map[string][]callsite{}
	opsByCode := map[string]map[string]bool{}

	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache":
				return filepath.SkipDir
			default:
				return nil
			}
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		f, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		collectRaises(fset, f, filepath.ToSlash(rel), callsitesByCode, opsByCode)
		return nil
	})
	if walkErr != nil {
		exitf("walk internal/: %v", walkErr)
	}

	report := buildAudit(declared, statusByCode, callsitesByCode, opsByCode)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		exitf("marshal report: %v", err)
	}
	fmt.Println(string(out))
}

func collectDeclaredCodes(fset *token.FileSet, faultFile string) ([]string, error) {
	f, err := parser.ParseFile(fset, faultFile, nil, 0)
	if err != nil {
		return nil, err
	}

	var codes []string
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, spec := range gd.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			id, ok := vs.Type.(*ast.Ident)
			if !ok || id.Name != "Code" {
				continue
			}
			for _, name := range vs.Names {
				codes = append(codes, name.Name)
			}
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func collectStatusArms(fset *token.FileSet, responseFile string) (map[string]string, error) {
	f, err := parser.ParseFile(fset, responseFile, nil, 0)
	if err != nil {
		return nil, err
	}

	arms := map[string]string{}
	for _, decl := range f.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name.Name != "statusForCode" || fd.Body == nil {
			continue
		}
		ast.Inspect(fd.Body, func(n ast.Node) bool {
			cc, ok := n.(*ast.CaseClause)
			if !ok || len(cc.List) == 0 {
				return true
			}
			status := statusFromCase(cc)
			for _, expr := range cc.List {
				if code := faultSelector(expr); code != "" {
					arms[code] = status
				}
			}
			return true
		})
	}
	return arms, nil
}

func statusFromCase(cc *ast.CaseClause) string {
	for _, stmt := range cc.Body {
		ret, ok := stmt.(*ast.ReturnStmt)
		if !ok || len(ret.Results) == 0 {
			continue
		}
		if sel, ok := ret.Results[0].(*ast.SelectorExpr); ok {
			return sel.Sel.Name
		}
	}
	return ""
}

func collectRaises(
	fset *token.FileSet,
	file *ast.File,
	relFile string,
	callsitesByCode map[string][]callsite,
	opsByCode map[string]map[string]bool,
) {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		enclosing := fd.Name.Name

		ast.Inspect(fd.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || len(call.Args) < 2 {
				return true
			}
			fnSel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			pkgIdent, ok := fnSel.X.(*ast.Ident)
			if !ok || pkgIdent.Name != "fault" || !raiseFuncs[fnSel.Sel.Name] {
				return true
			}

			code := faultSelector(call.Args[0])
			if code == "" {
				return true
			}

			callsitesByCode[code] = append(callsitesByCode[code], callsite{
				File: relFile,
				Line: fset.Position(call.Pos()).Line,
				Func: enclosing,
				Via:  fnSel.Sel.Name,
			})

			if lit, ok := call.Args[1].(*ast.BasicLit); ok && lit.Kind == token.STRING {
				op, err := strconv.Unquote(lit.Value)
				if err == nil && op != "" {
					if opsByCode[code] == nil {
						opsByCode[code] = map[string]bool{}
					}
					opsByCode[code][op] = true
				}
			}
			return true
		})
	}
}

func buildAudit(
	declared []string,
	statusByCode map[string]string,
	callsitesByCode map[string][]callsite,
	opsByCode map[string]map[string]bool,
) auditReport {
	var report auditReport
	report.DeclaredCodes = declared

	for _, code := range declared {
		sites := callsitesByCode[code]
		sort.Slice(sites, func(i, j int) bool {
			if sites[i].File == sites[j].File {
				return sites[i].Line < sites[j].Line
			}
			return sites[i].File < sites[j].File
		})

		usage := codeUsage{
			Code:           code,
			RaiseCount:     len(sites),
			RaiseCallsites: sites,
			OpsObserved:    sortedKeys(opsByCode[code]),
			ExplicitStatus: statusByCode[code],
		}
		report.Codes = append(report.Codes, usage)
		report.TotalRaiseCallsites += len(sites)

		if len(sites) == 0 {
			report.UnraisedCodes = append(report.UnraisedCodes, code)
		}
		if statusByCode[code] == "" {
			report.DefaultStatusCodes = append(report.DefaultStatusCodes, code)
		}
	}
	return report
}

func faultSelector(expr ast.Expr) string {
	sel, ok := expr.(*ast.SelectorExpr)
	if !ok {
		return ""
	}
	id, ok := sel.X.(*ast.Ident)
	if !ok || id.Name != "fault" {
		return ""
	}
	if !strings.HasPrefix(sel.Sel.Name, "Code") {
		return ""
	}
	return sel.Sel.Name
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
