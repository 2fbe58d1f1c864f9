package index

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FileFacts is the structural outline of one source file.
type FileFacts struct {
	Package     string   `json:"package,omitempty"`
	Imports     []string `json:"imports"`
	Classes     []string `json:"classes"`
	Functions   []string `json:"functions"`
	Annotations []string `json:"annotations,omitempty"`
	Exports     []string `json:"exports,omitempty"`
	HasMain     bool     `json:"has_main,omitempty"`
}

func extract(rel, content string) FileFacts {
	var f FileFacts
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".go":
		f = extractGo(rel, content)
	case ".py", ".pyw":
		f = extractPython(content)
	case ".java":
		f = extractJava(content)
	default:
		f = extractGeneric(content)
	}
	if f.Imports == nil {
		f.Imports = []string{}
	}
	if f.Classes == nil {
		f.Classes = []string{}
	}
	if f.Functions == nil {
		f.Functions = []string{}
	}
	return f
}

func extractGo(rel, content string) FileFacts {
	var f FileFacts
	fset := token.NewFileSet()
	file, _ := parser.ParseFile(fset, rel, content, parser.SkipObjectResolution)
	if file == nil {
		return f
	}
	f.Package = file.Name.Name
	for _, imp := range file.Imports {
		if p, err := strconv.Unquote(imp.Path.Value); err == nil {
			f.Imports = append(f.Imports, p)
		}
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				switch ts.Type.(type) {
				case *ast.StructType, *ast.InterfaceType:
					f.Classes = append(f.Classes, ts.Name.Name)
				}
			}
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) > 0 {
				name = receiverName(d.Recv.List[0].Type) + "." + name
			} else if name == "main" && f.Package == "main" {
				f.HasMain = true
			}
			f.Functions = append(f.Functions, name)
		}
	}
	return f
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return "*" + receiverName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return fmt.Sprintf("%T", expr)
}

var (
	pyImportRe    = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+)`)
	pyFromRe      = regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import\b`)
	pyClassRe     = regexp.MustCompile(`(?m)^\s*class\s+(\w+)`)
	pyFuncRe      = regexp.MustCompile(`(?m)^(?:async\s+)?def\s+(\w+)`)
	pyDecoratorRe = regexp.MustCompile(`(?m)^\s*@([\w.]+)`)
	pyMainRe      = regexp.MustCompile(`__name__\s*==\s*["']__main__["']`)
)

// extractPython only records top-level functions; methods stay with their
// class.
func extractPython(content string) FileFacts {
	f := FileFacts{
		Imports:     submatches(pyImportRe, content),
		Classes:     submatches(pyClassRe, content),
		Functions:   submatches(pyFuncRe, content),
		Annotations: submatches(pyDecoratorRe, content),
		HasMain:     pyMainRe.MatchString(content),
	}
	f.Imports = append(f.Imports, submatches(pyFromRe, content)...)
	return f
}

var (
	javaPackageRe    = regexp.MustCompile(`(?m)^package\s+([\w.]+)\s*;`)
	javaImportRe     = regexp.MustCompile(`(?m)^import\s+(?:static\s+)?([\w.*]+)\s*;`)
	javaAnnotationRe = regexp.MustCompile(`@(\w+)`)
	javaClassRe      = regexp.MustCompile(`(?:public|private|protected)?\s*(?:abstract\s+|final\s+)?(?:class|interface|enum|record)\s+(\w+)`)
	javaMethodRe     = regexp.MustCompile(`(?m)(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?(?:synchronized\s+)?[\w<>\[\]?,\s]+?\s+(\w+)\s*\([^)]*\)`)
)

func extractJava(content string) FileFacts {
	f := FileFacts{
		Imports:     submatches(javaImportRe, content),
		Classes:     submatches(javaClassRe, content),
		Annotations: unique(submatches(javaAnnotationRe, content)),
		HasMain:     strings.Contains(content, "public static void main"),
	}
	if m := javaPackageRe.FindStringSubmatch(content); m != nil {
		f.Package = m[1]
	}
	classes := make(map[string]bool, len(f.Classes))
	for _, c := range f.Classes {
		classes[c] = true
	}
	for _, name := range submatches(javaMethodRe, content) {
		// Constructors also match the method pattern.
		if !classes[name] {
			f.Functions = append(f.Functions, name)
		}
	}
	return f
}

var (
	esImportRe  = regexp.MustCompile(`import\s+[^;]*?from\s+['"]([^'"]+)['"]`)
	requireRe   = regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`)
	jsClassRe   = regexp.MustCompile(`class\s+(\w+)`)
	jsFuncRe    = regexp.MustCompile(`(?:function|const|let|var)\s+(\w+)\s*(?:=\s*(?:async\s*)?\(|\()`)
	jsExportsRe = regexp.MustCompile(`export\s+(?:default\s+)?(?:class|function|const|let|var)\s+(\w+)`)
)

// extractGeneric covers JS/TS and anything without a dedicated extractor.
func extractGeneric(content string) FileFacts {
	f := FileFacts{
		Imports:   append(submatches(esImportRe, content), submatches(requireRe, content)...),
		Classes:   submatches(jsClassRe, content),
		Functions: submatches(jsFuncRe, content),
		Exports:   submatches(jsExportsRe, content),
	}
	return f
}

func submatches(re *regexp.Regexp, content string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	return out
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

var entryKeywords = []string{"main", "app", "index", "server", "bootstrap"}

func isEntryPoint(rel string, f FileFacts) bool {
	lower := strings.ToLower(rel)
	for _, kw := range entryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return f.HasMain
}
