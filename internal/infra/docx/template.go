package docx

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/Masterminds/sprig/v3"
	"github.com/beevik/etree"

	"github.com/bryanwahyu/pentest-report/internal/domain/reports"
)

// Template is a .docx whose text holds Go template actions.
//
// Plain actions ({{.app_name}}) substitute inline. Actions prefixed with tr,
// tc or p ({{tr range .vulnerabilities}} ... {{tr end}}) replace the whole
// enclosing table row, cell or paragraph, which is how repeated blocks are
// expanded.
//
// Every action's output is escaped for XML after its pipeline runs, so
// context values stay plain text and sprig functions see them unescaped.
// Markup and InlineImage values are written verbatim.
type Template struct {
	pkg       *Package
	rels      *etree.Document
	nextImage int
	funcs     template.FuncMap
}

// OpenTemplate loads a template from disk.
func OpenTemplate(path string) (*Template, error) {
	pkg, err := OpenPackage(path)
	if err != nil {
		return nil, err
	}
	return NewTemplate(pkg)
}

// NewTemplate wraps an already loaded package.
func NewTemplate(pkg *Package) (*Template, error) {
	rels, err := loadRels(pkg)
	if err != nil {
		return nil, err
	}
	funcs := sprig.TxtFuncMap()
	funcs["text"] = func(s string) Markup { return Markup(Text(s)) }
	funcs[escapeFunc] = escape
	return &Template{pkg: pkg, rels: rels, nextImage: 1, funcs: funcs}, nil
}

// Text satisfies reports.DocumentTemplate. Escaping happens at output, so
// the string goes into the context as is.
func (t *Template) Text(s string) string { return s }

// Render executes every story part (body, headers, footers) against data.
func (t *Template) Render(data map[string]any) error {
	for _, part := range t.pkg.StoryParts() {
		raw, ok := t.pkg.Part(part)
		if !ok {
			continue
		}
		out, err := renderPart(part, string(raw), data, t.funcs)
		if err != nil {
			return err
		}
		t.pkg.SetPart(part, []byte(out))
	}
	return nil
}

// Save writes the rendered package, relationships included.
func (t *Template) Save(path string) error {
	b, err := t.rels.WriteToBytes()
	if err != nil {
		return fmt.Errorf("encode relationships: %w", err)
	}
	t.pkg.SetPart(partDocumentRels, b)
	return t.pkg.Save(path)
}

var _ reports.DocumentTemplate = (*Template)(nil)

func renderPart(name, src string, data map[string]any, funcs template.FuncMap) (string, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(Preprocess(src))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	for _, t := range tmpl.Templates() {
		if t.Tree != nil {
			escapeActions(t.Tree.Root)
		}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	check := etree.NewDocument()
	if err := check.ReadFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("rendered %s is not well-formed: %w", name, err)
	}
	return buf.String(), nil
}

var (
	splitOpen   = regexp.MustCompile(`\{(?:<[^>]*>)+\{`)
	splitClose  = regexp.MustCompile(`\}(?:<[^>]*>)+\}`)
	actionRe    = regexp.MustCompile(`(?s)\{\{.*?\}\}`)
	xmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	structureRe = regexp.MustCompile(`\{\{-?\s*(tr|tc|p)\s+(.*?)\s*-?\}\}`)
	smartQuotes = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

var structureTags = map[string]string{"tr": "w:tr", "tc": "w:tc", "p": "w:p"}

// Preprocess turns document XML into Go template source. Word splits typed
// text across runs, so markup inside an action is stripped first.
func Preprocess(src string) string {
	src = splitOpen.ReplaceAllString(src, "{{")
	src = splitClose.ReplaceAllString(src, "}}")
	src = actionRe.ReplaceAllStringFunc(src, func(m string) string {
		inner := xmlTagRe.ReplaceAllString(m[2:len(m)-2], "")
		inner = smartQuotes.Replace(html.UnescapeString(inner))
		return "{{" + inner + "}}"
	})
	for {
		loc := structureRe.FindStringSubmatchIndex(src)
		if loc == nil {
			return src
		}
		tag := structureTags[src[loc[2]:loc[3]]]
		action := "{{" + strings.TrimSpace(src[loc[4]:loc[5]]) + "}}"
		start, end, ok := enclosing(src, loc[0], tag)
		if !ok {
			start, end = loc[0], loc[1]
		}
		src = src[:start] + action + src[end:]
	}
}

// enclosing finds the element named tag around offset at.
func enclosing(s string, at int, tag string) (int, int, bool) {
	start := max(strings.LastIndex(s[:at], "<"+tag+">"), strings.LastIndex(s[:at], "<"+tag+" "))
	if start < 0 {
		return 0, 0, false
	}
	closeTag := "</" + tag + ">"
	rel := strings.Index(s[at:], closeTag)
	if rel < 0 {
		return 0, 0, false
	}
	return start, at + rel + len(closeTag), true
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
	"\r", "",
)

const lineBreak = `</w:t><w:br/><w:t xml:space="preserve">`

const escapeFunc = "_docx_escape"

// Markup is XML that an action writes without escaping.
type Markup string

func escape(v any) Markup {
	switch x := v.(type) {
	case nil:
		return ""
	case Markup:
		return x
	case InlineImage:
		return Markup(x.String())
	case *InlineImage:
		return Markup(x.String())
	case string:
		return Markup(Text(x))
	}
	return Markup(Text(fmt.Sprint(v)))
}

// escapeActions appends the escaper to every printing action under n.
func escapeActions(n parse.Node) {
	switch x := n.(type) {
	case *parse.ListNode:
		if x == nil {
			return
		}
		for _, c := range x.Nodes {
			escapeActions(c)
		}
	case *parse.ActionNode:
		if len(x.Pipe.Decl) == 0 {
			x.Pipe.Cmds = append(x.Pipe.Cmds, &parse.CommandNode{
				NodeType: parse.NodeCommand,
				Args:     []parse.Node{parse.NewIdentifier(escapeFunc).SetTree(nil).SetPos(x.Pos)},
			})
		}
	case *parse.IfNode:
		escapeActions(x.List)
		escapeActions(x.ElseList)
	case *parse.RangeNode:
		escapeActions(x.List)
		escapeActions(x.ElseList)
	case *parse.WithNode:
		escapeActions(x.List)
		escapeActions(x.ElseList)
	}
}

// Text escapes s for a w:t element and turns newlines into line breaks.
func Text(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = textEscaper.Replace(l)
	}
	return strings.Join(lines, lineBreak)
}
