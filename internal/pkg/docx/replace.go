package docx

import (
	"strings"

	"github.com/beevik/etree"
)

// ReplaceResult reports what a render pass did. Unresolved lists every
// delimiter-wrapped name still present after substitution; the template
// may legitimately contain such text, so this is an audit, not an error.
type ReplaceResult struct {
	Replaced   int
	Unresolved []string
}

// Replace substitutes every «name» occurrence whose name is a key of values,
// uniformly over body paragraphs, table cells at any nesting depth, and the
// paragraphs and tables of every header and footer.
//
// A placeholder may be split across differently-styled runs, so matching is
// done on the concatenated paragraph text. A changed paragraph is rewritten
// onto its first run, keeping that run's properties and discarding the
// rest; untouched paragraphs are left exactly as loaded.
func (d *Document) Replace(values map[string]string, delims Delimiters) *ReplaceResult {
	if delims.Open == "" || delims.Close == "" {
		delims = DefaultDelimiters
	}

	res := &ReplaceResult{}
	seen := make(map[string]bool)
	for _, e := range d.entries {
		if e.tree == nil {
			continue
		}
		// //w:p also finds paragraphs nested in w:tbl/w:tr/w:tc, at any
		// depth, so tables need no separate walk.
		for _, p := range e.tree.FindElements("//w:p") {
			replaceInParagraph(p, values, delims, res)
			auditParagraph(paragraphText(p), delims, seen, res)
		}
	}
	return res
}

func replaceInParagraph(p *etree.Element, values map[string]string, delims Delimiters, res *ReplaceResult) {
	original := paragraphText(p)
	if !strings.Contains(original, delims.Open) {
		return
	}

	text := original
	for name, value := range values {
		marker := delims.Open + name + delims.Close
		if n := strings.Count(text, marker); n > 0 {
			text = strings.ReplaceAll(text, marker, value)
			res.Replaced += n
		}
	}
	if text == original {
		return
	}

	rewriteParagraph(p, text)
}

// rewriteParagraph writes text back as a single run. The first run keeps
// its run properties (bold, italic, underline, font, size via w:rPr); all
// other runs are dropped.
func rewriteParagraph(p *etree.Element, text string) {
	runs := p.SelectElements("w:r")
	if len(runs) == 0 {
		run := p.CreateElement("w:r")
		setRunText(run, text)
		return
	}

	first := runs[0]
	var stale []*etree.Element
	for _, child := range first.ChildElements() {
		if child.Space == "w" && child.Tag == "rPr" {
			continue
		}
		stale = append(stale, child)
	}
	for _, child := range stale {
		first.RemoveChild(child)
	}
	setRunText(first, text)

	for _, run := range runs[1:] {
		p.RemoveChild(run)
	}
}

func setRunText(run *etree.Element, text string) {
	t := run.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
}

// paragraphText concatenates the text of every run in a paragraph, which is
// the only safe way to match placeholders fragmented across runs.
func paragraphText(p *etree.Element) string {
	var sb strings.Builder
	for _, run := range p.SelectElements("w:r") {
		for _, t := range run.SelectElements("w:t") {
			sb.WriteString(t.Text())
		}
	}
	return sb.String()
}

// auditParagraph records delimiter-wrapped names still present after the
// replacement pass.
func auditParagraph(text string, delims Delimiters, seen map[string]bool, res *ReplaceResult) {
	for {
		start := strings.Index(text, delims.Open)
		if start < 0 {
			return
		}
		rest := text[start+len(delims.Open):]
		end := strings.Index(rest, delims.Close)
		if end < 0 {
			return
		}
		name := rest[:end]
		if name != "" && !strings.Contains(name, delims.Open) && !seen[name] {
			seen[name] = true
			res.Unresolved = append(res.Unresolved, name)
		}
		text = rest[end+len(delims.Close):]
	}
}
