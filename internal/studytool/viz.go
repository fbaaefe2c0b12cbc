package studytool

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/stupiduntilnot/studbot/internal/tool"
)

var vizPhrases = []string{
	"make a diagram of", "draw a diagram of", "diagram of", "flowchart of", "flowchart for",
	"mind map of", "visualize", "visualise", "diagram", "flowchart", "mind map", "draw", "viz",
}

// Diagram kinds.
const (
	KindMermaid  = "mermaid"
	KindGraphviz = "graphviz"
)

var (
	codeFence = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	// trailers the model sometimes appends after the diagram.
	vizTrailer = regexp.MustCompile(`(?im)^\s*(final answer|explanation|note|this diagram)\b.*`)
	loneEnd    = regexp.MustCompile(`(?m)^\s*end\s*$\n?`)
)

// Viz writes Mermaid or Graphviz source for a concept. Rendering is left to
// the student's own viewer.
type Viz struct {
	completer Completer
}

func NewViz(c Completer) (*Viz, error) {
	if c == nil {
		return nil, fmt.Errorf("viz: %w", errNoCompleter)
	}
	return &Viz{completer: c}, nil
}

func (v *Viz) Name() string { return NameViz }

func (v *Viz) Description() string {
	return "Diagram a process or concept as Mermaid or Graphviz source."
}

func (v *Viz) Schema() tool.Schema {
	return tool.Schema{Params: []tool.Param{
		{Name: "content", Type: tool.TypeString, Required: true, Description: "what to diagram"},
		{Name: "kind", Type: tool.TypeEnum, Enum: []string{KindMermaid, KindGraphviz}},
	}}
}

func (v *Viz) Match(utterance string) (tool.Params, bool) {
	content, ok := tool.AfterPhrase(utterance, vizPhrases...)
	if !ok || content == "" {
		return nil, false
	}
	params := tool.Params{"content": content}
	if tool.ContainsWord(utterance, KindGraphviz) {
		params["kind"] = KindGraphviz
		params["content"] = strings.TrimSpace(removeWord(content, KindGraphviz))
	}
	return params, true
}

func (v *Viz) Execute(ctx context.Context, params tool.Params) (string, error) {
	content := strings.TrimSpace(params.String("content"))
	kind := params.String("kind")
	if kind == "" {
		kind = KindMermaid
	}

	var prompt string
	if kind == KindGraphviz {
		prompt = fmt.Sprintf("Write a Graphviz DOT digraph that explains '%s' step by step. "+
			"Use short quoted labels. Return ONLY the DOT code.", content)
	} else {
		prompt = fmt.Sprintf("Write a Mermaid flowchart that explains '%s' step by step. "+
			"Start with 'graph TD'. Use CamelCase node IDs without spaces and put labels in square brackets. "+
			"Return ONLY the Mermaid code.", content)
	}
	reply, err := v.completer.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	code := cleanDiagram(reply, kind)
	if code == "" {
		return "", fmt.Errorf("viz: reply held no diagram")
	}

	lang, viewer := "mermaid", "https://mermaid.live"
	if kind == KindGraphviz {
		lang, viewer = "dot", "any Graphviz viewer"
	}
	return fmt.Sprintf("Diagram: %s\n\n```%s\n%s\n```\nPaste it into %s to see it.", titleCase(content), lang, code, viewer), nil
}

// cleanDiagram strips fences and chatter around diagram source and repairs
// the header the renderer needs.
func cleanDiagram(reply, kind string) string {
	code := codeFence.ReplaceAllString(reply, "")
	if loc := vizTrailer.FindStringIndex(code); loc != nil {
		code = code[:loc[0]]
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}

	if kind == KindGraphviz {
		if !strings.Contains(code, "{") {
			code = "digraph G {\n" + code + "\n}"
		} else if !strings.HasPrefix(code, "digraph") && !strings.HasPrefix(code, "graph") && !strings.HasPrefix(code, "strict") {
			code = "digraph G " + code[strings.Index(code, "{"):]
		}
		return code
	}

	if !strings.Contains(code, "subgraph") {
		code = strings.TrimSpace(loneEnd.ReplaceAllString(code, ""))
	}
	if !strings.HasPrefix(code, "graph") && !strings.HasPrefix(code, "flowchart") {
		code = "graph TD\n" + code
	}
	return code
}
