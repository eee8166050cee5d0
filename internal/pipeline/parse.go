package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kailas-cloud/attachments/internal/domain"
)

// Parse reads a pipeline expression. Steps are "stage.verb" or a bare stage
// name. "+" composes additively and binds tighter than "|", which composes
// sequentially. Parentheses group.
//
//	load.html | present.markdown + present.images | refine.add_headers
func Parse(expr string) (Step, error) {
	p := &parser{toks: tokenize(expr)}
	step, err := p.seq()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.toks) {
		return nil, p.errorf("unexpected %q", p.toks[p.pos])
	}
	return step, nil
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidComposition, fmt.Sprintf(format, args...))
}

func (p *parser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *parser) seq() (Step, error) {
	first, err := p.add()
	if err != nil {
		return nil, err
	}
	steps := []Step{first}
	for p.peek() == "|" {
		p.pos++
		next, err := p.add()
		if err != nil {
			return nil, err
		}
		steps = append(steps, next)
	}
	return Seq(steps...), nil
}

func (p *parser) add() (Step, error) {
	first, err := p.atom()
	if err != nil {
		return nil, err
	}
	steps := []Step{first}
	for p.peek() == "+" {
		p.pos++
		next, err := p.atom()
		if err != nil {
			return nil, err
		}
		steps = append(steps, next)
	}
	return Add(steps...), nil
}

func (p *parser) atom() (Step, error) {
	tok := p.peek()
	switch tok {
	case "":
		return nil, p.errorf("unexpected end of expression")
	case "(":
		p.pos++
		inner, err := p.seq()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, p.errorf("missing )")
		}
		p.pos++
		return inner, nil
	case ")", "|", "+":
		return nil, p.errorf("unexpected %q", tok)
	}
	p.pos++

	stageName, verb, ok := strings.Cut(tok, ".")
	stage, err := domain.ParseStage(stageName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Stage(stage), nil
	}
	if verb == "" {
		return nil, p.errorf("empty verb in %q", tok)
	}
	return Verb(stage, verb), nil
}

func tokenize(expr string) []string {
	var (
		toks []string
		cur  strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case unicode.IsSpace(r):
			flush()
		case strings.ContainsRune("|+()", r):
			flush()
			toks = append(toks, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
