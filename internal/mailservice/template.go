package mailservice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*
var templateFS embed.FS

// blocks are the named templates every email file defines, in the order ParseTemplate returns them.
var blocks = [3]string{"subject", "plainBody", "htmlBody"}

func NewTemplate() *Template {
	return &Template{parsed: make(map[string]*template.Template)}
}

func (tp *Template) lookup(name string) (*template.Template, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if t, ok := tp.parsed[name]; ok {
		return t, nil
	}

	t, err := template.New("email").ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("could not parse template: %w", err)
	}

	if tp.parsed == nil {
		tp.parsed = make(map[string]*template.Template)
	}
	tp.parsed[name] = t

	return t, nil
}

// ParseTemplate renders the subject, plain-text body and HTML body of the named email. Parsed files are cached.
func (tp *Template) ParseTemplate(name string, data any) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer, error) {
	t, err := tp.lookup(name)
	if err != nil {
		return nil, nil, nil, err
	}

	var out [3]*bytes.Buffer
	for i, block := range blocks {
		out[i] = new(bytes.Buffer)
		if err := t.ExecuteTemplate(out[i], block, data); err != nil {
			return nil, nil, nil, fmt.Errorf("could not render %s: %w", block, err)
		}
	}

	return out[0], out[1], out[2], nil
}
