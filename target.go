package mediagrab

import (
	"path"
	"strings"
	"text/template"

	"github.com/mediagrab/mediagrab/util"
)

// TargetConfig decides the local filename for a downloaded Content.
type TargetConfig interface {
	TargetName(c *Content) (string, error)
}

type targetConfig struct {
	targetNameTemplate *template.Template
}

type targetNameTemplateArgs struct {
	UID   string
	Title string
	Base  string
	Ext   string
}

// NewTargetConfig returns the default naming scheme: the filename of the first
// fragment, falling back to "<uid><ext>" when the URL has no usable filename.
func NewTargetConfig() TargetConfig {
	return &targetConfig{
		targetNameTemplate: template.Must(template.New("target_name").Parse("{{.Base}}")),
	}
}

// NewTargetConfigTemplate builds a naming scheme from a template over
// {{.UID}}, {{.Title}}, {{.Base}} and {{.Ext}}.
func NewTargetConfigTemplate(tmpl string) (TargetConfig, error) {
	parsed, err := template.New("target_name").Parse(tmpl)
	if err != nil {
		return nil, err
	}
	return &targetConfig{targetNameTemplate: parsed}, nil
}

func (c *targetConfig) TargetName(content *Content) (string, error) {
	args := targetNameTemplateArgs{
		UID:   content.UID,
		Title: content.Title,
	}
	if filename, err := util.FilenameFromURLString(content.Fragments[0]); err == nil {
		args.Base = filename
		args.Ext = path.Ext(filename)
	} else {
		args.Ext = ""
		args.Base = sanitizeFilename(content.UID)
	}
	if args.Title == "" {
		args.Title = content.UID
	}
	builder := strings.Builder{}
	if err := c.targetNameTemplate.Execute(&builder, &args); err != nil {
		return "", err
	}
	return builder.String(), nil
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return r
		}
	}, s)
}
