package compiler

import (
	"strings"

	"github.com/pkg/errors"
	"mvdan.cc/sh/v3/syntax"
)

var ErrInvalidScript = errors.New("invalid pipeline script")

// render joins the stages into a single bash pipeline. Count stages become process
// substitutions fed by tee, so they run alongside the main stream.
func render(stages []Stage) (string, error) {
	parts := make([]string, 0, len(stages))
	for _, stage := range stages {
		cmd, err := quoteArgv(stage.Argv)
		if err != nil {
			return "", errors.Wrapf(err, "stage %s", stage.Name)
		}

		if stage.Connection == Tap {
			out, err := syntax.Quote(stage.Output, syntax.LangBash)
			if err != nil {
				return "", errors.Wrapf(err, "stage %s", stage.Name)
			}
			cmd = "tee >(" + cmd + " > " + out + ")"
		}

		parts = append(parts, cmd)
	}

	script := strings.Join(parts, " | ")

	_, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(script), "")
	if err != nil {
		return "", errors.Wrapf(ErrInvalidScript, "%v", err)
	}

	return script, nil
}

func quoteArgv(argv []string) (string, error) {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}

	return strings.Join(quoted, " "), nil
}
