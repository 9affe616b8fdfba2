package chat

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/answer.md
var answerPromptRaw string

var answerPromptTmpl = template.Must(template.New("answer").Parse(answerPromptRaw))

type answerPromptInput struct {
	History []model.Exchange
	Query   string
	Context string
	Course  model.Course
}

// buildContext joins chunk texts in the given order (best match first)
func buildContext(chunks []*model.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n")
}

func buildPrompt(history []model.Exchange, query, context string, course model.Course) (string, error) {
	var buf bytes.Buffer
	if err := answerPromptTmpl.Execute(&buf, answerPromptInput{
		History: history,
		Query:   query,
		Context: context,
		Course:  course,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render answer prompt")
	}
	return buf.String(), nil
}
