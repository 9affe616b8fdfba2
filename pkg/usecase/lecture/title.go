package lecture

import (
	"bytes"
	"context"
	_ "embed"
	"text/template"

	"github.com/m-mizutani/coursedash/pkg/adapter"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/title.md
var titlePromptRaw string

var titlePromptTmpl = template.Must(template.New("title").Parse(titlePromptRaw))

// ExtractTitle asks the model for a lecture title of the document. The response is
// returned as is without validation.
func (u *UseCase) ExtractTitle(ctx context.Context, data []byte, docType model.DocumentType) (string, error) {
	text, err := u.extractor.Extract(ctx, data, docType)
	if err != nil {
		return "", goerr.Wrap(err, "failed to extract text", goerr.V("type", docType))
	}

	var prompt bytes.Buffer
	if err := titlePromptTmpl.Execute(&prompt, struct{ Text string }{Text: text}); err != nil {
		return "", goerr.Wrap(err, "failed to render title prompt")
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt.String(), genai.RoleUser),
	}
	resp, err := u.gemini.GenerateContent(ctx, contents, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate title")
	}

	return adapter.ResponseText(resp)
}
