package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// PDF extracts plain text page by page, concatenated in page order without separator
type PDF struct{}

func (x *PDF) Extract(ctx context.Context, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open PDF", goerr.V("type", model.DocumentTypePDF))
	}

	var text strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}

		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", goerr.Wrap(err, "failed to extract PDF page text",
				goerr.V("type", model.DocumentTypePDF),
				goerr.V("page", i))
		}
		text.WriteString(pageText)
	}

	return text.String(), nil
}
