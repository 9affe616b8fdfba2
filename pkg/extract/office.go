package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/presentation"
)

// SetOfficeLicense applies a UniDoc metered license key, required by unioffice to read documents
func SetOfficeLicense(key string) error {
	if err := license.SetMeteredKey(key); err != nil {
		return goerr.Wrap(err, "failed to set unioffice license key")
	}
	return nil
}

// PPTX extracts text of each slide in document order. Only shapes exposing text contribute.
type PPTX struct{}

func (x *PPTX) Extract(ctx context.Context, data []byte) (string, error) {
	ppt, err := presentation.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open presentation", goerr.V("type", model.DocumentTypePPTX))
	}

	var text strings.Builder
	for _, slide := range ppt.Slides() {
		slideText := slide.ExtractText()
		if slideText == nil {
			continue
		}
		for _, item := range slideText.Items {
			text.WriteString(item.Text)
		}
	}

	return text.String(), nil
}

// DOCX extracts text paragraph by paragraph in document order
type DOCX struct{}

func (x *DOCX) Extract(ctx context.Context, data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(err, "failed to open document", goerr.V("type", model.DocumentTypeDOCX))
	}
	defer doc.Close()

	var text strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			text.WriteString(run.Text())
		}
	}

	return text.String(), nil
}
