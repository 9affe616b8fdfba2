package extract_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/coursedash/pkg/extract"
	"github.com/m-mizutani/gt"
	"github.com/unidoc/unioffice/document"
	"github.com/unidoc/unioffice/presentation"
)

func setupOfficeLicense(t *testing.T) {
	key := os.Getenv("TEST_UNIDOC_LICENSE_KEY")
	if key == "" {
		t.Skip("TEST_UNIDOC_LICENSE_KEY is not set")
	}
	gt.NoError(t, extract.SetOfficeLicense(key))
}

func TestDOCXExtract(t *testing.T) {
	setupOfficeLicense(t)

	doc := document.New()
	doc.AddParagraph().AddRun().AddText("Lecture 2: ")
	doc.AddParagraph().AddRun().AddText("dynamic programming")

	var buf bytes.Buffer
	gt.NoError(t, doc.Save(&buf))

	text, err := (&extract.DOCX{}).Extract(context.Background(), buf.Bytes())
	gt.NoError(t, err)
	gt.Equal(t, text, "Lecture 2: dynamic programming")
}

func TestPPTXExtract(t *testing.T) {
	setupOfficeLicense(t)

	ppt := presentation.New()
	slide := ppt.AddSlide()
	tb := slide.AddTextBox()
	tb.AddParagraph().AddRun().SetText("Graphs and trees")

	var buf bytes.Buffer
	gt.NoError(t, ppt.Save(&buf))

	text, err := (&extract.PPTX{}).Extract(context.Background(), buf.Bytes())
	gt.NoError(t, err)
	gt.S(t, text).Contains("Graphs and trees")
}

func TestOfficeExtractMalformed(t *testing.T) {
	ctx := context.Background()

	_, err := (&extract.DOCX{}).Extract(ctx, []byte("not a zip"))
	gt.Error(t, err)

	_, err = (&extract.PPTX{}).Extract(ctx, []byte("not a zip"))
	gt.Error(t, err)
}
