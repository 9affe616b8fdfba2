package model

import "strings"

// DocumentType is a declared MIME type of an uploaded document
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "application/pdf"
	DocumentTypePPTX DocumentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	DocumentTypeDOCX DocumentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Ext returns file extension for the document type, or empty string if unknown
func (t DocumentType) Ext() string {
	switch t {
	case DocumentTypePDF:
		return ".pdf"
	case DocumentTypePPTX:
		return ".pptx"
	case DocumentTypeDOCX:
		return ".docx"
	default:
		return ""
	}
}

// DocumentTypeFromExt returns document type for a file extension such as ".pdf"
func DocumentTypeFromExt(ext string) (DocumentType, bool) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return DocumentTypePDF, true
	case ".pptx":
		return DocumentTypePPTX, true
	case ".docx":
		return DocumentTypeDOCX, true
	default:
		return "", false
	}
}
