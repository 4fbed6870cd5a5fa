package models

// DocumentType identifies which extractor produced a document record
type DocumentType string

// Document type constants
const (
	DocumentTypeInvoice DocumentType = "invoice"
	DocumentTypePayslip DocumentType = "payslip"
)

// Valid reports whether t is a recognized document type
func (t DocumentType) Valid() bool {
	return t == DocumentTypeInvoice || t == DocumentTypePayslip
}

// Document is the structured record handed to the analysis engine.
// Implemented by *InvoiceBody and *PayslipData.
type Document interface {
	DocumentType() DocumentType
}

// DocumentType implements Document
func (b *InvoiceBody) DocumentType() DocumentType { return DocumentTypeInvoice }

// DocumentType implements Document
func (p *PayslipData) DocumentType() DocumentType { return DocumentTypePayslip }
