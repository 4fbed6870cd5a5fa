package models

// InvoiceDocument is a parsed FatturaElettronica
type InvoiceDocument struct {
	Version string        `json:"version,omitempty"` // FPA12 / FPR12 root attribute
	Header  InvoiceHeader `json:"header"`
	Body    InvoiceBody   `json:"body"`
}

// InvoiceHeader holds transmission data and the two parties
type InvoiceHeader struct {
	Transmission Transmission `json:"transmission"`
	Issuer       Party        `json:"issuer"`    // CedentePrestatore
	Recipient    Party        `json:"recipient"` // CessionarioCommittente
}

// Transmission holds DatiTrasmissione
type Transmission struct {
	SenderCountry     string `json:"sender_country,omitempty"`
	SenderCode        string `json:"sender_code,omitempty"`
	ProgressiveNumber string `json:"progressive_number,omitempty"`
	Format            string `json:"format,omitempty"`
	RecipientCode     string `json:"recipient_code,omitempty"` // CodiceDestinatario (SDI)
	RecipientPEC      string `json:"recipient_pec,omitempty"`
}

// Party is an invoice issuer or recipient
type Party struct {
	DisplayName  string `json:"display_name"`
	Denomination string `json:"denomination,omitempty"`
	GivenName    string `json:"given_name,omitempty"`  // Nome
	FamilyName   string `json:"family_name,omitempty"` // Cognome
	VATCountry   string `json:"vat_country,omitempty"`
	VATNumber    string `json:"vat_number,omitempty"`
	FiscalCode   string `json:"fiscal_code,omitempty"`
	TaxRegime    string `json:"tax_regime,omitempty"` // RF01, RF19, ...
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Province     string `json:"province,omitempty"`
}

// InvoiceBody holds FatturaElettronicaBody
type InvoiceBody struct {
	Document   GeneralData       `json:"document"`
	Lines      []InvoiceLine     `json:"lines"`
	VATSummary []VATSummaryEntry `json:"vat_summary"`
	Payment    *PaymentData      `json:"payment,omitempty"`
}

// GeneralData holds DatiGeneraliDocumento
type GeneralData struct {
	TypeCode string `json:"type_code"` // TD01 invoice, TD04 credit note, ...
	Currency string `json:"currency"`
	Date     string `json:"date"`
	Number   string `json:"number"`
	// DeclaredTotal is ImportoTotaleDocumento as found in the file. Display only.
	DeclaredTotal *float64 `json:"declared_total,omitempty"`
	Causale       []string `json:"causale,omitempty"`
}

// InvoiceLine is one DettaglioLinee entry
type InvoiceLine struct {
	Number        int     `json:"number"`
	Description   string  `json:"description"`
	Quantity      float64 `json:"quantity"` // defaults to 1
	UnitOfMeasure string  `json:"unit_of_measure,omitempty"`
	UnitPrice     float64 `json:"unit_price"`
	Total         float64 `json:"total"`
	VATRate       float64 `json:"vat_rate"` // defaults to 0
	Nature        string  `json:"nature,omitempty"`
}

// VATSummaryEntry is one DatiRiepilogo entry
type VATSummaryEntry struct {
	Rate                float64 `json:"rate"`
	Nature              string  `json:"nature,omitempty"` // N1..N7 for exempt/non-taxable
	TaxableAmount       float64 `json:"taxable_amount"`
	TaxAmount           float64 `json:"tax_amount"`
	Enforceability      string  `json:"enforceability,omitempty"` // I, D, S (split payment)
	RegulatoryReference string  `json:"regulatory_reference,omitempty"`
}

// PaymentData holds DatiPagamento
type PaymentData struct {
	Conditions string          `json:"conditions,omitempty"`
	Details    []PaymentDetail `json:"details,omitempty"`
}

// PaymentDetail is one DettaglioPagamento entry
type PaymentDetail struct {
	Method  string  `json:"method,omitempty"` // MP01 cash, MP05 bank transfer, ...
	DueDate string  `json:"due_date,omitempty"`
	Amount  float64 `json:"amount"`
	IBAN    string  `json:"iban,omitempty"`
}

// ParsedInvoice is the output of the structured invoice parser
type ParsedInvoice struct {
	Document   InvoiceDocument  `json:"document"`
	Validation ValidationReport `json:"validation"`
}
