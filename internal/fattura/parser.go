// Package fattura parses FatturaElettronica XML invoices and checks their VAT arithmetic.
package fattura

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Parser turns FatturaElettronica XML into an InvoiceDocument plus a ValidationReport
type Parser struct {
	policy validation.Policy
	logger *zap.Logger
}

// NewParser creates a new invoice parser
func NewParser(policy validation.Policy, logger *zap.Logger) *Parser {
	return &Parser{
		policy: policy,
		logger: utils.WithComponent(logger, "fattura-parser"),
	}
}

// ParseFile reads and parses an invoice file
func (p *Parser) ParseFile(ctx context.Context, path string) (*models.ParsedInvoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, newParseError("read", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newParseError("read", err)
	}

	p.logger.Debug("Parsing invoice file", zap.String("path", path), zap.Int("size", len(data)))
	return p.ParseBytes(data)
}

// Parse parses an invoice from a reader
func (p *Parser) Parse(r io.Reader) (*models.ParsedInvoice, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newParseError("read", err)
	}
	return p.ParseBytes(data)
}

// ParseBytes parses an invoice held in memory
func (p *Parser) ParseBytes(data []byte) (*models.ParsedInvoice, error) {
	var raw xmlFattura
	decoder := xml.NewDecoder(bytes.NewReader(data))
	// SDI exports may declare ISO-8859-1 or windows-1252
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&raw); err != nil {
		return nil, newParseError("decode", fmt.Errorf("%w: %v", ErrMalformedXML, err))
	}

	doc, err := p.convert(&raw)
	if err != nil {
		return nil, err
	}

	report := Validate(&doc.Body, p.policy)

	p.logger.Info("Invoice parsed",
		zap.String("number", doc.Body.Document.Number),
		zap.String("issuer", doc.Header.Issuer.DisplayName),
		zap.Int("lines", len(doc.Body.Lines)),
		zap.Int("vat_entries", len(doc.Body.VATSummary)),
		zap.Bool("valid", report.IsValid))

	return &models.ParsedInvoice{
		Document:   *doc,
		Validation: report,
	}, nil
}

// convert maps the raw XML tree onto the domain model, enforcing mandatory groups
func (p *Parser) convert(raw *xmlFattura) (*models.InvoiceDocument, error) {
	if raw.Header == nil {
		return nil, missing("FatturaElettronicaHeader")
	}
	if len(raw.Bodies) == 0 {
		return nil, missing("FatturaElettronicaBody")
	}

	issuer, err := convertIssuer(raw.Header.CedentePrestatore)
	if err != nil {
		return nil, err
	}
	recipient, err := convertRecipient(raw.Header.CessionarioCommittente)
	if err != nil {
		return nil, err
	}

	if issuer.VATCountry == "IT" {
		if err := utils.ValidateVATNumber(issuer.VATNumber); err != nil {
			p.logger.Warn("Issuer VAT number failed checksum", zap.Error(err))
		}
	}

	if len(raw.Bodies) > 1 {
		p.logger.Info("Invoice batch detected, using first body",
			zap.Int("bodies", len(raw.Bodies)))
	}
	body, err := convertBody(&raw.Bodies[0])
	if err != nil {
		return nil, err
	}

	dt := raw.Header.DatiTrasmissione
	return &models.InvoiceDocument{
		Version: raw.Versione,
		Header: models.InvoiceHeader{
			Transmission: models.Transmission{
				SenderCountry:     trim(dt.IdTrasmittente.IdPaese),
				SenderCode:        trim(dt.IdTrasmittente.IdCodice),
				ProgressiveNumber: trim(dt.ProgressivoInvio),
				Format:            trim(dt.FormatoTrasmissione),
				RecipientCode:     trim(dt.CodiceDestinatario),
				RecipientPEC:      trim(dt.PECDestinatario),
			},
			Issuer:    issuer,
			Recipient: recipient,
		},
		Body: body,
	}, nil
}

func convertIssuer(s *xmlSoggetto) (models.Party, error) {
	if s == nil || s.DatiAnagrafici == nil {
		return models.Party{}, missing("CedentePrestatore/DatiAnagrafici")
	}
	if s.DatiAnagrafici.IdFiscaleIVA == nil || trim(s.DatiAnagrafici.IdFiscaleIVA.IdCodice) == "" {
		return models.Party{}, missing("CedentePrestatore/DatiAnagrafici/IdFiscaleIVA")
	}
	return convertParty(s), nil
}

func convertRecipient(s *xmlSoggetto) (models.Party, error) {
	if s == nil || s.DatiAnagrafici == nil {
		return models.Party{}, missing("CessionarioCommittente/DatiAnagrafici")
	}
	da := s.DatiAnagrafici
	hasVAT := da.IdFiscaleIVA != nil && trim(da.IdFiscaleIVA.IdCodice) != ""
	if !hasVAT && trim(da.CodiceFiscale) == "" {
		return models.Party{}, missing("CessionarioCommittente/DatiAnagrafici/IdFiscaleIVA|CodiceFiscale")
	}
	return convertParty(s), nil
}

func convertParty(s *xmlSoggetto) models.Party {
	da := s.DatiAnagrafici
	party := models.Party{
		Denomination: trim(da.Anagrafica.Denominazione),
		GivenName:    trim(da.Anagrafica.Nome),
		FamilyName:   trim(da.Anagrafica.Cognome),
		FiscalCode:   strings.ToUpper(trim(da.CodiceFiscale)),
		TaxRegime:    trim(da.RegimeFiscale),
		Address:      strings.TrimSpace(trim(s.Sede.Indirizzo) + " " + trim(s.Sede.NumeroCivico)),
		City:         trim(s.Sede.Comune),
		PostalCode:   trim(s.Sede.CAP),
		Province:     trim(s.Sede.Provincia),
	}
	if da.IdFiscaleIVA != nil {
		party.VATCountry = trim(da.IdFiscaleIVA.IdPaese)
		party.VATNumber = trim(da.IdFiscaleIVA.IdCodice)
	}
	party.DisplayName = displayName(party)
	return party
}

// displayName resolves "Nome Cognome" for people identified by a personal fiscal code
// (or lacking a denomination) and the company denomination otherwise
func displayName(p models.Party) string {
	fullName := strings.TrimSpace(p.GivenName + " " + p.FamilyName)
	personal := utils.IsPersonalFiscalCode(p.FiscalCode) || p.Denomination == ""
	if personal && fullName != "" {
		return fullName
	}
	return p.Denomination
}

func convertBody(b *xmlBody) (models.InvoiceBody, error) {
	if b.DatiGenerali == nil {
		return models.InvoiceBody{}, missing("FatturaElettronicaBody/DatiGenerali")
	}
	dgd := b.DatiGenerali.DatiGeneraliDocumento

	body := models.InvoiceBody{
		Document: models.GeneralData{
			TypeCode: trim(dgd.TipoDocumento),
			Currency: trim(dgd.Divisa),
			Date:     trim(dgd.Data),
			Number:   trim(dgd.Numero),
			Causale:  dgd.Causale,
		},
		Lines:      make([]models.InvoiceLine, 0, len(b.DatiBeniServizi.DettaglioLinee)),
		VATSummary: make([]models.VATSummaryEntry, 0, len(b.DatiBeniServizi.DatiRiepilogo)),
	}
	if v, ok := parseDecimal(dgd.ImportoTotaleDocumento); ok {
		body.Document.DeclaredTotal = &v
	}

	for i, l := range b.DatiBeniServizi.DettaglioLinee {
		number, err := strconv.Atoi(trim(l.NumeroLinea))
		if err != nil {
			number = i + 1
		}
		body.Lines = append(body.Lines, models.InvoiceLine{
			Number:        number,
			Description:   trim(l.Descrizione),
			Quantity:      decimalOr(l.Quantita, 1),
			UnitOfMeasure: trim(l.UnitaMisura),
			UnitPrice:     decimalOr(l.PrezzoUnitario, 0),
			Total:         decimalOr(l.PrezzoTotale, 0),
			VATRate:       decimalOr(l.AliquotaIVA, 0),
			Nature:        trim(l.Natura),
		})
	}

	for _, r := range b.DatiBeniServizi.DatiRiepilogo {
		body.VATSummary = append(body.VATSummary, models.VATSummaryEntry{
			Rate:                decimalOr(r.AliquotaIVA, 0),
			Nature:              trim(r.Natura),
			TaxableAmount:       decimalOr(r.ImponibileImporto, 0),
			TaxAmount:           decimalOr(r.Imposta, 0),
			Enforceability:      trim(r.EsigibilitaIVA),
			RegulatoryReference: trim(r.RiferimentoNormativo),
		})
	}

	if len(b.DatiPagamento) > 0 {
		dp := b.DatiPagamento[0]
		payment := &models.PaymentData{Conditions: trim(dp.CondizioniPagamento)}
		for _, d := range dp.DettaglioPagamento {
			payment.Details = append(payment.Details, models.PaymentDetail{
				Method:  trim(d.ModalitaPagamento),
				DueDate: trim(d.DataScadenzaPagamento),
				Amount:  decimalOr(d.ImportoPagamento, 0),
				IBAN:    trim(d.IBAN),
			})
		}
		body.Payment = payment
	}

	return body, nil
}

var decimalRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// parseDecimal reads an xs:decimal value (dot separated, no exponent).
// Anything else, NaN and Inf included, counts as absent.
func parseDecimal(s string) (float64, bool) {
	s = trim(s)
	if !decimalRegex.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func decimalOr(s string, def float64) float64 {
	if v, ok := parseDecimal(s); ok {
		return v
	}
	return def
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
