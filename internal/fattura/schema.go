package fattura

import "encoding/xml"

// XML mapping of the FatturaElettronica schema (v1.2).
// Tags carry local names only, so prefixed and unprefixed roots decode alike.
// Repeatable groups are slices even when the file holds a single occurrence.

type xmlFattura struct {
	XMLName  xml.Name   `xml:"FatturaElettronica"`
	Versione string     `xml:"versione,attr"`
	Header   *xmlHeader `xml:"FatturaElettronicaHeader"`
	Bodies   []xmlBody  `xml:"FatturaElettronicaBody"`
}

type xmlHeader struct {
	DatiTrasmissione       xmlDatiTrasmissione `xml:"DatiTrasmissione"`
	CedentePrestatore      *xmlSoggetto        `xml:"CedentePrestatore"`
	CessionarioCommittente *xmlSoggetto        `xml:"CessionarioCommittente"`
}

type xmlDatiTrasmissione struct {
	IdTrasmittente      xmlIdFiscale `xml:"IdTrasmittente"`
	ProgressivoInvio    string       `xml:"ProgressivoInvio"`
	FormatoTrasmissione string       `xml:"FormatoTrasmissione"`
	CodiceDestinatario  string       `xml:"CodiceDestinatario"`
	PECDestinatario     string       `xml:"PECDestinatario"`
}

type xmlIdFiscale struct {
	IdPaese  string `xml:"IdPaese"`
	IdCodice string `xml:"IdCodice"`
}

type xmlSoggetto struct {
	DatiAnagrafici *xmlDatiAnagrafici `xml:"DatiAnagrafici"`
	Sede           xmlSede            `xml:"Sede"`
}

type xmlDatiAnagrafici struct {
	IdFiscaleIVA  *xmlIdFiscale `xml:"IdFiscaleIVA"`
	CodiceFiscale string        `xml:"CodiceFiscale"`
	Anagrafica    xmlAnagrafica `xml:"Anagrafica"`
	RegimeFiscale string        `xml:"RegimeFiscale"`
}

type xmlAnagrafica struct {
	Denominazione string `xml:"Denominazione"`
	Nome          string `xml:"Nome"`
	Cognome       string `xml:"Cognome"`
}

type xmlSede struct {
	Indirizzo    string `xml:"Indirizzo"`
	NumeroCivico string `xml:"NumeroCivico"`
	CAP          string `xml:"CAP"`
	Comune       string `xml:"Comune"`
	Provincia    string `xml:"Provincia"`
}

type xmlBody struct {
	DatiGenerali    *xmlDatiGenerali   `xml:"DatiGenerali"`
	DatiBeniServizi xmlDatiBeniServizi `xml:"DatiBeniServizi"`
	DatiPagamento   []xmlDatiPagamento `xml:"DatiPagamento"`
}

type xmlDatiGenerali struct {
	DatiGeneraliDocumento xmlDatiGeneraliDocumento `xml:"DatiGeneraliDocumento"`
}

type xmlDatiGeneraliDocumento struct {
	TipoDocumento          string   `xml:"TipoDocumento"`
	Divisa                 string   `xml:"Divisa"`
	Data                   string   `xml:"Data"`
	Numero                 string   `xml:"Numero"`
	ImportoTotaleDocumento string   `xml:"ImportoTotaleDocumento"`
	Causale                []string `xml:"Causale"`
}

type xmlDatiBeniServizi struct {
	DettaglioLinee []xmlDettaglioLinea `xml:"DettaglioLinee"`
	DatiRiepilogo  []xmlDatiRiepilogo  `xml:"DatiRiepilogo"`
}

type xmlDettaglioLinea struct {
	NumeroLinea    string `xml:"NumeroLinea"`
	Descrizione    string `xml:"Descrizione"`
	Quantita       string `xml:"Quantita"`
	UnitaMisura    string `xml:"UnitaMisura"`
	PrezzoUnitario string `xml:"PrezzoUnitario"`
	PrezzoTotale   string `xml:"PrezzoTotale"`
	AliquotaIVA    string `xml:"AliquotaIVA"`
	Natura         string `xml:"Natura"`
}

type xmlDatiRiepilogo struct {
	AliquotaIVA          string `xml:"AliquotaIVA"`
	Natura               string `xml:"Natura"`
	ImponibileImporto    string `xml:"ImponibileImporto"`
	Imposta              string `xml:"Imposta"`
	EsigibilitaIVA       string `xml:"EsigibilitaIVA"`
	RiferimentoNormativo string `xml:"RiferimentoNormativo"`
}

type xmlDatiPagamento struct {
	CondizioniPagamento string                  `xml:"CondizioniPagamento"`
	DettaglioPagamento  []xmlDettaglioPagamento `xml:"DettaglioPagamento"`
}

type xmlDettaglioPagamento struct {
	ModalitaPagamento     string `xml:"ModalitaPagamento"`
	DataScadenzaPagamento string `xml:"DataScadenzaPagamento"`
	ImportoPagamento      string `xml:"ImportoPagamento"`
	IBAN                  string `xml:"IBAN"`
}
