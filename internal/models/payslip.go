package models

// PayslipData is the set of fields extracted from a scanned busta paga.
// Text fields are nil when not found; amounts default to 0.
type PayslipData struct {
	Identity      Identity      `json:"identity"`
	Earnings      Earnings      `json:"earnings"`
	Contributions Contributions `json:"contributions"`
	Taxes         Taxes         `json:"taxes"`
	NetPay        float64       `json:"net_pay"`
	Period        *string       `json:"period"`
}

// Identity holds employee identification
type Identity struct {
	Name       *string `json:"name"`
	FiscalCode *string `json:"fiscal_code"`
	EmployeeID *string `json:"employee_id"`
}

// Earnings holds the gross pay components
type Earnings struct {
	BaseSalary float64 `json:"base_salary"`
	Allowance  float64 `json:"allowance"` // superminimo
	Overtime   float64 `json:"overtime"`
}

// Gross is the basis for every payroll arithmetic check
func (e Earnings) Gross() float64 {
	return e.BaseSalary + e.Allowance + e.Overtime
}

// Contributions holds social security and insurance withholdings
type Contributions struct {
	INPS  float64 `json:"inps"`
	INAIL float64 `json:"inail"`
}

// Taxes holds income tax withholdings
type Taxes struct {
	IRPEF           float64 `json:"irpef"`
	RegionalSurtax  float64 `json:"regional_surtax"`
	MunicipalSurtax float64 `json:"municipal_surtax"`
}

// PayslipDocument is the output of the scanned payslip extractor
type PayslipDocument struct {
	RawText    string           `json:"raw_text"`
	Parsed     PayslipData      `json:"parsed_data"`
	Validation ValidationReport `json:"validation"`
	PageCount  int              `json:"page_count"`
	TextSource string           `json:"text_source"` // ocr or text_layer
}
