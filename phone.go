package xlaction

import "strings"

// StandardizePhone rewrites a phone column as +CCC-XXX-XXX-XXXX.
type StandardizePhone struct {
	Sheet       string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	PhoneCol    string `json:"phone_col,omitempty" yaml:"phone_col,omitempty"`       // default "Phone"
	CountryCode string `json:"country_code,omitempty" yaml:"country_code,omitempty"` // default "234"
}

func (StandardizePhone) Kind() ActionKind { return KindStandardizePhone }

func (a StandardizePhone) column() string {
	if a.PhoneCol == "" {
		return "Phone"
	}
	return a.PhoneCol
}

func (a StandardizePhone) countryCode() string {
	if a.CountryCode == "" {
		return "234"
	}
	return a.CountryCode
}

// Apply formats every non-blank data cell of the phone column. Cells that
// end up with fewer than ten digits keep their original value.
func (a StandardizePhone) Apply(wb *Workbook, log *ChangeLog) error {
	col := a.column()
	s, idx, err := columnFor(wb, a.Sheet, col)
	if err != nil {
		return err
	}
	cc := a.countryCode()

	for r := 1; r < s.Rows(); r++ {
		cell := s.Cell(r, idx)
		if cell.IsBlank() {
			continue
		}
		if formatted, ok := FormatPhone(cell.String(), cc); ok {
			s.SetCell(r, idx, cell.withValue(TextCell(formatted)))
		}
	}

	log.Add("Standardized phone numbers in column: %s", col)
	return nil
}

// FormatPhone keeps the digits of raw. When they do not already start with
// the country code, the code is prefixed to the last ten digits. Results of
// at least ten digits are grouped 3-3-3-rest behind a plus sign; shorter
// results report false.
func FormatPhone(raw, countryCode string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if !strings.HasPrefix(digits, countryCode) {
		if len(digits) > 10 {
			digits = digits[len(digits)-10:]
		}
		digits = countryCode + digits
	}
	if len(digits) < 10 {
		return "", false
	}
	return "+" + digits[:3] + "-" + digits[3:6] + "-" + digits[6:9] + "-" + digits[9:], true
}
