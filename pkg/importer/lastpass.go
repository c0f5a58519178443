package importer

// LastPassParser parses LastPass CSV export files:
//
//	url,username,password,totp,extra,name,grouping,fav
type LastPassParser struct{}

// LastPass CSV column names (header-based parsing).
const (
	lpColURL      = "url"
	lpColUsername = "username"
	lpColPassword = "password"
	lpColTOTP     = "totp"
	lpColExtra    = "extra"
	lpColName     = "name"
	lpColGrouping = "grouping"
)

// lpSecureNoteURL marks a secure note rather than a site login.
const lpSecureNoteURL = "http://sn"

// Source returns the source type for this parser.
func (p *LastPassParser) Source() Source {
	return SourceLastPass
}

// Parse parses LastPass CSV data. Grouping becomes the category. TOTP
// seeds have no home in an entry and are dropped with a warning.
func (p *LastPassParser) Parse(data []byte) (*ImportResult, error) {
	b := newBuilder()

	err := readCSV(data, true, []string{lpColName}, b, func(rowNum int, get func(string) string) {
		value := func(col string) string { return DecodeHTMLEntities(get(col)) }

		url := NormalizeText(value(lpColURL))
		if url == lpSecureNoteURL {
			url = ""
		}
		if !IsEmptyOrWhitespace(get(lpColTOTP)) {
			b.warn("row %d: TOTP seed not imported", rowNum)
		}

		b.add(rowNum, record{
			title:    value(lpColName),
			username: value(lpColUsername),
			password: value(lpColPassword),
			url:      url,
			notes:    value(lpColExtra),
			category: value(lpColGrouping),
		})
	})
	if err != nil {
		return nil, err
	}
	return b.result, nil
}
