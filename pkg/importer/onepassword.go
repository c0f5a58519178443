package importer

import "strings"

// OnePasswordParser parses 1Password CSV export files (9 columns):
//
//	Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
type OnePasswordParser struct{}

// 1Password CSV column names (header-based parsing).
const (
	op1ColTitle    = "Title"
	op1ColWebsite  = "Website"
	op1ColUsername = "Username"
	op1ColPassword = "Password"
	op1ColOTPAuth  = "OTPAuth"
	op1ColArchived = "Archived"
	op1ColTags     = "Tags"
	op1ColNotes    = "Notes"
)

// Source returns the source type for this parser.
func (p *OnePasswordParser) Source() Source {
	return Source1Password
}

// Parse parses 1Password CSV data. The first tag becomes the category;
// archived items are imported with a warning.
func (p *OnePasswordParser) Parse(data []byte) (*ImportResult, error) {
	b := newBuilder()

	err := readCSV(data, false, []string{op1ColTitle}, b, func(rowNum int, get func(string) string) {
		if !IsEmptyOrWhitespace(get(op1ColOTPAuth)) {
			b.warn("row %d: one-time password seed not imported", rowNum)
		}
		if strings.EqualFold(strings.TrimSpace(get(op1ColArchived)), "true") {
			b.warn("row %d: archived item imported", rowNum)
		}

		category := ""
		if tags := get(op1ColTags); tags != "" {
			category, _, _ = strings.Cut(tags, ",")
		}

		b.add(rowNum, record{
			title:    get(op1ColTitle),
			username: get(op1ColUsername),
			password: get(op1ColPassword),
			url:      get(op1ColWebsite),
			notes:    get(op1ColNotes),
			category: category,
		})
	})
	if err != nil {
		return nil, err
	}
	return b.result, nil
}
