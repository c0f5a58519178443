package importer

// CSVParser parses a plain CSV with a header naming any of
// title,username,password,url,notes,category (case-insensitive, any
// order). The title column is required.
type CSVParser struct{}

const (
	csvColTitle    = "title"
	csvColUsername = "username"
	csvColPassword = "password"
	csvColURL      = "url"
	csvColNotes    = "notes"
	csvColCategory = "category"
)

// Source returns the source type for this parser.
func (p *CSVParser) Source() Source {
	return SourceCSV
}

// Parse parses generic CSV data.
func (p *CSVParser) Parse(data []byte) (*ImportResult, error) {
	b := newBuilder()

	err := readCSV(data, true, []string{csvColTitle}, b, func(rowNum int, get func(string) string) {
		b.add(rowNum, record{
			title:    get(csvColTitle),
			username: get(csvColUsername),
			password: get(csvColPassword),
			url:      get(csvColURL),
			notes:    get(csvColNotes),
			category: get(csvColCategory),
		})
	})
	if err != nil {
		return nil, err
	}
	return b.result, nil
}
