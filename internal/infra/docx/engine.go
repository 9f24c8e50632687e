package docx

import "github.com/bryanwahyu/pentest-report/internal/domain/reports"

// Engine opens .docx templates and rendered documents.
type Engine struct{}

func (Engine) OpenTemplate(path string) (reports.DocumentTemplate, error) {
	t, err := OpenTemplate(path)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (Engine) OpenStyled(path string) (reports.StyledDocument, error) {
	d, err := OpenDocument(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

var _ reports.DocumentEngine = Engine{}
