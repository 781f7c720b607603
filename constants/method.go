package constants

// Method tags the strategy that produced a candidate record.
type Method string

const (
	MethodText Method = "text"
	MethodOCR  Method = "ocr"
)

func (m Method) String() string { return string(m) }
