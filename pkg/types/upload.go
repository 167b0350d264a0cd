package types

// RequestType is the "tipo" field of an upload request. Only a few values
// change the pipeline's behaviour; any other non-empty value is accepted.
type RequestType string

const (
	RequestTypeChecklist RequestType = "CHECKLIST"
	RequestTypeTimesheet RequestType = "TS"
)

// UploadRequest is the JSON body accepted by the upload endpoint.
type UploadRequest struct {
	Organization string       `json:"societa"`
	Module       string       `json:"modulo"`
	Type         RequestType  `json:"tipo"`
	ServiceDate  string       `json:"data_servizio"`
	Deposit      bool         `json:"deposito_drive"`
	Email        *Recipients  `json:"email,omitempty"`
	PDF          *FilePayload `json:"pdf,omitempty"`
	Excel        *FilePayload `json:"excel,omitempty"`
}

// Recipients holds the notification addressees.
type Recipients struct {
	To []string `json:"to,omitempty"`
	CC []string `json:"cc,omitempty"`
}

// FilePayload is a named file whose content is base64 encoded.
type FilePayload struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// UploadResult is the outcome of one pipeline run. Err is set iff Success is false.
type UploadResult struct {
	Success   bool
	Deposited bool
	PDFLink   *string
	ExcelLink *string
	Err       error
}

// UploadResponse is the success body.
type UploadResponse struct {
	Success    bool    `json:"success"`
	Definitivo bool    `json:"definitivo"`
	PDFLink    *string `json:"pdfLink"`
	ExcelLink  *string `json:"excelLink"`
}

// ErrorResponse is the body for every failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// TreeQuery is the query string of the path preview endpoint.
type TreeQuery struct {
	Organization string `form:"societa"`
	Module       string `form:"modulo"`
	ServiceDate  string `form:"data_servizio"`
}

// TreeResponse lists the resolved folder segments, root first.
type TreeResponse struct {
	Success  bool     `json:"success"`
	RootID   string   `json:"rootId"`
	Year     string   `json:"year"`
	Module   string   `json:"module"`
	Month    string   `json:"month"`
	Segments []string `json:"segments"`
}
