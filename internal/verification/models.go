package verification

// Request identifies a CFDI for the SAT consulta service. The four fields
// together form the expresión impresa SAT uses to locate the receipt. All
// values are caller supplied and treated as untrusted text.
type Request struct {
	UUID        string `json:"uuid"`
	EmisorRFC   string `json:"emisor_rfc"`
	ReceptorRFC string `json:"receptor_rfc"`
	Total       string `json:"total"`
}

// Result is the normalized outcome of a consulta. String fields default to
// empty when SAT did not report them; Estado may legitimately be empty, which
// callers must read as "undetermined", not as a failure.
type Result struct {
	Estado             string `json:"estado"`
	EsCancelable       string `json:"es_cancelable"`
	EstatusCancelacion string `json:"estatus_cancelacion"`
	CodigoEstatus      string `json:"codigo_estatus"`
	ValidacionEFOS     string `json:"validacion_efos"`

	// EFOS list membership for each party. SAT's consulta response does not
	// carry these; they stay nil until a list lookup populates them.
	EFOSEmisor   *bool `json:"efos_emisor,omitempty"`
	EFOSReceptor *bool `json:"efos_receptor,omitempty"`

	// RawResponse holds the pretty-printed response body for audit, set on
	// every response that was at least well-formed XML.
	RawResponse string `json:"raw_response,omitempty"`
}

// BatchItem pairs one request of a batch with its outcome. Error is the empty
// string when the item succeeded; on failure Result is the zero value and the
// original request is echoed back.
type BatchItem struct {
	Request Request `json:"request"`
	Result  Result  `json:"response"`
	Error   string  `json:"error,omitempty"`

	// Err keeps the typed failure for in-process callers (metrics, audit);
	// only the message crosses the wire.
	Err error `json:"-"`
}
