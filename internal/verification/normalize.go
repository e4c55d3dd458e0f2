package verification

// normalize applies the default-value policy after extraction, whichever tier
// resolved the fields, and assembles the final Result.
//
// ValidacionEFOS defaulting to "200" conflates "SAT did not report the field"
// with "SAT reported a clean status". Preserved from observed service
// behavior; see DESIGN.md before relying on it.
func normalize(f fields, raw string) Result {
	if f.EstatusCancelacion == "" {
		f.EstatusCancelacion = estatusCancelacionDefault
	}
	if f.ValidacionEFOS == "" {
		f.ValidacionEFOS = "200"
	}
	return Result{
		Estado:             f.Estado,
		EsCancelable:       f.EsCancelable,
		EstatusCancelacion: f.EstatusCancelacion,
		CodigoEstatus:      f.CodigoEstatus,
		ValidacionEFOS:     f.ValidacionEFOS,
		RawResponse:        raw,
	}
}
