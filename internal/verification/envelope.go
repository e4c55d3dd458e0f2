package verification

import (
	"fmt"
	"strings"
)

// envelopeTemplate is the SOAP 1.1 envelope the consulta service expects. The
// expresión impresa is query-string shaped text nested inside XML, so every
// caller-supplied value must be entity-escaped before it is embedded.
const envelopeTemplate = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:tem="http://tempuri.org/">
   <soap:Header/>
   <soap:Body>
      <tem:Consulta>
         <tem:expresionImpresa>?re=%s&amp;rr=%s&amp;tt=%s&amp;id=%s</tem:expresionImpresa>
      </tem:Consulta>
   </soap:Body>
</soap:Envelope>`

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// BuildEnvelope renders the outbound request body for one consulta. It does
// not validate RFC or UUID formats; that is the caller's concern.
func BuildEnvelope(req Request) string {
	return fmt.Sprintf(envelopeTemplate,
		xmlEscaper.Replace(req.EmisorRFC),
		xmlEscaper.Replace(req.ReceptorRFC),
		xmlEscaper.Replace(req.Total),
		xmlEscaper.Replace(req.UUID),
	)
}
