package verification

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// dataContractNS is the namespace SAT's data-contract serializer puts on the
// ConsultaResult child elements.
const dataContractNS = "http://schemas.datacontract.org/2004/07/Sat.Cfdi.Negocio.ConsultaCfdi.Servicio"

const (
	fieldCodigoEstatus      = "CodigoEstatus"
	fieldEsCancelable       = "EsCancelable"
	fieldEstado             = "Estado"
	fieldEstatusCancelacion = "EstatusCancelacion"
	fieldValidacionEFOS     = "ValidacionEFOS"
)

// estatusCancelacionDefault replaces an explicitly empty EstatusCancelacion
// the moment it is extracted, so later steps see the field as resolved.
const estatusCancelacionDefault = "No disponible"

// node is a generic XML element tree. SAT has shipped the same logical payload
// as attributes, as namespaced child elements, and as a bare container across
// deployments, so extraction walks this tree instead of decoding into fixed
// structs.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
	Text     string     `xml:",chardata"`
}

func parseDocument(body []byte) (*node, error) {
	var root node
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// walk visits n and every element below it in document order. Returning false
// from visit prunes that element's subtree.
func (n *node) walk(visit func(*node) bool) {
	if !visit(n) {
		return
	}
	for i := range n.Children {
		n.Children[i].walk(visit)
	}
}

// attr returns the value of an unqualified attribute with the exact,
// case-sensitive name.
func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// attrAnySpace matches the attribute by local name regardless of namespace
// prefix. Only the ConsultaResult fallback is this permissive.
func (n *node) attrAnySpace(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// fields is the partially extracted payload the tiers pass between each
// other. Each tier sets only fields that are still empty, so composing them
// left to right is order-safe.
type fields struct {
	Estado             string
	EsCancelable       string
	EstatusCancelacion string
	CodigoEstatus      string
	ValidacionEFOS     string
}

func (f *fields) set(name, value string) {
	switch name {
	case fieldCodigoEstatus:
		if f.CodigoEstatus == "" {
			f.CodigoEstatus = value
		}
	case fieldEsCancelable:
		if f.EsCancelable == "" {
			f.EsCancelable = value
		}
	case fieldEstado:
		if f.Estado == "" {
			f.Estado = value
		}
	case fieldEstatusCancelacion:
		if f.EstatusCancelacion == "" {
			if value == "" {
				value = estatusCancelacionDefault
			}
			f.EstatusCancelacion = value
		}
	case fieldValidacionEFOS:
		if f.ValidacionEFOS == "" {
			f.ValidacionEFOS = value
		}
	}
}

var knownFields = []string{
	fieldCodigoEstatus,
	fieldEsCancelable,
	fieldEstado,
	fieldEstatusCancelacion,
	fieldValidacionEFOS,
}

// extract runs the tiered scans over a parsed document. The first tier always
// runs; the broader ones only while Estado is still unresolved. Ordered from
// most specific to most permissive so well-formed modern responses never pay
// for the broad scans.
func extract(root *node) fields {
	f := scanAttributes(root, fields{})
	if f.Estado == "" {
		f = scanNamespacedElements(root, f)
	}
	if f.Estado == "" {
		f = scanBroadTags(root, f)
	}
	if f.Estado == "" {
		f = scanConsultaResult(root, f)
	}
	return f
}

// scanAttributes checks every element for the five known field names as
// direct, unqualified attributes.
func scanAttributes(root *node, f fields) fields {
	root.walk(func(n *node) bool {
		for _, name := range knownFields {
			if v, ok := n.attr(name); ok {
				f.set(name, v)
			}
		}
		return true
	})
	return f
}

// scanNamespacedElements looks for each field as a child element, first in
// the data-contract namespace, then with no namespace at all. First match per
// field wins; text content is trimmed.
func scanNamespacedElements(root *node, f fields) fields {
	for _, space := range []string{dataContractNS, ""} {
		for _, name := range knownFields {
			root.walk(func(n *node) bool {
				if n.XMLName.Space != space || n.XMLName.Local != name {
					return true
				}
				text := strings.TrimSpace(n.Text)
				// EstatusCancelacion counts as found even when empty; the
				// other fields need actual text.
				if text != "" || name == fieldEstatusCancelacion {
					f.set(name, text)
					return false
				}
				return true
			})
		}
	}
	return f
}

// scanBroadTags retries Estado and EsCancelable with progressively looser tag
// matching, ending with a local-name substring match. This covers documents
// whose namespace prefix could not be known ahead of time.
func scanBroadTags(root *node, f fields) fields {
	matchers := []func(got xml.Name, want string) bool{
		func(got xml.Name, want string) bool { return got.Space == "" && got.Local == want },
		func(got xml.Name, want string) bool { return got.Local == want },
		func(got xml.Name, want string) bool { return got.Space == dataContractNS && got.Local == want },
		func(got xml.Name, want string) bool { return strings.Contains(got.Local, want) },
	}
	for _, name := range []string{fieldEstado, fieldEsCancelable} {
		for _, match := range matchers {
			found := false
			root.walk(func(n *node) bool {
				if !match(n.XMLName, name) {
					return true
				}
				if text := strings.TrimSpace(n.Text); text != "" {
					f.set(name, text)
					found = true
					return false
				}
				return true
			})
			if found {
				break
			}
		}
	}
	return f
}

// scanConsultaResult is the last resort: find an element literally named
// ConsultaResult anywhere and read the five fields off its attributes,
// tolerating namespace-qualified attribute names.
func scanConsultaResult(root *node, f fields) fields {
	var result *node
	root.walk(func(n *node) bool {
		if n.XMLName.Local == "ConsultaResult" {
			result = n
			return false
		}
		return true
	})
	if result == nil {
		return f
	}
	for _, name := range knownFields {
		if v, ok := result.attrAnySpace(name); ok {
			f.set(name, v)
		}
	}
	return f
}

// prettyXML re-renders the response body with indentation for the audit copy.
// Whitespace-only character data is dropped so the output stays readable.
func prettyXML(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if cd, ok := tok.(xml.CharData); ok && len(bytes.TrimSpace(cd)) == 0 {
			continue
		}
		if err := enc.EncodeToken(tok); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
