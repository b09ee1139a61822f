package provider

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// soapReply holds the parts of a SOAP 1.1 response the UID validator cares about.
type soapReply struct {
	Fault       *soapFault
	Result      string
	HasResult   bool
	Unparseable bool
}

type soapFault struct {
	Code   string
	String string
}

// parseSOAPReply scans a SOAP envelope by local element name so any namespace
// prefix is accepted. Malformed XML stops the scan; whatever was found before
// the error is kept and Unparseable is set.
func parseSOAPReply(body []byte, resultElement string) soapReply {
	var (
		reply       soapReply
		inFault     bool
		code, str   *string
		current     *strings.Builder
		currentName string
	)

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				reply.Unparseable = true
			}
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch name := t.Name.Local; {
			case name == "Fault":
				inFault = true
			case inFault && (name == "faultcode" || name == "faultstring"):
				current, currentName = &strings.Builder{}, name
			case name == resultElement:
				current, currentName = &strings.Builder{}, name
			}
		case xml.CharData:
			if current != nil {
				current.Write(t)
			}
		case xml.EndElement:
			if current != nil && t.Name.Local == currentName {
				text := strings.TrimSpace(current.String())
				switch currentName {
				case "faultcode":
					code = &text
				case "faultstring":
					str = &text
				case resultElement:
					reply.Result = text
					reply.HasResult = true
				}
				current, currentName = nil, ""
			}
			if t.Name.Local == "Fault" {
				inFault = false
			}
		}
	}

	if code != nil && str != nil {
		reply.Fault = &soapFault{Code: *code, String: *str}
	}
	return reply
}
