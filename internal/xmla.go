package internal

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const (
	soapNamespace  = "http://schemas.xmlsoap.org/soap/envelope/"
	xmlaNamespace  = "urn:schemas-microsoft-com:xml-analysis"
	xmlaSoapAction = "urn:schemas-microsoft-com:xml-analysis:Execute"
	xmlaPumpPath   = "/olap/msmdpump.dll"
)

// XMLADriver talks to Analysis Services over XMLA (SOAP over HTTP).
//
// The Data Source of the connection string is the HTTP endpoint. A bare host
// name is expanded to http://<host>/olap/msmdpump.dll.
type XMLADriver struct {
	Client *http.Client
}

func (d *XMLADriver) Open(ctx context.Context, connectionString string) (CubeSession, error) {
	props := parseConnectionString(connectionString)

	source := props["data source"]
	if source == "" {
		return nil, errors.New("connection string has no Data Source")
	}
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		source = "http://" + source + xmlaPumpPath
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	return &xmlaSession{
		client:   client,
		endpoint: source,
		catalog:  props["initial catalog"],
		user:     props["user id"],
		password: props["password"],
	}, nil
}

// parseConnectionString splits "Key=Value;" pairs. Keys are lower-cased.
func parseConnectionString(s string) map[string]string {
	props := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		key, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		props[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return props
}

type xmlaSession struct {
	client   *http.Client
	endpoint string
	catalog  string
	user     string
	password string
}

func (s *xmlaSession) Close() error {
	return nil
}

func (s *xmlaSession) Execute(ctx context.Context, query string) (Cellset, error) {
	body, err := xml.Marshal(newExecuteRequest(query, s.catalog))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", xmlaSoapAction)
	if s.user != "" {
		req.SetBasicAuth(s.user, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope xmlaResponseEnvelope
	if err := xml.Unmarshal(data, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("xmla: %s", resp.Status)
		}
		return nil, fmt.Errorf("xmla: decode response: %w", err)
	}

	if fault := envelope.Body.Fault; fault != nil {
		return nil, fmt.Errorf("xmla: %s: %s", fault.Code, fault.String)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xmla: %s", resp.Status)
	}

	root := envelope.Body.Response.Return.Root
	if len(root.Errors) > 0 {
		return nil, fmt.Errorf("xmla: %s", root.Errors[0].Description)
	}

	return newXMLACellset(root), nil
}

// request

type xmlaRequestEnvelope struct {
	XMLName xml.Name        `xml:"soap:Envelope"`
	SoapNS  string          `xml:"xmlns:soap,attr"`
	Body    xmlaRequestBody `xml:"soap:Body"`
}

type xmlaRequestBody struct {
	Execute xmlaExecute `xml:"Execute"`
}

type xmlaExecute struct {
	XMLNS      string           `xml:"xmlns,attr"`
	Statement  string           `xml:"Command>Statement"`
	Properties xmlaPropertyList `xml:"Properties>PropertyList"`
}

type xmlaPropertyList struct {
	Catalog    string `xml:"Catalog,omitempty"`
	Format     string `xml:"Format"`
	AxisFormat string `xml:"AxisFormat"`
	Content    string `xml:"Content"`
}

func newExecuteRequest(query string, catalog string) xmlaRequestEnvelope {
	return xmlaRequestEnvelope{
		SoapNS: soapNamespace,
		Body: xmlaRequestBody{
			Execute: xmlaExecute{
				XMLNS:     xmlaNamespace,
				Statement: query,
				Properties: xmlaPropertyList{
					Catalog:    catalog,
					Format:     "Multidimensional",
					AxisFormat: "TupleFormat",
					Content:    "Data",
				},
			},
		},
	}
}

// response

type xmlaResponseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault    *xmlaFault `xml:"Fault"`
		Response struct {
			Return struct {
				Root mdDataSet `xml:"root"`
			} `xml:"return"`
		} `xml:"ExecuteResponse"`
	} `xml:"Body"`
}

type xmlaFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type mdDataSet struct {
	Axes   []mdAxis  `xml:"Axes>Axis"`
	Cells  []mdCell  `xml:"CellData>Cell"`
	Errors []mdError `xml:"Messages>Error"`
}

type mdError struct {
	Code        string `xml:"ErrorCode,attr"`
	Description string `xml:"Description,attr"`
}

type mdAxis struct {
	Name   string    `xml:"name,attr"`
	Tuples []mdTuple `xml:"Tuples>Tuple"`
}

type mdTuple struct {
	Members []mdMember `xml:"Member"`
}

type mdMember struct {
	Caption string `xml:"Caption"`
}

type mdCell struct {
	Ordinal int      `xml:"CellOrdinal,attr"`
	Value   *mdValue `xml:"Value"`
}

type mdValue struct {
	Type string `xml:"type,attr"`
	Nil  string `xml:"nil,attr"`
	Text string `xml:",chardata"`
}

// cellset

type xmlaCellset struct {
	axes  [][]Position
	cells map[int]any
}

func newXMLACellset(root mdDataSet) *xmlaCellset {
	cs := &xmlaCellset{cells: make(map[int]any, len(root.Cells))}

	for _, axis := range root.Axes {
		if axis.Name == "SlicerAxis" {
			continue
		}
		positions := make([]Position, len(axis.Tuples))
		for i, tuple := range axis.Tuples {
			members := make([]Member, len(tuple.Members))
			for j, m := range tuple.Members {
				members[j] = Member{Caption: m.Caption}
			}
			positions[i] = Position{Members: members}
		}
		cs.axes = append(cs.axes, positions)
	}

	for _, cell := range root.Cells {
		if cell.Value == nil {
			continue
		}
		cs.cells[cell.Ordinal] = cell.Value.convert()
	}

	return cs
}

func (c *xmlaCellset) AxisCount() int {
	return len(c.axes)
}

func (c *xmlaCellset) Positions(axis int) ([]Position, error) {
	if axis < 0 || axis >= len(c.axes) {
		return nil, fmt.Errorf("%w: axis %d not in result", ErrCellsetAxes, axis)
	}
	return c.axes[axis], nil
}

// Value addresses cells by ordinal, column + row * columnCount.
func (c *xmlaCellset) Value(col int, row int) (any, error) {
	if len(c.axes) < 2 {
		return nil, ErrCellsetAxes
	}
	cols, rows := len(c.axes[0]), len(c.axes[1])
	if col < 0 || col >= cols || row < 0 || row >= rows {
		return nil, fmt.Errorf("cell (%d, %d) out of range", col, row)
	}
	return c.cells[col+row*cols], nil
}

func (c *xmlaCellset) Close() error {
	c.cells = nil
	return nil
}

func (v mdValue) convert() any {
	if v.Nil == "true" {
		return nil
	}

	kind := v.Type
	if i := strings.IndexByte(kind, ':'); i >= 0 {
		kind = kind[i+1:]
	}

	switch kind {
	case "double", "float", "decimal", "int", "integer", "long", "short", "byte",
		"unsignedInt", "unsignedLong", "unsignedShort", "unsignedByte":
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return v.Text
		}
		return f
	case "boolean":
		b, err := strconv.ParseBool(strings.TrimSpace(v.Text))
		if err != nil {
			return v.Text
		}
		return b
	default:
		return v.Text
	}
}
